// Package comment handles discussion under complaints: one level of replies,
// edits that keep the previous revisions, and soft deletion.
package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusvoice/backend/internal/apperr"
	"campusvoice/backend/internal/config"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/notify"
	"campusvoice/backend/internal/storage"
)

type Store interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, complaintID string) ([]models.Comment, error)
}

type Notifier interface {
	NotifyMany(ctx context.Context, ms ...notify.Message)
}

type BadgeTrigger interface {
	Trigger(ctx context.Context, userID string, criteria models.CriteriaType)
}

type Service struct {
	Storage  Store
	Notifier Notifier
	Badges   BadgeTrigger
	Now      func() time.Time
}

func NewService(s Store, n Notifier, b BadgeTrigger) *Service {
	return &Service{Storage: s, Notifier: n, Badges: b, Now: time.Now}
}

func cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.InvalidInput("comment content is required")
	}
	if len(content) > config.MaxContentLength {
		return "", apperr.InvalidInput("comment must be at most %d characters", config.MaxContentLength)
	}
	return content, nil
}

func (s *Service) get(ctx context.Context, id string) (*models.Comment, error) {
	c, err := s.Storage.GetComment(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("comment %s not found", id)
	}
	return c, err
}

// Create adds a comment to a complaint. With parentID it becomes a reply;
// replying to a reply attaches the new comment to the same top-level comment.
func (s *Service) Create(ctx context.Context, actor models.Principal, complaintID, parentID, content string) (*models.Comment, error) {
	if actor.ID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}

	complaint, err := s.Storage.GetComplaint(ctx, complaintID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("complaint %s not found", complaintID)
	}
	if err != nil {
		return nil, err
	}

	c := &models.Comment{ComplaintID: complaintID, AuthorID: actor.ID, Content: content}
	var parent *models.Comment
	if parentID != "" {
		parent, err = s.get(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.ComplaintID != complaintID {
			return nil, apperr.InvalidInput("parent comment belongs to another complaint")
		}
		if parent.IsDeleted {
			return nil, apperr.InvalidInput("cannot reply to a deleted comment")
		}
		root := parent.ID
		if parent.IsReply() {
			root = *parent.ParentID
		}
		c.ParentID = &root
	}

	if err := s.Storage.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.notifyNew(ctx, actor.ID, complaint, parent, c)
	if s.Badges != nil {
		s.Badges.Trigger(ctx, actor.ID, models.CriteriaCommentsMade)
	}
	return c, nil
}

func (s *Service) notifyNew(ctx context.Context, authorID string, complaint *models.Complaint, parent, c *models.Comment) {
	if s.Notifier == nil {
		return
	}
	name := "Someone"
	if u, err := s.Storage.GetUserByID(ctx, authorID); err == nil {
		name = u.Name
	}

	var ms []notify.Message
	if parent != nil {
		ms = append(ms, notify.Message{
			Recipient:  parent.AuthorID,
			Sender:     authorID,
			Type:       models.NotifyCommentReply,
			TargetType: string(models.TargetComment),
			TargetID:   c.ID,
			BodyArgs:   []any{name, complaint.Title},
		})
	}
	// the parent's author already hears about the reply
	if parent == nil || parent.AuthorID != complaint.SubmittedByID {
		ms = append(ms, notify.Message{
			Recipient:  complaint.SubmittedByID,
			Sender:     authorID,
			Type:       models.NotifyCommentAdded,
			TargetType: string(models.TargetComment),
			TargetID:   c.ID,
			BodyArgs:   []any{name, complaint.Title},
		})
	}
	s.Notifier.NotifyMany(ctx, ms...)
}

// Edit replaces the content and keeps the previous revision in EditHistory.
func (s *Service) Edit(ctx context.Context, actor models.Principal, id, content string) (*models.Comment, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsDeleted {
		return nil, apperr.NotFound("comment %s not found", id)
	}
	if !actor.CanModify(c.AuthorID) {
		return nil, apperr.Forbidden("only the author or an admin can edit this comment")
	}
	content, err = cleanContent(content)
	if err != nil {
		return nil, err
	}
	if content == c.Content {
		return c, nil
	}

	now := s.Now()
	c.EditHistory = append(c.EditHistory, models.CommentEdit{Content: c.Content, EditedAt: now})
	c.Content = content
	c.EditedAt = &now
	if err := s.Storage.UpdateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return c, nil
}

// Delete soft-deletes a comment. Its replies stay visible under it.
func (s *Service) Delete(ctx context.Context, actor models.Principal, id string) error {
	c, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(c.AuthorID) {
		return apperr.Forbidden("only the author or an admin can delete this comment")
	}
	if c.IsDeleted {
		return nil
	}
	c.IsDeleted = true
	if err := s.Storage.UpdateComment(ctx, c); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// Node is a top-level comment with its replies in creation order.
type Node struct {
	models.Comment
	Replies []models.Comment `json:"replies"`
}

// Thread returns the complaint's comments as top-level nodes. Replies are
// grouped under their top-level ancestor; deleted comments are redacted.
func (s *Service) Thread(ctx context.Context, complaintID string) ([]Node, error) {
	if _, err := s.Storage.GetComplaint(ctx, complaintID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("complaint %s not found", complaintID)
		}
		return nil, err
	}
	comments, err := s.Storage.ListComments(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	parentOf := make(map[string]string, len(comments))
	for _, c := range comments {
		if c.IsReply() {
			parentOf[c.ID] = *c.ParentID
		}
	}
	rootOf := func(id string) string {
		for i := 0; i < len(comments); i++ {
			p, ok := parentOf[id]
			if !ok {
				break
			}
			id = p
		}
		return id
	}

	nodes := []Node{}
	index := make(map[string]int)
	for _, c := range comments {
		if !c.IsReply() {
			index[c.ID] = len(nodes)
			nodes = append(nodes, Node{Comment: c.Redacted(), Replies: []models.Comment{}})
		}
	}
	for _, c := range comments {
		if !c.IsReply() {
			continue
		}
		i, ok := index[rootOf(c.ID)]
		if !ok {
			// parent is gone; show the reply at the top level
			index[c.ID] = len(nodes)
			nodes = append(nodes, Node{Comment: c.Redacted(), Replies: []models.Comment{}})
			continue
		}
		nodes[i].Replies = append(nodes[i].Replies, c.Redacted())
	}
	return nodes, nil
}
