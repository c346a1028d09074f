// Package complaint provides the complaint lifecycle: submission, edits,
// triage by administrators, deletion with its cascade, and the maintenance of
// the submitter's activity counters and reputation that goes with it.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"campusvoice/backend/internal/apperr"
	"campusvoice/backend/internal/config"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/notify"
	"campusvoice/backend/internal/storage"
)

type Store interface {
	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	UpdateComplaint(ctx context.Context, complaint *models.Complaint) error
	DeleteComplaint(ctx context.Context, id string) error
	ListComplaints(ctx context.Context, filter storage.ComplaintFilter) ([]models.Complaint, int64, error)

	GetUserByID(ctx context.Context, id string) (*models.User, error)
	AdjustUserCounters(ctx context.Context, userID string, submittedDelta, resolvedDelta int) (*models.User, error)

	ListCommentIDs(ctx context.Context, complaintID string) ([]string, error)
	DeleteCommentsForComplaint(ctx context.Context, complaintID string) (int64, error)
	DeleteVotesForTargets(ctx context.Context, targetType models.TargetType, targetIDs []string) (int64, error)
}

type Notifier interface {
	Notify(ctx context.Context, m notify.Message)
}

type BadgeTrigger interface {
	Trigger(ctx context.Context, userID string, criteria models.CriteriaType)
}

// Alerter tells administrators about new complaints and status changes.
type Alerter interface {
	ComplaintCreated(ctx context.Context, c *models.Complaint, author *models.User)
	StatusChanged(ctx context.Context, c *models.Complaint, from models.ComplaintStatus)
}

// Service handles the business logic for complaints.
type Service struct {
	Storage  Store
	Notifier Notifier
	Badges   BadgeTrigger
	Alerter  Alerter
	Now      func() time.Time
}

// NewService creates a new complaint service.
func NewService(s Store, n Notifier, b BadgeTrigger, a Alerter) *Service {
	return &Service{Storage: s, Notifier: n, Badges: b, Alerter: a, Now: time.Now}
}

// Input is the client-editable part of a complaint.
type Input struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Location    string              `json:"location"`
	Tags        []string            `json:"tags"`
	Attachments []models.Attachment `json:"attachments"`
}

// UpdateInput carries only the fields the client wants to change.
type UpdateInput struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Category    *string              `json:"category"`
	Location    *string              `json:"location"`
	Tags        *[]string            `json:"tags"`
	Attachments *[]models.Attachment `json:"attachments"`
}

func validate(c *models.Complaint) error {
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	c.Category = strings.ToLower(strings.TrimSpace(c.Category))

	switch {
	case c.Title == "":
		return apperr.InvalidInput("title is required")
	case len(c.Title) > config.MaxTitleLength:
		return apperr.InvalidInput("title must be at most %d characters", config.MaxTitleLength)
	case c.Description == "":
		return apperr.InvalidInput("description is required")
	case len(c.Description) > config.MaxContentLength:
		return apperr.InvalidInput("description must be at most %d characters", config.MaxContentLength)
	case c.Category == "":
		return apperr.InvalidInput("category is required")
	case len(c.Attachments) > config.MaxAttachments:
		return apperr.InvalidInput("at most %d attachments are allowed", config.MaxAttachments)
	}
	for _, a := range c.Attachments {
		if a.URL == "" || a.Size < 0 {
			return apperr.InvalidInput("attachment %q is not a stored upload", a.OriginalName)
		}
	}
	return nil
}

// Create stores a new complaint, then counts it for the submitter and runs the
// complaints_submitted badges. The counter update is not transactional with
// the insert; reconcile repairs drift.
func (s *Service) Create(ctx context.Context, actor models.Principal, in Input) (*models.Complaint, error) {
	if actor.ID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	c := &models.Complaint{
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Location:      strings.TrimSpace(in.Location),
		Tags:          models.NormalizeTags(in.Tags),
		Attachments:   in.Attachments,
		Status:        models.StatusPending,
		SubmittedByID: actor.ID,
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.Storage.CreateComplaint(ctx, c); err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}

	author := s.adjustCounters(ctx, actor.ID, 1, 0)
	if s.Badges != nil {
		s.Badges.Trigger(ctx, actor.ID, models.CriteriaComplaintsSubmitted)
	}
	if s.Alerter != nil {
		s.Alerter.ComplaintCreated(ctx, c, author)
	}
	log.Printf("INFO: complaint %s submitted by %s", c.ID, actor.ID)
	return c, nil
}

// adjustCounters applies counter deltas; storage recomputes reputation in the
// same update. Failures are logged; the complaint write that caused them has
// already happened.
func (s *Service) adjustCounters(ctx context.Context, userID string, submitted, resolved int) *models.User {
	user, err := s.Storage.AdjustUserCounters(ctx, userID, submitted, resolved)
	if err != nil {
		log.Printf("ERROR: adjust counters for user %s (%+d/%+d): %v", userID, submitted, resolved, err)
		return nil
	}
	return user
}

func (s *Service) Get(ctx context.Context, id string) (*models.Complaint, error) {
	c, err := s.Storage.GetComplaint(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("complaint %s not found", id)
	}
	return c, err
}

// ListQuery filters and pages the complaint list. Page is 1-based.
type ListQuery struct {
	Status      string
	Category    string
	SubmittedBy string
	Search      string
	Page        int
	Limit       int
}

type Page struct {
	Items []models.Complaint `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	filter := storage.ComplaintFilter{
		Category:    strings.ToLower(strings.TrimSpace(q.Category)),
		SubmittedBy: q.SubmittedBy,
		Search:      q.Search,
	}
	if q.Status != "" {
		st, ok := models.ParseComplaintStatus(q.Status)
		if !ok {
			return nil, apperr.InvalidInput("invalid status %q", q.Status)
		}
		filter.Status = st
	}
	filter.Offset, filter.Limit = config.PageWindow(q.Page, q.Limit)

	items, total, err := s.Storage.ListComplaints(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Complaint{}
	}
	return &Page{Items: items, Total: total, Page: filter.Offset/filter.Limit + 1, Limit: filter.Limit}, nil
}

// Update edits content fields. Only the submitter or an admin may edit.
func (s *Service) Update(ctx context.Context, actor models.Principal, id string, in UpdateInput) (*models.Complaint, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(c.SubmittedByID) {
		return nil, apperr.Forbidden("only the author or an admin can edit this complaint")
	}

	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Category != nil {
		c.Category = *in.Category
	}
	if in.Location != nil {
		c.Location = strings.TrimSpace(*in.Location)
	}
	if in.Tags != nil {
		c.Tags = models.NormalizeTags(*in.Tags)
	}
	if in.Attachments != nil {
		c.Attachments = *in.Attachments
	}
	if err := validate(c); err != nil {
		return nil, err
	}

	if err := s.Storage.UpdateComplaint(ctx, c); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("complaint %s not found", id)
		}
		return nil, fmt.Errorf("update complaint: %w", err)
	}
	return c, nil
}

// Delete removes a complaint, its comments and every vote on either, and takes
// it off the submitter's counters.
func (s *Service) Delete(ctx context.Context, actor models.Principal, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(c.SubmittedByID) {
		return apperr.Forbidden("only the author or an admin can delete this complaint")
	}

	commentIDs, err := s.Storage.ListCommentIDs(ctx, id)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	if err := s.Storage.DeleteComplaint(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("complaint %s not found", id)
		}
		return fmt.Errorf("delete complaint: %w", err)
	}

	resolved := 0
	if c.Status == models.StatusResolved {
		resolved = -1
	}
	s.adjustCounters(ctx, c.SubmittedByID, -1, resolved)

	if _, err := s.Storage.DeleteVotesForTargets(ctx, models.TargetComplaint, []string{id}); err != nil {
		return fmt.Errorf("delete complaint votes: %w", err)
	}
	if _, err := s.Storage.DeleteVotesForTargets(ctx, models.TargetComment, commentIDs); err != nil {
		return fmt.Errorf("delete comment votes: %w", err)
	}
	n, err := s.Storage.DeleteCommentsForComplaint(ctx, id)
	if err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	log.Printf("INFO: complaint %s deleted by %s with %d comments", id, actor.ID, n)
	return nil
}

// UpdateStatus moves a complaint to another status. Admin only.
// Entering resolved counts toward the submitter's resolved complaints and runs
// the complaints_resolved badges; leaving resolved takes the count back.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Principal, id, status string) (*models.Complaint, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins can change complaint status")
	}
	to, ok := models.ParseComplaintStatus(status)
	if !ok {
		return nil, apperr.InvalidInput("invalid status %q", status)
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := c.Status
	if from == to {
		return c, nil
	}

	c.Status = to
	switch {
	case to == models.StatusResolved:
		now := s.Now()
		c.ResolvedAt = &now
	case from == models.StatusResolved:
		c.ResolvedAt = nil
	}
	if err := s.Storage.UpdateComplaint(ctx, c); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("complaint %s not found", id)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	switch {
	case to == models.StatusResolved:
		s.adjustCounters(ctx, c.SubmittedByID, 0, 1)
		if s.Badges != nil {
			s.Badges.Trigger(ctx, c.SubmittedByID, models.CriteriaComplaintsResolved)
		}
	case from == models.StatusResolved:
		s.adjustCounters(ctx, c.SubmittedByID, 0, -1)
	}

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, notify.Message{
			Recipient:  c.SubmittedByID,
			Sender:     actor.ID,
			Type:       models.NotifyStatusChanged,
			TargetType: string(models.TargetComplaint),
			TargetID:   c.ID,
			BodyArgs:   []any{c.Title, string(to)},
		})
	}
	if s.Alerter != nil {
		s.Alerter.StatusChanged(ctx, c, from)
	}
	log.Printf("INFO: complaint %s status %s -> %s by %s", c.ID, from, to, actor.ID)
	return c, nil
}

// Reply stores the administration's answer on the complaint. Admin only.
func (s *Service) Reply(ctx context.Context, actor models.Principal, id, message string) (*models.Complaint, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins can reply to complaints")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.InvalidInput("reply message is required")
	}
	if len(message) > config.MaxContentLength {
		return nil, apperr.InvalidInput("reply must be at most %d characters", config.MaxContentLength)
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	c.AdminReply = message
	c.RepliedAt = &now
	if err := s.Storage.UpdateComplaint(ctx, c); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("complaint %s not found", id)
		}
		return nil, fmt.Errorf("save reply: %w", err)
	}

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, notify.Message{
			Recipient:  c.SubmittedByID,
			Sender:     actor.ID,
			Type:       models.NotifyAdminReply,
			TargetType: string(models.TargetComplaint),
			TargetID:   c.ID,
			BodyArgs:   []any{c.Title},
		})
	}
	return c, nil
}
