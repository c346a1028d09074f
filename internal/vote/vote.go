// Package vote implements the vote ledger: one row per (user, target type,
// target id) with toggle semantics, and the like/dislike aggregates on
// complaints and comments recomputed from those rows after every change.
package vote

import (
	"context"
	"errors"
	"fmt"
	"log"

	"campusvoice/backend/internal/apperr"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/notify"
	"campusvoice/backend/internal/storage"
)

type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
	ActionUpdated Action = "updated"
)

// Result is what a cast reports back: the action taken and the freshly
// recounted aggregates of the target.
type Result struct {
	Action   Action `json:"action"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
}

type Store interface {
	FindVote(ctx context.Context, userID string, targetType models.TargetType, targetID string) (*models.Vote, error)
	CreateVote(ctx context.Context, vote *models.Vote) error
	UpdateVoteType(ctx context.Context, voteID string, voteType models.VoteType) error
	DeleteVote(ctx context.Context, voteID string) error
	CountVotes(ctx context.Context, targetType models.TargetType, targetID string) (models.Tally, error)
	SetTally(ctx context.Context, targetType models.TargetType, targetID string, tally models.Tally) error
	TargetOwner(ctx context.Context, targetType models.TargetType, targetID string) (string, error)
	GetComment(ctx context.Context, id string) (*models.Comment, error)
}

type Notifier interface {
	Notify(ctx context.Context, m notify.Message)
}

// BadgeTrigger re-evaluates badges for the owner of voted content.
// *badge.Awarder satisfies it.
type BadgeTrigger interface {
	Trigger(ctx context.Context, userID string, criteria models.CriteriaType)
}

type Service struct {
	Storage  Store
	Notifier Notifier
	Badges   BadgeTrigger
}

func NewService(s Store, n Notifier, b BadgeTrigger) *Service {
	return &Service{Storage: s, Notifier: n, Badges: b}
}

func parse(targetType, targetID, voteType string) (models.TargetType, models.VoteType, error) {
	tt, ok := models.ParseTargetType(targetType)
	if !ok {
		return "", "", apperr.InvalidInput("invalid target type %q", targetType)
	}
	if targetID == "" {
		return "", "", apperr.InvalidInput("target id is required")
	}
	vt, ok := models.ParseVoteType(voteType)
	if !ok {
		return "", "", apperr.InvalidInput("invalid vote type %q", voteType)
	}
	return tt, vt, nil
}

// Cast toggles userID's vote on a target:
//   - no vote yet: the vote is added
//   - same vote again: the vote is removed
//   - the other vote: the vote is switched in place
//
// Aggregates are then recounted from the ledger and written to the target.
// Soft-deleted comments take no votes. If the target is gone at write-back the ledger change stays; reconcile
// cleans such rows up.
func (s *Service) Cast(ctx context.Context, userID, targetType, targetID, voteType string) (*Result, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	tt, vt, err := parse(targetType, targetID, voteType)
	if err != nil {
		return nil, err
	}
	if tt == models.TargetComment {
		cm, err := s.Storage.GetComment(ctx, targetID)
		switch {
		case err == nil && cm.IsDeleted:
			return nil, apperr.NotFound("comment %s not found", targetID)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("get comment: %w", err)
		}
	}

	action, err := s.apply(ctx, userID, tt, targetID, vt)
	if err != nil {
		return nil, err
	}

	tally, err := s.Recount(ctx, tt, targetID)
	if err != nil {
		return nil, err
	}

	if action != ActionRemoved {
		s.effects(ctx, userID, tt, targetID, vt)
	}
	return &Result{Action: action, Likes: tally.Likes, Dislikes: tally.Dislikes}, nil
}

func (s *Service) apply(ctx context.Context, userID string, tt models.TargetType, targetID string, vt models.VoteType) (Action, error) {
	existing, err := s.Storage.FindVote(ctx, userID, tt, targetID)
	if err != nil {
		return "", fmt.Errorf("find vote: %w", err)
	}

	if existing == nil {
		err := s.Storage.CreateVote(ctx, &models.Vote{UserID: userID, TargetType: tt, TargetID: targetID, VoteType: vt})
		if err == nil {
			return ActionAdded, nil
		}
		if !errors.Is(err, storage.ErrDuplicate) {
			return "", fmt.Errorf("create vote: %w", err)
		}

		// A concurrent request inserted first; continue from its row.
		existing, err = s.Storage.FindVote(ctx, userID, tt, targetID)
		if err != nil {
			return "", fmt.Errorf("find vote: %w", err)
		}
		if existing == nil {
			return "", apperr.Conflict("vote changed concurrently, try again")
		}
		if existing.VoteType == vt {
			return ActionAdded, nil
		}
		if err := s.Storage.UpdateVoteType(ctx, existing.ID, vt); err != nil {
			return "", fmt.Errorf("update vote: %w", err)
		}
		return ActionUpdated, nil
	}

	if existing.VoteType == vt {
		err := s.Storage.DeleteVote(ctx, existing.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("delete vote: %w", err)
		}
		return ActionRemoved, nil
	}

	if err := s.Storage.UpdateVoteType(ctx, existing.ID, vt); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperr.Conflict("vote changed concurrently, try again")
		}
		return "", fmt.Errorf("update vote: %w", err)
	}
	return ActionUpdated, nil
}

// Recount derives a target's aggregates from the ledger and writes them onto
// the target in a single update.
func (s *Service) Recount(ctx context.Context, tt models.TargetType, targetID string) (models.Tally, error) {
	tally, err := s.Storage.CountVotes(ctx, tt, targetID)
	if err != nil {
		return models.Tally{}, fmt.Errorf("count votes: %w", err)
	}
	if err := s.Storage.SetTally(ctx, tt, targetID, tally); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Tally{}, apperr.NotFound("%s %s not found", tt, targetID)
		}
		return models.Tally{}, fmt.Errorf("write aggregates: %w", err)
	}
	return tally, nil
}

func (s *Service) effects(ctx context.Context, voterID string, tt models.TargetType, targetID string, vt models.VoteType) {
	ownerID, err := s.Storage.TargetOwner(ctx, tt, targetID)
	if err != nil {
		log.Printf("WARNING: vote effects skipped, owner of %s %s: %v", tt, targetID, err)
		return
	}

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, notify.Message{
			Recipient:  ownerID,
			Sender:     voterID,
			Type:       models.NotifyVoteReceived,
			TargetType: string(tt),
			TargetID:   targetID,
			TitleArgs:  []any{string(tt)},
			BodyArgs:   []any{string(tt), string(vt)},
		})
	}

	if s.Badges != nil {
		s.Badges.Trigger(ctx, ownerID, models.CriteriaVotesReceived)
		if tt == models.TargetComment {
			s.Badges.Trigger(ctx, ownerID, models.CriteriaHelpfulComments)
		}
	}
}

// Tally is the derived read of a target's aggregates straight from the ledger.
func (s *Service) Tally(ctx context.Context, targetType, targetID string) (models.Tally, error) {
	tt, ok := models.ParseTargetType(targetType)
	if !ok {
		return models.Tally{}, apperr.InvalidInput("invalid target type %q", targetType)
	}
	if _, err := s.Storage.TargetOwner(ctx, tt, targetID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Tally{}, apperr.NotFound("%s %s not found", tt, targetID)
		}
		return models.Tally{}, err
	}
	return s.Storage.CountVotes(ctx, tt, targetID)
}

// MyVote returns the user's current vote on a target, or "" when none.
func (s *Service) MyVote(ctx context.Context, userID, targetType, targetID string) (models.VoteType, error) {
	tt, ok := models.ParseTargetType(targetType)
	if !ok {
		return "", apperr.InvalidInput("invalid target type %q", targetType)
	}
	v, err := s.Storage.FindVote(ctx, userID, tt, targetID)
	if err != nil || v == nil {
		return "", err
	}
	return v.VoteType, nil
}
