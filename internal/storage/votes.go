package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusvoice/backend/internal/models"

	"gorm.io/gorm"
)

// FindVote returns the ledger row for the identity triple, or nil when the
// user has not voted on the target.
func (s *Service) FindVote(ctx context.Context, userID string, targetType models.TargetType, targetID string) (*models.Vote, error) {
	var vote models.Vote
	err := s.db(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// CreateVote inserts a ledger row. A concurrent insert for the same identity
// loses on the unique index and gets ErrDuplicate.
func (s *Service) CreateVote(ctx context.Context, vote *models.Vote) error {
	return duplicate(s.db(ctx).Create(vote).Error)
}

func (s *Service) UpdateVoteType(ctx context.Context, voteID string, voteType models.VoteType) error {
	return affected(s.db(ctx).Model(&models.Vote{}).
		Where("id = ?", voteID).
		Update("vote_type", voteType))
}

func (s *Service) DeleteVote(ctx context.Context, voteID string) error {
	return affected(s.db(ctx).Delete(&models.Vote{}, "id = ?", voteID))
}

// DeleteVotesForTargets removes ledger rows of deleted content.
func (s *Service) DeleteVotesForTargets(ctx context.Context, targetType models.TargetType, targetIDs []string) (int64, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	res := s.db(ctx).
		Where("target_type = ? AND target_id IN ?", targetType, targetIDs).
		Delete(&models.Vote{})
	return res.RowsAffected, res.Error
}

// CountVotes derives the tally from the ledger; it never reads the cached
// counters on the target.
func (s *Service) CountVotes(ctx context.Context, targetType models.TargetType, targetID string) (models.Tally, error) {
	var rows []struct {
		VoteType models.VoteType
		N        int
	}
	err := s.db(ctx).Model(&models.Vote{}).
		Select("vote_type, COUNT(*) AS n").
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Group("vote_type").
		Scan(&rows).Error
	if err != nil {
		return models.Tally{}, err
	}

	var tally models.Tally
	for _, r := range rows {
		switch r.VoteType {
		case models.VoteLike:
			tally.Likes = r.N
		case models.VoteDislike:
			tally.Dislikes = r.N
		}
	}
	return tally, nil
}

// SetTally writes the recomputed counts onto the target in a single UPDATE.
func (s *Service) SetTally(ctx context.Context, targetType models.TargetType, targetID string, tally models.Tally) error {
	model, err := targetModel(targetType)
	if err != nil {
		return err
	}
	return affected(s.db(ctx).Model(model).
		Where("id = ?", targetID).
		Updates(map[string]interface{}{
			"likes":    tally.Likes,
			"dislikes": tally.Dislikes,
		}))
}

// TargetOwner returns the user who owns the voted content.
func (s *Service) TargetOwner(ctx context.Context, targetType models.TargetType, targetID string) (string, error) {
	model, err := targetModel(targetType)
	if err != nil {
		return "", err
	}
	column := "submitted_by_id"
	if targetType == models.TargetComment {
		column = "author_id"
	}

	var owners []string
	if err := s.db(ctx).Model(model).Where("id = ?", targetID).Pluck(column, &owners).Error; err != nil {
		return "", err
	}
	if len(owners) == 0 {
		return "", ErrNotFound
	}
	return owners[0], nil
}

// CountVotesReceived counts ledger rows on any complaint or comment the user
// owns, soft-deleted comments included. A non-zero since limits it to votes cast after that moment.
func (s *Service) CountVotesReceived(ctx context.Context, userID string, since time.Time) (int64, error) {
	complaintIDs := s.db(ctx).Model(&models.Complaint{}).
		Select("id").
		Where("submitted_by_id = ?", userID)
	commentIDs := s.db(ctx).Model(&models.Comment{}).
		Select("id").
		Where("author_id = ?", userID)

	q := s.db(ctx).Model(&models.Vote{}).
		Where("(target_type = ? AND target_id IN (?)) OR (target_type = ? AND target_id IN (?))",
			models.TargetComplaint, complaintIDs, models.TargetComment, commentIDs)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}

	var n int64
	err := q.Count(&n).Error
	return n, err
}

// TargetTally is the cached aggregate currently stored on a complaint or comment.
type TargetTally struct {
	ID       string
	Likes    int
	Dislikes int
}

// ListTargetTallies pages through every complaint or comment for tally sweeps.
func (s *Service) ListTargetTallies(ctx context.Context, targetType models.TargetType, afterID string, limit int) ([]TargetTally, error) {
	model, err := targetModel(targetType)
	if err != nil {
		return nil, err
	}
	var rows []TargetTally
	err = s.db(ctx).Model(model).
		Select("id", "likes", "dislikes").
		Where("id > ?", afterID).
		Order("id asc").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// DeleteOrphanVotes removes ledger rows whose target no longer exists.
func (s *Service) DeleteOrphanVotes(ctx context.Context) (int64, error) {
	complaintIDs := s.db(ctx).Model(&models.Complaint{}).Select("id")
	commentIDs := s.db(ctx).Model(&models.Comment{}).Select("id")
	res := s.db(ctx).
		Where("(target_type = ? AND target_id NOT IN (?)) OR (target_type = ? AND target_id NOT IN (?))",
			models.TargetComplaint, complaintIDs, models.TargetComment, commentIDs).
		Delete(&models.Vote{})
	return res.RowsAffected, res.Error
}

func targetModel(targetType models.TargetType) (interface{}, error) {
	switch targetType {
	case models.TargetComplaint:
		return &models.Complaint{}, nil
	case models.TargetComment:
		return &models.Comment{}, nil
	}
	return nil, fmt.Errorf("unknown vote target type %q", targetType)
}
