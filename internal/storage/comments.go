package storage

import (
	"context"
	"time"

	"campusvoice/backend/internal/models"
)

func (s *Service) CreateComment(ctx context.Context, comment *models.Comment) error {
	return s.db(ctx).Create(comment).Error
}

func (s *Service) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

// UpdateComment saves content, soft-delete and edit-history fields only.
func (s *Service) UpdateComment(ctx context.Context, comment *models.Comment) error {
	res := s.db(ctx).Model(comment).
		Select("Content", "IsDeleted", "EditedAt", "EditHistory").
		Updates(comment)
	return affected(res)
}

// ListComments повертає всі коментарі скарги в хронологічному порядку,
// включно з видаленими (вони редагуються на рівні сервісу).
func (s *Service) ListComments(ctx context.Context, complaintID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db(ctx).Where("complaint_id = ?", complaintID).
		Order("created_at asc").
		Find(&comments).Error
	return comments, err
}

func (s *Service) ListCommentIDs(ctx context.Context, complaintID string) ([]string, error) {
	var ids []string
	err := s.db(ctx).Model(&models.Comment{}).
		Where("complaint_id = ?", complaintID).
		Pluck("id", &ids).Error
	return ids, err
}

// DeleteCommentsForComplaint hard-deletes every comment of a deleted complaint.
func (s *Service) DeleteCommentsForComplaint(ctx context.Context, complaintID string) (int64, error) {
	res := s.db(ctx).Where("complaint_id = ?", complaintID).Delete(&models.Comment{})
	return res.RowsAffected, res.Error
}

// CountCommentsByAuthor counts live comments, optionally only those with at
// least minLikes likes and created after since.
func (s *Service) CountCommentsByAuthor(ctx context.Context, authorID string, minLikes int, since time.Time) (int64, error) {
	q := s.db(ctx).Model(&models.Comment{}).
		Where("author_id = ? AND is_deleted = ?", authorID, false)
	if minLikes > 0 {
		q = q.Where("likes >= ?", minLikes)
	}
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
