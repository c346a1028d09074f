package storage

import (
	"context"
	"strings"

	"campusvoice/backend/internal/models"
)

// ComplaintFilter narrows ListComplaints. Zero values mean "any".
type ComplaintFilter struct {
	Status      models.ComplaintStatus
	Category    string
	SubmittedBy string
	Search      string
	Offset      int
	Limit       int
}

func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	return s.db(ctx).Omit("SubmittedBy").Create(complaint).Error
}

func (s *Service) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var complaint models.Complaint
	err := s.db(ctx).Preload("SubmittedBy").First(&complaint, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &complaint, nil
}

// UpdateComplaint saves editable fields. Likes/Dislikes are owned by the vote
// ledger write-back and are never overwritten from a stale copy.
func (s *Service) UpdateComplaint(ctx context.Context, complaint *models.Complaint) error {
	res := s.db(ctx).Model(complaint).
		Select("Title", "Description", "Category", "Location", "Tags", "Attachments",
			"Status", "AdminReply", "RepliedAt", "ResolvedAt").
		Updates(complaint)
	return affected(res)
}

func (s *Service) DeleteComplaint(ctx context.Context, id string) error {
	return affected(s.db(ctx).Delete(&models.Complaint{}, "id = ?", id))
}

func (s *Service) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, int64, error) {
	q := s.db(ctx).Model(&models.Complaint{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.SubmittedBy != "" {
		q = q.Where("submitted_by_id = ?", filter.SubmittedBy)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var complaints []models.Complaint
	err := q.Order("created_at desc").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&complaints).Error
	if err != nil {
		return nil, 0, err
	}
	return complaints, total, nil
}

// CountComplaints counts a user's complaints, optionally restricted to one status.
func (s *Service) CountComplaints(ctx context.Context, submitterID string, status models.ComplaintStatus) (int64, error) {
	q := s.db(ctx).Model(&models.Complaint{}).Where("submitted_by_id = ?", submitterID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
