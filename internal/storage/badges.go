package storage

import (
	"context"

	"campusvoice/backend/internal/models"

	"gorm.io/gorm"
)

func (s *Service) CreateBadge(ctx context.Context, badge *models.Badge) error {
	return duplicate(s.db(ctx).Create(badge).Error)
}

func (s *Service) GetBadge(ctx context.Context, id string) (*models.Badge, error) {
	var badge models.Badge
	if err := s.db(ctx).First(&badge, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &badge, nil
}

func (s *Service) GetBadgeByName(ctx context.Context, name string) (*models.Badge, error) {
	var badge models.Badge
	if err := s.db(ctx).Where("name = ?", name).First(&badge).Error; err != nil {
		return nil, notFound(err)
	}
	return &badge, nil
}

func (s *Service) ListBadges(ctx context.Context, activeOnly bool) ([]models.Badge, error) {
	q := s.db(ctx).Order("criteria_type asc, criteria_threshold asc")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var badges []models.Badge
	err := q.Find(&badges).Error
	return badges, err
}

func (s *Service) ListActiveBadgesByCriteria(ctx context.Context, criteria models.CriteriaType) ([]models.Badge, error) {
	var badges []models.Badge
	err := s.db(ctx).
		Where("is_active = ? AND criteria_type = ?", true, criteria).
		Order("criteria_threshold asc").
		Find(&badges).Error
	return badges, err
}

func (s *Service) IncrementBadgeAwarded(ctx context.Context, badgeID string) error {
	return affected(s.db(ctx).Model(&models.Badge{}).
		Where("id = ?", badgeID).
		UpdateColumn("awarded_count", gorm.Expr("awarded_count + ?", 1)))
}

// AddUserBadge records an award. The (user, badge) unique index turns a
// racing second award into ErrDuplicate.
func (s *Service) AddUserBadge(ctx context.Context, ub *models.UserBadge) error {
	return duplicate(s.db(ctx).Omit("Badge").Create(ub).Error)
}

func (s *Service) ListUserBadges(ctx context.Context, userID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.db(ctx).Preload("Badge").
		Where("user_id = ?", userID).
		Order("awarded_at asc").
		Find(&badges).Error
	return badges, err
}

// UserBadgeIDs returns the user's badge set for membership checks.
func (s *Service) UserBadgeIDs(ctx context.Context, userID string) (map[string]bool, error) {
	var ids []string
	if err := s.db(ctx).Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_id", &ids).Error; err != nil {
		return nil, err
	}
	held := make(map[string]bool, len(ids))
	for _, id := range ids {
		held[id] = true
	}
	return held, nil
}
