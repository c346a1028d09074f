package storage

import (
	"context"
	"strings"

	"campusvoice/backend/internal/analysis"
	"campusvoice/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return duplicate(s.db(ctx).Create(user).Error)
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UpdateUser зберігає користувача повністю (профіль, роль, активність).
func (s *Service) UpdateUser(ctx context.Context, user *models.User) error {
	return s.db(ctx).Omit("Badges").Save(user).Error
}

// AdjustUserCounters applies deltas in one UPDATE so concurrent requests do not
// lose increments. Counters never go below zero and reputation is derived from
// the new counter values in the same statement.
func (s *Service) AdjustUserCounters(ctx context.Context, userID string, submittedDelta, resolvedDelta int) (*models.User, error) {
	submitted := clampedAdd("complaints_submitted", submittedDelta)
	resolved := clampedAdd("complaints_resolved", resolvedDelta)
	res := s.db(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"complaints_submitted": submitted,
			"complaints_resolved":  resolved,
			"reputation": gorm.Expr("(?) * ? + (?) * ?",
				submitted, analysis.GetWeight("complaint_submitted"),
				resolved, analysis.GetWeight("complaint_resolved")),
		})
	if err := affected(res); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, userID)
}

// clampedAdd reads the column's value before the update, in postgres and sqlite alike.
func clampedAdd(column string, delta int) clause.Expr {
	return gorm.Expr("CASE WHEN "+column+" + ? < 0 THEN 0 ELSE "+column+" + ? END", delta, delta)
}

// SetUserCounters overwrites the cached counters with recomputed values.
func (s *Service) SetUserCounters(ctx context.Context, userID string, submitted, resolved, reputation int) error {
	return affected(s.db(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"complaints_submitted": submitted,
			"complaints_resolved":  resolved,
			"reputation":           reputation,
		}))
}

// ListActiveUserIDs pages through active users by id so batch jobs never hold
// the whole table.
func (s *Service) ListActiveUserIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	err := s.db(ctx).Model(&models.User{}).
		Where("is_active = ? AND id > ?", true, afterID).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
