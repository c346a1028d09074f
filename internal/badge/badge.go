// Package badge evaluates badge criteria against a user's activity and grants
// badges at most once per user.
package badge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"campusvoice/backend/internal/apperr"
	"campusvoice/backend/internal/config"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/notify"
	"campusvoice/backend/internal/storage"
)

type Store interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListActiveUserIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	CountCommentsByAuthor(ctx context.Context, authorID string, minLikes int, since time.Time) (int64, error)
	CountVotesReceived(ctx context.Context, userID string, since time.Time) (int64, error)

	CreateBadge(ctx context.Context, badge *models.Badge) error
	GetBadge(ctx context.Context, id string) (*models.Badge, error)
	GetBadgeByName(ctx context.Context, name string) (*models.Badge, error)
	ListBadges(ctx context.Context, activeOnly bool) ([]models.Badge, error)
	ListActiveBadgesByCriteria(ctx context.Context, criteria models.CriteriaType) ([]models.Badge, error)
	IncrementBadgeAwarded(ctx context.Context, badgeID string) error
	AddUserBadge(ctx context.Context, ub *models.UserBadge) error
	ListUserBadges(ctx context.Context, userID string) ([]models.UserBadge, error)
	UserBadgeIDs(ctx context.Context, userID string) (map[string]bool, error)
}

// Notifier receives badge_earned events. *notify.Emitter satisfies it.
type Notifier interface {
	Notify(ctx context.Context, m notify.Message)
}

type Awarder struct {
	Storage  Store
	Notifier Notifier
	Now      func() time.Time
}

func NewAwarder(s Store, n Notifier) *Awarder {
	return &Awarder{Storage: s, Notifier: n, Now: time.Now}
}

// EvaluateAndAward grants every active badge of the given criteria that the
// user qualifies for and does not hold yet. Running it again is a no-op.
// admin_approved badges are never granted here.
func (a *Awarder) EvaluateAndAward(ctx context.Context, userID string, criteria models.CriteriaType) ([]models.Badge, error) {
	if _, ok := models.ParseCriteriaType(string(criteria)); !ok {
		return nil, apperr.InvalidInput("unknown badge criteria %q", criteria)
	}
	if criteria == models.CriteriaAdminApproved {
		return nil, nil
	}

	user, err := a.Storage.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("user %s not found", userID)
	}
	if err != nil {
		return nil, err
	}

	candidates, err := a.Storage.ListActiveBadgesByCriteria(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	held, err := a.Storage.UserBadgeIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user badges: %w", err)
	}

	// one count per distinct time frame
	values := make(map[int]int64)
	var awarded []models.Badge
	for i := range candidates {
		b := candidates[i]
		if held[b.ID] {
			continue
		}

		v, ok := values[b.Criteria.TimeFrameDays]
		if !ok {
			v, err = a.measure(ctx, user, criteria, b.Criteria.TimeFrameDays)
			if err != nil {
				return awarded, err
			}
			values[b.Criteria.TimeFrameDays] = v
		}
		if v < int64(b.Criteria.Threshold) {
			continue
		}

		granted, err := a.award(ctx, user.ID, &b)
		if err != nil {
			return awarded, err
		}
		if granted {
			awarded = append(awarded, b)
		}
	}
	return awarded, nil
}

// EvaluateAll runs every automatic criteria for the user.
func (a *Awarder) EvaluateAll(ctx context.Context, userID string) ([]models.Badge, error) {
	var all []models.Badge
	for _, c := range models.AllCriteriaTypes {
		if c == models.CriteriaAdminApproved {
			continue
		}
		got, err := a.EvaluateAndAward(ctx, userID, c)
		all = append(all, got...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// Trigger runs EvaluateAndAward as a side effect and only logs failures.
func (a *Awarder) Trigger(ctx context.Context, userID string, criteria models.CriteriaType) {
	if a == nil || userID == "" {
		return
	}
	if _, err := a.EvaluateAndAward(ctx, userID, criteria); err != nil {
		log.Printf("ERROR: badge evaluation %s for user %s: %v", criteria, userID, err)
	}
}

// measure returns the user's current value for a criteria. timeFrameDays > 0
// limits counted comments and votes to that trailing window.
func (a *Awarder) measure(ctx context.Context, user *models.User, criteria models.CriteriaType, timeFrameDays int) (int64, error) {
	now := a.Now()
	var since time.Time
	if timeFrameDays > 0 {
		since = now.AddDate(0, 0, -timeFrameDays)
	}

	switch criteria {
	case models.CriteriaComplaintsSubmitted:
		return int64(user.ComplaintsSubmitted), nil
	case models.CriteriaComplaintsResolved:
		return int64(user.ComplaintsResolved), nil
	case models.CriteriaCommentsMade:
		return a.Storage.CountCommentsByAuthor(ctx, user.ID, 0, since)
	case models.CriteriaHelpfulComments:
		return a.Storage.CountCommentsByAuthor(ctx, user.ID, config.HelpfulCommentLikes, since)
	case models.CriteriaVotesReceived:
		return a.Storage.CountVotesReceived(ctx, user.ID, since)
	case models.CriteriaDaysActive:
		if now.Before(user.CreatedAt) {
			return 0, nil
		}
		return int64(now.Sub(user.CreatedAt) / (24 * time.Hour)), nil
	}
	return 0, apperr.InvalidInput("criteria %q is not evaluated automatically", criteria)
}

// award records the membership, bumps the counter and notifies. A duplicate
// insert means a concurrent request won the race; it reports false.
func (a *Awarder) award(ctx context.Context, userID string, b *models.Badge) (bool, error) {
	ub := &models.UserBadge{UserID: userID, BadgeID: b.ID, AwardedAt: a.Now()}
	if err := a.Storage.AddUserBadge(ctx, ub); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("award badge %s: %w", b.Name, err)
	}
	if err := a.Storage.IncrementBadgeAwarded(ctx, b.ID); err != nil {
		return true, fmt.Errorf("increment awarded count for %s: %w", b.Name, err)
	}
	b.AwardedCount++

	log.Printf("INFO: user %s earned badge %q", userID, b.Name)
	if a.Notifier != nil {
		a.Notifier.Notify(ctx, notify.Message{
			Recipient:  userID,
			Type:       models.NotifyBadgeEarned,
			TargetType: "badge",
			TargetID:   b.ID,
			TitleArgs:  []any{b.Name},
			BodyArgs:   []any{b.Description},
		})
	}
	return true, nil
}

// Grant is the manual path used by administrators, including for
// admin_approved badges.
func (a *Awarder) Grant(ctx context.Context, userID, badgeID string) (*models.Badge, error) {
	if _, err := a.Storage.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("user %s not found", userID)
		}
		return nil, err
	}
	b, err := a.Storage.GetBadge(ctx, badgeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("badge %s not found", badgeID)
	}
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, apperr.InvalidInput("badge %q is inactive", b.Name)
	}

	held, err := a.Storage.UserBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if held[b.ID] {
		return nil, apperr.Conflict("user already holds badge %q", b.Name)
	}

	granted, err := a.award(ctx, userID, b)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, apperr.Conflict("user already holds badge %q", b.Name)
	}
	return b, nil
}

// BackfillReport summarizes one Backfill pass.
type BackfillReport struct {
	Users   int `json:"users"`
	Awarded int `json:"awarded"`
	Failed  int `json:"failed"`
}

// Backfill evaluates every automatic criteria for every active user, walking
// users in batches. A failure for one user is logged and counted; the pass
// continues with the next user.
func (a *Awarder) Backfill(ctx context.Context) (BackfillReport, error) {
	var report BackfillReport
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ids, err := a.Storage.ListActiveUserIDs(ctx, after, config.BackfillBatchSize)
		if err != nil {
			return report, fmt.Errorf("list users: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			report.Users++
			got, err := a.EvaluateAll(ctx, id)
			report.Awarded += len(got)
			if err != nil {
				report.Failed++
				log.Printf("ERROR: backfill badges for user %s: %v", id, err)
			}
		}
		after = ids[len(ids)-1]
		log.Printf("INFO: badge backfill processed %d users, %d awards so far", report.Users, report.Awarded)
	}
	return report, nil
}

// Seed creates the definitions that do not exist yet, matched by name.
// Existing badges are left untouched.
func (a *Awarder) Seed(ctx context.Context, defs []config.BadgeSeed) (int, error) {
	created := 0
	for _, d := range defs {
		criteria, ok := models.ParseCriteriaType(d.CriteriaType)
		if !ok {
			return created, apperr.InvalidInput("badge %q has unknown criteria %q", d.Name, d.CriteriaType)
		}

		_, err := a.Storage.GetBadgeByName(ctx, d.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return created, err
		}

		rarity := models.Rarity(d.Rarity)
		if rarity == "" {
			rarity = models.RarityCommon
		}
		b := &models.Badge{
			Name:        d.Name,
			Description: d.Description,
			Icon:        d.Icon,
			Criteria: models.BadgeCriteria{
				Type:          criteria,
				Threshold:     d.Threshold,
				TimeFrameDays: d.TimeFrameDays,
			},
			Rarity:   rarity,
			IsActive: true,
		}
		if err := a.Storage.CreateBadge(ctx, b); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				continue
			}
			return created, fmt.Errorf("create badge %q: %w", d.Name, err)
		}
		created++
	}
	return created, nil
}

// Catalog lists active badge definitions.
func (a *Awarder) Catalog(ctx context.Context) ([]models.Badge, error) {
	return a.Storage.ListBadges(ctx, true)
}

// UserBadges lists the badges a user holds.
func (a *Awarder) UserBadges(ctx context.Context, userID string) ([]models.UserBadge, error) {
	if _, err := a.Storage.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("user %s not found", userID)
		}
		return nil, err
	}
	return a.Storage.ListUserBadges(ctx, userID)
}
