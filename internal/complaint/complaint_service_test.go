package complaint_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"campusvoice/backend/internal/apperr"
	"campusvoice/backend/internal/badge"
	"campusvoice/backend/internal/complaint"
	"campusvoice/backend/internal/config"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/notify"
	"campusvoice/backend/internal/storage"
	"campusvoice/backend/internal/storage/storagetest"
	"campusvoice/backend/internal/vote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) ComplaintCreated(ctx context.Context, c *models.Complaint, author *models.User) {
	m.Called(c, author)
}

func (m *MockAlerter) StatusChanged(ctx context.Context, c *models.Complaint, from models.ComplaintStatus) {
	m.Called(c, from)
}

type fixture struct {
	store   *storage.Service
	svc     *complaint.Service
	awarder *badge.Awarder
	alerter *MockAlerter
}

func setup(t *testing.T) fixture {
	s := storagetest.New(t)
	emitter := notify.NewEmitter(s, nil, "en")
	awarder := badge.NewAwarder(s, emitter)
	alerter := new(MockAlerter)
	alerter.On("ComplaintCreated", mock.Anything, mock.Anything).Return()
	alerter.On("StatusChanged", mock.Anything, mock.Anything).Return()
	return fixture{
		store:   s,
		svc:     complaint.NewService(s, emitter, awarder, alerter),
		awarder: awarder,
		alerter: alerter,
	}
}

func principal(u *models.User) models.Principal {
	return models.Principal{ID: u.ID, Role: u.Role}
}

func validInput() complaint.Input {
	return complaint.Input{
		Title:       "  Wifi drops in the library ",
		Description: "Every afternoon the connection drops.",
		Category:    "IT",
		Tags:        []string{"WiFi", "library", "wifi"},
		Attachments: []models.Attachment{{URL: "/uploads/shot.png", MimeType: "image/png", Size: 1024, OriginalName: "shot.png"}},
	}
}

func TestCreate_CountsAndAwardsFirstBadge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := storagetest.User(t, f.store, "Ann", models.RoleStudent)
	first := storagetest.Badge(t, f.store, "First Voice", models.CriteriaComplaintsSubmitted, 1)

	c, err := f.svc.Create(ctx, principal(a), validInput())
	require.NoError(t, err)
	assert.Equal(t, "Wifi drops in the library", c.Title)
	assert.Equal(t, "it", c.Category)
	assert.Equal(t, models.Tags{"wifi", "library"}, c.Tags)
	assert.Equal(t, models.StatusPending, c.Status)

	user, err := f.store.GetUserByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, user.ComplaintsSubmitted)
	assert.Equal(t, config.ComplaintSubmittedPoints, user.Reputation)

	held, err := f.store.UserBadgeIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, held[first.ID])

	b, err := f.store.GetBadge(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, b.AwardedCount)

	var earned int64
	require.NoError(t, f.store.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ?", a.ID, models.NotifyBadgeEarned).Count(&earned).Error)
	assert.Equal(t, int64(1), earned)

	f.alerter.AssertCalled(t, "ComplaintCreated", c, mock.AnythingOfType("*models.User"))

	// A second complaint does not award the badge again.
	_, err = f.svc.Create(ctx, principal(a), validInput())
	require.NoError(t, err)
	b, _ = f.store.GetBadge(ctx, first.ID)
	assert.Equal(t, 1, b.AwardedCount)
}

func TestCreate_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := storagetest.User(t, f.store, "Ann", models.RoleStudent)

	tests := []struct {
		name   string
		mutate func(*complaint.Input)
	}{
		{"missing title", func(in *complaint.Input) { in.Title = " " }},
		{"title too long", func(in *complaint.Input) { in.Title = strings.Repeat("x", config.MaxTitleLength+1) }},
		{"missing description", func(in *complaint.Input) { in.Description = "" }},
		{"missing category", func(in *complaint.Input) { in.Category = "" }},
		{"attachment without url", func(in *complaint.Input) { in.Attachments = []models.Attachment{{OriginalName: "x.png"}} }},
		{"too many attachments", func(in *complaint.Input) {
			in.Attachments = make([]models.Attachment, config.MaxAttachments+1)
			for i := range in.Attachments {
				in.Attachments[i] = models.Attachment{URL: "/u"}
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := f.svc.Create(ctx, principal(a), in)
			assert.True(t, apperr.Is(err, apperr.KindInvalidInput), "got %v", err)
		})
	}

	_, err := f.svc.Create(ctx, models.Principal{}, validInput())
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	user, _ := f.store.GetUserByID(ctx, a.ID)
	assert.Zero(t, user.ComplaintsSubmitted)
}

func TestUpdate_OwnerOrAdmin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := storagetest.User(t, f.store, "Owner", models.RoleStudent)
	other := storagetest.User(t, f.store, "Other", models.RoleStudent)
	admin := storagetest.User(t, f.store, "Admin", models.RoleAdmin)
	c, err := f.svc.Create(ctx, principal(owner), validInput())
	require.NoError(t, err)

	title := "Wifi fixed?"
	_, err = f.svc.Update(ctx, principal(other), c.ID, complaint.UpdateInput{Title: &title})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	updated, err := f.svc.Update(ctx, principal(owner), c.ID, complaint.UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "Every afternoon the connection drops.", updated.Description)

	tags := []string{"Network"}
	updated, err = f.svc.Update(ctx, principal(admin), c.ID, complaint.UpdateInput{Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, models.Tags{"network"}, updated.Tags)

	empty := ""
	_, err = f.svc.Update(ctx, principal(owner), c.ID, complaint.UpdateInput{Description: &empty})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	_, err = f.svc.Update(ctx, principal(owner), "missing", complaint.UpdateInput{Title: &title})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateStatus_ResolvedMaintainsCounters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := storagetest.User(t, f.store, "Owner", models.RoleStudent)
	admin := storagetest.User(t, f.store, "Admin", models.RoleAdmin)
	solver := storagetest.Badge(t, f.store, "Problem Solver", models.CriteriaComplaintsResolved, 1)
	c, err := f.svc.Create(ctx, principal(owner), validInput())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, principal(owner), c.ID, "resolved")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.svc.UpdateStatus(ctx, principal(admin), c.ID, "done")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	resolved, err := f.svc.UpdateStatus(ctx, principal(admin), c.ID, "resolved")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	user, _ := f.store.GetUserByID(ctx, owner.ID)
	assert.Equal(t, 1, user.ComplaintsResolved)
	assert.Equal(t, config.ComplaintSubmittedPoints+config.ComplaintResolvedPoints, user.Reputation)
	held, _ := f.store.UserBadgeIDs(ctx, owner.ID)
	assert.True(t, held[solver.ID])

	// Same status again changes nothing.
	_, err = f.svc.UpdateStatus(ctx, principal(admin), c.ID, "resolved")
	require.NoError(t, err)
	user, _ = f.store.GetUserByID(ctx, owner.ID)
	assert.Equal(t, 1, user.ComplaintsResolved)

	reopened, err := f.svc.UpdateStatus(ctx, principal(admin), c.ID, "in_progress")
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
	user, _ = f.store.GetUserByID(ctx, owner.ID)
	assert.Equal(t, 0, user.ComplaintsResolved)
	held, _ = f.store.UserBadgeIDs(ctx, owner.ID)
	assert.True(t, held[solver.ID], "badges are never revoked")

	var changes int64
	require.NoError(t, f.store.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ?", owner.ID, models.NotifyStatusChanged).Count(&changes).Error)
	assert.Equal(t, int64(2), changes)
	f.alerter.AssertNumberOfCalls(t, "StatusChanged", 2)
}

func TestReply(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := storagetest.User(t, f.store, "Owner", models.RoleStudent)
	admin := storagetest.User(t, f.store, "Admin", models.RoleAdmin)
	c, err := f.svc.Create(ctx, principal(owner), validInput())
	require.NoError(t, err)
	fixed := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	f.svc.Now = func() time.Time { return fixed }

	_, err = f.svc.Reply(ctx, principal(owner), c.ID, "hi")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.svc.Reply(ctx, principal(admin), c.ID, "   ")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	replied, err := f.svc.Reply(ctx, principal(admin), c.ID, "An engineer is on the way.")
	require.NoError(t, err)
	assert.Equal(t, "An engineer is on the way.", replied.AdminReply)

	stored, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "An engineer is on the way.", stored.AdminReply)
	require.NotNil(t, stored.RepliedAt)
	assert.True(t, fixed.Equal(*stored.RepliedAt))
	require.NotNil(t, stored.SubmittedBy)
	assert.Equal(t, "Owner", stored.SubmittedBy.Name)

	var replies int64
	require.NoError(t, f.store.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ?", owner.ID, models.NotifyAdminReply).Count(&replies).Error)
	assert.Equal(t, int64(1), replies)
}

func TestDelete_CascadesAndDecrements(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := storagetest.User(t, f.store, "Owner", models.RoleStudent)
	voter := storagetest.User(t, f.store, "Voter", models.RoleStudent)
	admin := storagetest.User(t, f.store, "Admin", models.RoleAdmin)

	keep, err := f.svc.Create(ctx, principal(owner), validInput())
	require.NoError(t, err)
	gone, err := f.svc.Create(ctx, principal(owner), validInput())
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, principal(admin), gone.ID, "resolved")
	require.NoError(t, err)

	cm := storagetest.Comment(t, f.store, gone.ID, voter.ID, "seen it")
	votes := vote.NewService(f.store, nil, nil)
	_, err = votes.Cast(ctx, voter.ID, "complaint", gone.ID, "like")
	require.NoError(t, err)
	_, err = votes.Cast(ctx, owner.ID, "comment", cm.ID, "like")
	require.NoError(t, err)
	_, err = votes.Cast(ctx, voter.ID, "complaint", keep.ID, "like")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, principal(voter), gone.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	require.NoError(t, f.svc.Delete(ctx, principal(owner), gone.ID))

	_, err = f.svc.Get(ctx, gone.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.store.GetComment(ctx, cm.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var remaining []models.Vote
	require.NoError(t, f.store.DB.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].TargetID)

	user, _ := f.store.GetUserByID(ctx, owner.ID)
	assert.Equal(t, 1, user.ComplaintsSubmitted)
	assert.Equal(t, 0, user.ComplaintsResolved)
	assert.Equal(t, config.ComplaintSubmittedPoints, user.Reputation)

	assert.True(t, apperr.Is(f.svc.Delete(ctx, principal(owner), gone.ID), apperr.KindNotFound))
}

func TestList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := storagetest.User(t, f.store, "Ann", models.RoleStudent)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, principal(a), validInput())
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, complaint.ListQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Page)

	page, err = f.svc.List(ctx, complaint.ListQuery{Status: "resolved"})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Items)
	assert.Equal(t, config.DefaultPageSize, page.Limit)

	_, err = f.svc.List(ctx, complaint.ListQuery{Status: "open"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

// interleavingStore lets a second Create run to completion right after the
// first one's counter update, as a concurrent request could.
type interleavingStore struct {
	*storage.Service
	between func()
}

func (s *interleavingStore) AdjustUserCounters(ctx context.Context, userID string, submittedDelta, resolvedDelta int) (*models.User, error) {
	user, err := s.Service.AdjustUserCounters(ctx, userID, submittedDelta, resolvedDelta)
	if run := s.between; run != nil {
		s.between = nil
		run()
	}
	return user, err
}

func TestCreate_ReputationFollowsCountersUnderInterleaving(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	a := storagetest.User(t, s, "Ann", models.RoleStudent)

	store := &interleavingStore{Service: s}
	svc := complaint.NewService(store, nil, nil, nil)
	store.between = func() {
		_, err := svc.Create(ctx, principal(a), validInput())
		require.NoError(t, err)
	}

	_, err := svc.Create(ctx, principal(a), validInput())
	require.NoError(t, err)

	user, err := s.GetUserByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, user.ComplaintsSubmitted)
	assert.Equal(t, 2*config.ComplaintSubmittedPoints, user.Reputation)
}
