package vote_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"campusvoice/backend/internal/apperr"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/notify"
	"campusvoice/backend/internal/storage"
	"campusvoice/backend/internal/storage/storagetest"
	"campusvoice/backend/internal/vote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBadges struct {
	mock.Mock
}

func (m *MockBadges) Trigger(ctx context.Context, userID string, criteria models.CriteriaType) {
	m.Called(userID, criteria)
}

func ledgerRows(t *testing.T, s *storage.Service, userID, targetID string) []models.Vote {
	t.Helper()
	var rows []models.Vote
	require.NoError(t, s.DB.Where("user_id = ? AND target_id = ?", userID, targetID).Find(&rows).Error)
	return rows
}

func TestCast_Scenario(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	owner := storagetest.User(t, s, "Owner", models.RoleStudent)
	b := storagetest.User(t, s, "Bea", models.RoleStudent)
	x := storagetest.Complaint(t, s, owner.ID, "Complaint X")
	svc := vote.NewService(s, nil, nil)

	res, err := svc.Cast(ctx, b.ID, "complaint", x.ID, "like")
	require.NoError(t, err)
	assert.Equal(t, vote.Result{Action: vote.ActionAdded, Likes: 1, Dislikes: 0}, *res)

	res, err = svc.Cast(ctx, b.ID, "complaint", x.ID, "dislike")
	require.NoError(t, err)
	assert.Equal(t, vote.Result{Action: vote.ActionUpdated, Likes: 0, Dislikes: 1}, *res)

	rows := ledgerRows(t, s, b.ID, x.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.VoteDislike, rows[0].VoteType)

	res, err = svc.Cast(ctx, b.ID, "complaint", x.ID, "dislike")
	require.NoError(t, err)
	assert.Equal(t, vote.Result{Action: vote.ActionRemoved, Likes: 0, Dislikes: 0}, *res)
	assert.Empty(t, ledgerRows(t, s, b.ID, x.ID))

	stored, err := s.GetComplaint(ctx, x.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Likes)
	assert.Zero(t, stored.Dislikes)
}

func TestCast_ToggleReturnsToPriorState(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	owner := storagetest.User(t, s, "Owner", models.RoleStudent)
	other := storagetest.User(t, s, "Other", models.RoleStudent)
	voter := storagetest.User(t, s, "Voter", models.RoleStudent)
	c := storagetest.Complaint(t, s, owner.ID, "Lights")
	cm := storagetest.Comment(t, s, c.ID, owner.ID, "agreed")
	svc := vote.NewService(s, nil, nil)

	_, err := svc.Cast(ctx, other.ID, "comment", cm.ID, "dislike")
	require.NoError(t, err)
	before, err := s.CountVotes(ctx, models.TargetComment, cm.ID)
	require.NoError(t, err)

	first, err := svc.Cast(ctx, voter.ID, "comment", cm.ID, "like")
	require.NoError(t, err)
	assert.Equal(t, vote.ActionAdded, first.Action)

	second, err := svc.Cast(ctx, voter.ID, "comment", cm.ID, "like")
	require.NoError(t, err)
	assert.Equal(t, vote.ActionRemoved, second.Action)

	after, err := s.CountVotes(ctx, models.TargetComment, cm.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, before, models.Tally{Likes: second.Likes, Dislikes: second.Dislikes})

	stored, err := s.GetComment(ctx, cm.ID)
	require.NoError(t, err)
	assert.Equal(t, after.Likes, stored.Likes)
	assert.Equal(t, after.Dislikes, stored.Dislikes)
}

func TestCast_SwitchMovesOneVote(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	owner := storagetest.User(t, s, "Owner", models.RoleStudent)
	c := storagetest.Complaint(t, s, owner.ID, "Elevator")
	svc := vote.NewService(s, nil, nil)
	for i := 0; i < 3; i++ {
		u := storagetest.User(t, s, fmt.Sprintf("Crowd%d", i), models.RoleStudent)
		_, err := svc.Cast(ctx, u.ID, "complaint", c.ID, "like")
		require.NoError(t, err)
	}
	voter := storagetest.User(t, s, "Voter", models.RoleStudent)

	liked, err := svc.Cast(ctx, voter.ID, "complaint", c.ID, "upvote")
	require.NoError(t, err)
	switched, err := svc.Cast(ctx, voter.ID, "complaint", c.ID, "downvote")
	require.NoError(t, err)

	assert.Equal(t, vote.ActionUpdated, switched.Action)
	assert.Equal(t, liked.Likes-1, switched.Likes)
	assert.Equal(t, liked.Dislikes+1, switched.Dislikes)
	assert.Len(t, ledgerRows(t, s, voter.ID, c.ID), 1)
}

func TestCast_RecountMatchesLedgerInAnyOrder(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	owner := storagetest.User(t, s, "Owner", models.RoleStudent)
	c := storagetest.Complaint(t, s, owner.ID, "Library hours")
	svc := vote.NewService(s, nil, nil)

	var voters []string
	for i := 0; i < 8; i++ {
		voters = append(voters, storagetest.User(t, s, fmt.Sprintf("V%d", i), models.RoleStudent).ID)
	}

	rng := rand.New(rand.NewSource(42))
	var last *vote.Result
	for i := 0; i < 60; i++ {
		vt := "like"
		if rng.Intn(2) == 0 {
			vt = "dislike"
		}
		res, err := svc.Cast(ctx, voters[rng.Intn(len(voters))], "complaint", c.ID, vt)
		require.NoError(t, err)
		last = res
	}

	var rows []models.Vote
	require.NoError(t, s.DB.Where("target_type = ? AND target_id = ?", models.TargetComplaint, c.ID).Find(&rows).Error)
	want := models.Tally{}
	for _, r := range rows {
		if r.VoteType == models.VoteLike {
			want.Likes++
		} else {
			want.Dislikes++
		}
	}

	require.NotNil(t, last)
	assert.Equal(t, want, models.Tally{Likes: last.Likes, Dislikes: last.Dislikes})
	stored, _ := s.GetComplaint(ctx, c.ID)
	assert.Equal(t, want.Likes, stored.Likes)
	assert.Equal(t, want.Dislikes, stored.Dislikes)
	assert.LessOrEqual(t, len(rows), len(voters), "at most one row per voter")
}

func TestCast_InvalidInputWritesNothing(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	u := storagetest.User(t, s, "Ann", models.RoleStudent)
	c := storagetest.Complaint(t, s, u.ID, "Noise")
	svc := vote.NewService(s, nil, nil)

	tests := []struct {
		name       string
		userID     string
		targetType string
		targetID   string
		voteType   string
		kind       apperr.Kind
	}{
		{"unknown target type", u.ID, "user", c.ID, "like", apperr.KindInvalidInput},
		{"unknown vote type", u.ID, "complaint", c.ID, "meh", apperr.KindInvalidInput},
		{"missing target id", u.ID, "complaint", "", "like", apperr.KindInvalidInput},
		{"anonymous", "", "complaint", c.ID, "like", apperr.KindUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Cast(ctx, tt.userID, tt.targetType, tt.targetID, tt.voteType)
			assert.True(t, apperr.Is(err, tt.kind), "got %v", err)
		})
	}

	var n int64
	require.NoError(t, s.DB.Model(&models.Vote{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCast_MissingTargetKeepsLedgerRow(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	u := storagetest.User(t, s, "Ann", models.RoleStudent)
	svc := vote.NewService(s, nil, nil)

	_, err := svc.Cast(ctx, u.ID, "comment", "gone", "like")

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Len(t, ledgerRows(t, s, u.ID, "gone"), 1)
}

func TestCast_SoftDeletedCommentRejected(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	owner := storagetest.User(t, s, "Owner", models.RoleStudent)
	u := storagetest.User(t, s, "Ann", models.RoleStudent)
	c := storagetest.Complaint(t, s, owner.ID, "Canteen")
	cm := storagetest.Comment(t, s, c.ID, owner.ID, "cold soup")
	cm.IsDeleted = true
	require.NoError(t, s.UpdateComment(ctx, cm))
	svc := vote.NewService(s, notify.NewEmitter(s, nil, "en"), nil)

	_, err := svc.Cast(ctx, u.ID, "comment", cm.ID, "like")

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Empty(t, ledgerRows(t, s, u.ID, cm.ID))
	var count int64
	require.NoError(t, s.DB.Model(&models.Notification{}).Where("recipient_id = ?", owner.ID).Count(&count).Error)
	assert.Zero(t, count)
}

// racingStore reports no existing vote on the first lookup, as a request that
// raced another insert from the same user would observe.
type racingStore struct {
	*storage.Service
	lookups int
}

func (r *racingStore) FindVote(ctx context.Context, userID string, tt models.TargetType, targetID string) (*models.Vote, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return r.Service.FindVote(ctx, userID, tt, targetID)
}

func TestCast_DuplicateInsertFallsBackToExistingRow(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	owner := storagetest.User(t, s, "Owner", models.RoleStudent)
	u := storagetest.User(t, s, "Ann", models.RoleStudent)
	c := storagetest.Complaint(t, s, owner.ID, "Printers")

	require.NoError(t, s.CreateVote(ctx, &models.Vote{UserID: u.ID, TargetType: models.TargetComplaint, TargetID: c.ID, VoteType: models.VoteLike}))

	same, err := vote.NewService(&racingStore{Service: s}, nil, nil).Cast(ctx, u.ID, "complaint", c.ID, "like")
	require.NoError(t, err)
	assert.Equal(t, vote.Result{Action: vote.ActionAdded, Likes: 1}, *same)

	other, err := vote.NewService(&racingStore{Service: s}, nil, nil).Cast(ctx, u.ID, "complaint", c.ID, "dislike")
	require.NoError(t, err)
	assert.Equal(t, vote.Result{Action: vote.ActionUpdated, Dislikes: 1}, *other)

	assert.Len(t, ledgerRows(t, s, u.ID, c.ID), 1)
}

func TestCast_Effects(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	owner := storagetest.User(t, s, "Owner", models.RoleStudent)
	voter := storagetest.User(t, s, "Voter", models.RoleStudent)
	c := storagetest.Complaint(t, s, owner.ID, "Bus stop")
	cm := storagetest.Comment(t, s, c.ID, owner.ID, "me too")

	badges := new(MockBadges)
	badges.On("Trigger", owner.ID, mock.AnythingOfType("models.CriteriaType")).Return()
	svc := vote.NewService(s, notify.NewEmitter(s, nil, "en"), badges)

	_, err := svc.Cast(ctx, voter.ID, "complaint", c.ID, "like")
	require.NoError(t, err)
	badges.AssertCalled(t, "Trigger", owner.ID, models.CriteriaVotesReceived)
	badges.AssertNotCalled(t, "Trigger", owner.ID, models.CriteriaHelpfulComments)

	_, err = svc.Cast(ctx, voter.ID, "comment", cm.ID, "like")
	require.NoError(t, err)
	badges.AssertCalled(t, "Trigger", owner.ID, models.CriteriaHelpfulComments)

	var notes []models.Notification
	require.NoError(t, s.DB.Where("recipient_id = ?", owner.ID).Order("created_at").Find(&notes).Error)
	require.Len(t, notes, 2)
	assert.Equal(t, models.NotifyVoteReceived, notes[0].Type)
	require.NotNil(t, notes[0].SenderID)
	assert.Equal(t, voter.ID, *notes[0].SenderID)

	// Removing a vote has no side effects.
	_, err = svc.Cast(ctx, voter.ID, "comment", cm.ID, "like")
	require.NoError(t, err)
	badges.AssertNumberOfCalls(t, "Trigger", 3)

	// Voting on your own content does not notify you.
	_, err = svc.Cast(ctx, owner.ID, "complaint", c.ID, "like")
	require.NoError(t, err)
	var count int64
	require.NoError(t, s.DB.Model(&models.Notification{}).Where("recipient_id = ?", owner.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestTallyAndMyVote(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	owner := storagetest.User(t, s, "Owner", models.RoleStudent)
	c := storagetest.Complaint(t, s, owner.ID, "Gym")
	svc := vote.NewService(s, nil, nil)

	mine, err := svc.MyVote(ctx, owner.ID, "complaint", c.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = svc.Cast(ctx, owner.ID, "complaint", c.ID, "dislike")
	require.NoError(t, err)

	mine, err = svc.MyVote(ctx, owner.ID, "complaint", c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoteDislike, mine)

	tally, err := svc.Tally(ctx, "complaint", c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Tally{Dislikes: 1}, tally)

	_, err = svc.Tally(ctx, "complaint", "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.Tally(ctx, "post", c.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}
