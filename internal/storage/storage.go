// Package storage is the single persistence layer: PostgreSQL through GORM for
// entities and the vote ledger, Redis for notification pub/sub.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"campusvoice/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a looked-up or updated row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
)

type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	AdjustUserCounters(ctx context.Context, userID string, submittedDelta, resolvedDelta int) (*models.User, error)
	SetUserCounters(ctx context.Context, userID string, submitted, resolved, reputation int) error
	ListActiveUserIDs(ctx context.Context, afterID string, limit int) ([]string, error)

	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	UpdateComplaint(ctx context.Context, complaint *models.Complaint) error
	DeleteComplaint(ctx context.Context, id string) error
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, int64, error)
	CountComplaints(ctx context.Context, submitterID string, status models.ComplaintStatus) (int64, error)

	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, complaintID string) ([]models.Comment, error)
	ListCommentIDs(ctx context.Context, complaintID string) ([]string, error)
	DeleteCommentsForComplaint(ctx context.Context, complaintID string) (int64, error)
	CountCommentsByAuthor(ctx context.Context, authorID string, minLikes int, since time.Time) (int64, error)

	FindVote(ctx context.Context, userID string, targetType models.TargetType, targetID string) (*models.Vote, error)
	CreateVote(ctx context.Context, vote *models.Vote) error
	UpdateVoteType(ctx context.Context, voteID string, voteType models.VoteType) error
	DeleteVote(ctx context.Context, voteID string) error
	DeleteVotesForTargets(ctx context.Context, targetType models.TargetType, targetIDs []string) (int64, error)
	CountVotes(ctx context.Context, targetType models.TargetType, targetID string) (models.Tally, error)
	SetTally(ctx context.Context, targetType models.TargetType, targetID string, tally models.Tally) error
	TargetOwner(ctx context.Context, targetType models.TargetType, targetID string) (string, error)
	CountVotesReceived(ctx context.Context, userID string, since time.Time) (int64, error)
	ListTargetTallies(ctx context.Context, targetType models.TargetType, afterID string, limit int) ([]TargetTally, error)
	DeleteOrphanVotes(ctx context.Context) (int64, error)

	CreateBadge(ctx context.Context, badge *models.Badge) error
	GetBadge(ctx context.Context, id string) (*models.Badge, error)
	GetBadgeByName(ctx context.Context, name string) (*models.Badge, error)
	ListBadges(ctx context.Context, activeOnly bool) ([]models.Badge, error)
	ListActiveBadgesByCriteria(ctx context.Context, criteria models.CriteriaType) ([]models.Badge, error)
	IncrementBadgeAwarded(ctx context.Context, badgeID string) error
	AddUserBadge(ctx context.Context, ub *models.UserBadge) error
	ListUserBadges(ctx context.Context, userID string) ([]models.UserBadge, error)
	UserBadgeIDs(ctx context.Context, userID string) (map[string]bool, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
	CreateNotifications(ctx context.Context, ns []*models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id string, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
	PublishNotification(ctx context.Context, n *models.Notification) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor. rdb may be nil (admin CLI, tests); publishing
// then becomes a no-op.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// AllModels is the migration set shared by the server, the admin CLI and tests.
func AllModels() []any {
	return []any{
		&models.User{},
		&models.Complaint{},
		&models.Comment{},
		&models.Vote{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Notification{},
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// notFound converts gorm's sentinel into ours and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func duplicate(err error) error {
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
