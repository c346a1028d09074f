// Package storagetest opens an isolated in-memory SQLite database with the
// full schema for tests that need real queries.
package storagetest

import (
	"fmt"
	"strings"
	"testing"

	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a storage.Service backed by a per-test in-memory database.
func New(t testing.TB) *storage.Service {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, storage.Migrate(db))
	return storage.NewStorageService(db, nil)
}

// User inserts an active user with the given role.
func User(t testing.TB, s *storage.Service, name, role string) *models.User {
	t.Helper()
	u := &models.User{
		Email:        strings.ToLower(name) + "@campus.edu",
		Name:         name,
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, s.DB.Create(u).Error)
	return u
}

// Complaint inserts a pending complaint owned by userID.
func Complaint(t testing.TB, s *storage.Service, userID, title string) *models.Complaint {
	t.Helper()
	c := &models.Complaint{Title: title, Description: title + " details", Category: "facilities", SubmittedByID: userID}
	require.NoError(t, s.DB.Create(c).Error)
	return c
}

// Comment inserts a top-level comment.
func Comment(t testing.TB, s *storage.Service, complaintID, authorID, content string) *models.Comment {
	t.Helper()
	c := &models.Comment{ComplaintID: complaintID, AuthorID: authorID, Content: content}
	require.NoError(t, s.DB.Create(c).Error)
	return c
}

// Badge inserts an active badge definition.
func Badge(t testing.TB, s *storage.Service, name string, criteria models.CriteriaType, threshold int) *models.Badge {
	t.Helper()
	b := &models.Badge{Name: name, Criteria: models.BadgeCriteria{Type: criteria, Threshold: threshold}, Rarity: models.RarityCommon, IsActive: true}
	require.NoError(t, s.DB.Create(b).Error)
	return b
}
