package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CriteriaType string

const (
	CriteriaComplaintsSubmitted CriteriaType = "complaints_submitted"
	CriteriaComplaintsResolved  CriteriaType = "complaints_resolved"
	CriteriaCommentsMade        CriteriaType = "comments_made"
	CriteriaHelpfulComments     CriteriaType = "helpful_comments"
	CriteriaVotesReceived       CriteriaType = "votes_received"
	CriteriaDaysActive          CriteriaType = "days_active"
	CriteriaAdminApproved       CriteriaType = "admin_approved"
)

// AllCriteriaTypes lists the criteria the backfill walks through.
var AllCriteriaTypes = []CriteriaType{
	CriteriaComplaintsSubmitted,
	CriteriaComplaintsResolved,
	CriteriaCommentsMade,
	CriteriaHelpfulComments,
	CriteriaVotesReceived,
	CriteriaDaysActive,
	CriteriaAdminApproved,
}

func ParseCriteriaType(s string) (CriteriaType, bool) {
	for _, c := range AllCriteriaTypes {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// BadgeCriteria says when a badge is earned. TimeFrameDays limits counted
// activity to a trailing window; zero means all time.
type BadgeCriteria struct {
	Type          CriteriaType `gorm:"type:varchar(40);not null;index" json:"type"`
	Threshold     int          `gorm:"not null" json:"threshold"`
	TimeFrameDays int          `gorm:"not null;default:0" json:"timeFrame"`
}

// Badge is seeded reference data. Only AwardedCount changes at runtime.
type Badge struct {
	ID           string        `gorm:"primaryKey" json:"id"`
	Name         string        `gorm:"uniqueIndex;not null" json:"name"`
	Description  string        `json:"description"`
	Icon         string        `json:"icon"`
	Criteria     BadgeCriteria `gorm:"embedded;embeddedPrefix:criteria_" json:"criteria"`
	Rarity       Rarity        `gorm:"type:varchar(20);not null;default:common" json:"rarity"`
	IsActive     bool          `gorm:"not null;default:true" json:"isActive"`
	AwardedCount int           `gorm:"not null;default:0" json:"awardedCount"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func (b *Badge) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}

// UserBadge records that a user holds a badge.
type UserBadge struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_user_badge,priority:1" json:"userId"`
	BadgeID   string    `gorm:"not null;uniqueIndex:idx_user_badge,priority:2" json:"badgeId"`
	Badge     *Badge    `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	AwardedAt time.Time `gorm:"not null" json:"awardedAt"`
}

func (ub *UserBadge) BeforeCreate(tx *gorm.DB) (err error) {
	if ub.ID == "" {
		ub.ID = uuid.New().String()
	}
	if ub.AwardedAt.IsZero() {
		ub.AwardedAt = time.Now()
	}
	return
}
