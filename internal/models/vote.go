package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TargetType string

const (
	TargetComplaint TargetType = "complaint"
	TargetComment   TargetType = "comment"
)

func ParseTargetType(s string) (TargetType, bool) {
	switch t := TargetType(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetComplaint, TargetComment:
		return t, true
	}
	return "", false
}

type VoteType string

const (
	VoteLike    VoteType = "like"
	VoteDislike VoteType = "dislike"
)

// ParseVoteType normalizes the vote vocabulary. The ledger only stores
// like/dislike; clients still sending upvote/downvote are translated here.
func ParseVoteType(s string) (VoteType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "like", "upvote", "up":
		return VoteLike, true
	case "dislike", "downvote", "down":
		return VoteDislike, true
	}
	return "", false
}

// Vote is one row of the ledger. At most one row exists per
// (user, target type, target id).
type Vote struct {
	ID         string     `gorm:"primaryKey" json:"id"`
	UserID     string     `gorm:"not null;uniqueIndex:idx_vote_identity,priority:1" json:"userId"`
	TargetType TargetType `gorm:"type:varchar(20);not null;uniqueIndex:idx_vote_identity,priority:2;index:idx_vote_target,priority:1" json:"targetType"`
	TargetID   string     `gorm:"not null;uniqueIndex:idx_vote_identity,priority:3;index:idx_vote_target,priority:2" json:"targetId"`
	VoteType   VoteType   `gorm:"type:varchar(10);not null" json:"voteType"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return
}

// Tally is the aggregate of ledger rows for one target.
type Tally struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}
