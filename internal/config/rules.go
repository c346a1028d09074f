package config

const (
	// Reputation
	ComplaintSubmittedPoints = 5
	ComplaintResolvedPoints  = 20

	// Badges
	HelpfulCommentLikes = 5
	BackfillBatchSize   = 100

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100

	// Content limits
	MaxTitleLength   = 200
	MaxContentLength = 5000
	MaxAttachments   = 5
)

var ReputationWeights = map[string]int{
	"complaint_submitted": ComplaintSubmittedPoints,
	"complaint_resolved":  ComplaintResolvedPoints,
}

// BadgeSeed is a badge definition shipped with the application and inserted by
// `admin seed-badges` when missing.
type BadgeSeed struct {
	Name          string
	Description   string
	Icon          string
	CriteriaType  string
	Threshold     int
	TimeFrameDays int
	Rarity        string
}

var DefaultBadges = []BadgeSeed{
	{Name: "First Voice", Description: "Submitted your first complaint", Icon: "megaphone", CriteriaType: "complaints_submitted", Threshold: 1, Rarity: "common"},
	{Name: "Campus Watchdog", Description: "Submitted 10 complaints", Icon: "eye", CriteriaType: "complaints_submitted", Threshold: 10, Rarity: "rare"},
	{Name: "Problem Solver", Description: "5 of your complaints were resolved", Icon: "check-circle", CriteriaType: "complaints_resolved", Threshold: 5, Rarity: "epic"},
	{Name: "Conversation Starter", Description: "Posted 10 comments", Icon: "message-circle", CriteriaType: "comments_made", Threshold: 10, Rarity: "common"},
	{Name: "Helpful Hand", Description: "3 comments with at least 5 likes", Icon: "thumbs-up", CriteriaType: "helpful_comments", Threshold: 3, Rarity: "rare"},
	{Name: "Crowd Favourite", Description: "Received 50 votes on your content", Icon: "star", CriteriaType: "votes_received", Threshold: 50, Rarity: "epic"},
	{Name: "Trending", Description: "Received 20 votes within a week", Icon: "trending-up", CriteriaType: "votes_received", Threshold: 20, TimeFrameDays: 7, Rarity: "rare"},
	{Name: "Veteran", Description: "Active for a full year", Icon: "calendar", CriteriaType: "days_active", Threshold: 365, Rarity: "legendary"},
	{Name: "Student Council Pick", Description: "Recognised by the administration", Icon: "award", CriteriaType: "admin_approved", Threshold: 1, Rarity: "legendary"},
}

// PageWindow turns a 1-based page and a requested size into offset/limit,
// applying the default and maximum page sizes.
func PageWindow(page, size int) (offset, limit int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * size, size
}
