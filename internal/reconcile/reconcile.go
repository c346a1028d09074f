// Package reconcile rebuilds the cached values (user counters and reputation,
// like/dislike aggregates) from the rows they are derived from.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"campusvoice/backend/internal/analysis"
	"campusvoice/backend/internal/apperr"
	"campusvoice/backend/internal/config"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/storage"
)

type Store interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListActiveUserIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	CountComplaints(ctx context.Context, submitterID string, status models.ComplaintStatus) (int64, error)
	SetUserCounters(ctx context.Context, userID string, submitted, resolved, reputation int) error

	ListTargetTallies(ctx context.Context, targetType models.TargetType, afterID string, limit int) ([]storage.TargetTally, error)
	CountVotes(ctx context.Context, targetType models.TargetType, targetID string) (models.Tally, error)
	SetTally(ctx context.Context, targetType models.TargetType, targetID string, tally models.Tally) error
	DeleteOrphanVotes(ctx context.Context) (int64, error)
}

type Service struct {
	Storage   Store
	BatchSize int
}

func NewService(s Store) *Service {
	return &Service{Storage: s, BatchSize: config.BackfillBatchSize}
}

// Report counts what one pass looked at and what it had to fix.
type Report struct {
	Users       int   `json:"users"`
	Targets     int   `json:"targets"`
	Corrected   int   `json:"corrected"`
	OrphanVotes int64 `json:"orphanVotes"`
}

func (r *Report) add(o Report) {
	r.Users += o.Users
	r.Targets += o.Targets
	r.Corrected += o.Corrected
	r.OrphanVotes += o.OrphanVotes
}

// User recounts one user's complaint counters and reputation. The boolean
// reports whether the stored values were wrong.
func (s *Service) User(ctx context.Context, userID string) (*models.User, bool, error) {
	user, err := s.Storage.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, apperr.NotFound("user %s not found", userID)
	}
	if err != nil {
		return nil, false, err
	}

	submitted, err := s.Storage.CountComplaints(ctx, userID, "")
	if err != nil {
		return nil, false, fmt.Errorf("count complaints: %w", err)
	}
	resolved, err := s.Storage.CountComplaints(ctx, userID, models.StatusResolved)
	if err != nil {
		return nil, false, fmt.Errorf("count resolved complaints: %w", err)
	}
	rep := analysis.Reputation(int(submitted), int(resolved))

	if user.ComplaintsSubmitted == int(submitted) && user.ComplaintsResolved == int(resolved) && user.Reputation == rep {
		return user, false, nil
	}
	if err := s.Storage.SetUserCounters(ctx, userID, int(submitted), int(resolved), rep); err != nil {
		return nil, false, fmt.Errorf("save counters: %w", err)
	}
	log.Printf("INFO: reconciled user %s: submitted %d->%d, resolved %d->%d, reputation %d->%d",
		userID, user.ComplaintsSubmitted, submitted, user.ComplaintsResolved, resolved, user.Reputation, rep)
	user.ComplaintsSubmitted, user.ComplaintsResolved, user.Reputation = int(submitted), int(resolved), rep
	return user, true, nil
}

// AllUsers runs User for every active user in batches.
func (s *Service) AllUsers(ctx context.Context) (Report, error) {
	var report Report
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ids, err := s.Storage.ListActiveUserIDs(ctx, after, s.batch())
		if err != nil {
			return report, fmt.Errorf("list users: %w", err)
		}
		if len(ids) == 0 {
			return report, nil
		}
		for _, id := range ids {
			report.Users++
			_, changed, err := s.User(ctx, id)
			if err != nil {
				log.Printf("ERROR: reconcile user %s: %v", id, err)
				continue
			}
			if changed {
				report.Corrected++
			}
		}
		after = ids[len(ids)-1]
	}
}

// Tallies drops ledger rows pointing at deleted content, then recounts every
// complaint and comment from the ledger and rewrites the aggregates that drifted.
func (s *Service) Tallies(ctx context.Context) (Report, error) {
	var report Report
	orphans, err := s.Storage.DeleteOrphanVotes(ctx)
	if err != nil {
		return report, fmt.Errorf("delete orphan votes: %w", err)
	}
	report.OrphanVotes = orphans

	for _, tt := range []models.TargetType{models.TargetComplaint, models.TargetComment} {
		r, err := s.tallies(ctx, tt)
		report.add(r)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *Service) tallies(ctx context.Context, tt models.TargetType) (Report, error) {
	var report Report
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rows, err := s.Storage.ListTargetTallies(ctx, tt, after, s.batch())
		if err != nil {
			return report, fmt.Errorf("list %s tallies: %w", tt, err)
		}
		if len(rows) == 0 {
			return report, nil
		}
		for _, row := range rows {
			report.Targets++
			want, err := s.Storage.CountVotes(ctx, tt, row.ID)
			if err != nil {
				return report, fmt.Errorf("count votes for %s %s: %w", tt, row.ID, err)
			}
			if want.Likes == row.Likes && want.Dislikes == row.Dislikes {
				continue
			}
			if err := s.Storage.SetTally(ctx, tt, row.ID, want); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return report, fmt.Errorf("write tally for %s %s: %w", tt, row.ID, err)
			}
			report.Corrected++
		}
		after = rows[len(rows)-1].ID
	}
}

// Everything runs Tallies then AllUsers.
func (s *Service) Everything(ctx context.Context) (Report, error) {
	report, err := s.Tallies(ctx)
	if err != nil {
		return report, err
	}
	users, err := s.AllUsers(ctx)
	report.add(users)
	return report, err
}

func (s *Service) batch() int {
	if s.BatchSize <= 0 {
		return config.BackfillBatchSize
	}
	return s.BatchSize
}

// Alerter is told about passes that corrected something.
type Alerter interface {
	ReconcileFinished(ctx context.Context, r Report)
}

// Sweeper runs Everything on a fixed interval until its context ends.
type Sweeper struct {
	Service  *Service
	Interval time.Duration
	Alerter  Alerter
}

func NewSweeper(s *Service, interval time.Duration, a Alerter) *Sweeper {
	return &Sweeper{Service: s, Interval: interval, Alerter: a}
}

// Run blocks until ctx is done. A non-positive interval disables the sweeper.
func (w *Sweeper) Run(ctx context.Context) {
	if w.Interval <= 0 {
		log.Println("INFO: reconcile sweeper disabled")
		return
	}
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	log.Printf("INFO: reconcile sweeper started, interval %s", w.Interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("INFO: reconcile sweeper stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep performs one pass and logs the outcome.
func (w *Sweeper) Sweep(ctx context.Context) Report {
	report, err := w.Service.Everything(ctx)
	if err != nil {
		log.Printf("ERROR: reconcile sweep: %v", err)
	}
	if report.Corrected > 0 || report.OrphanVotes > 0 {
		log.Printf("INFO: reconcile sweep corrected %d values, removed %d orphan votes", report.Corrected, report.OrphanVotes)
		if w.Alerter != nil {
			w.Alerter.ReconcileFinished(ctx, report)
		}
	}
	return report
}
