package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"campusvoice/backend/internal/api/handler"
	"campusvoice/backend/internal/badge"
	"campusvoice/backend/internal/complaint"
	"campusvoice/backend/internal/config"
	"campusvoice/backend/internal/localization"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/notify"
	"campusvoice/backend/internal/reconcile"
	"campusvoice/backend/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  promote <email>                 make the user an administrator
  seed-badges                     insert the bundled badge definitions that are missing
  award-badges [user_id]          evaluate every badge for one user, or backfill all users
  grant-badge <user_id> <badge>   grant a badge by id or name (admin_approved badges)
  reconcile                       rebuild user counters and vote tallies from source rows
  recount-votes                   rebuild vote tallies only
  set-status <complaint_id> <status>
  token <email>                   print a bearer token for the user`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	emitter := notify.NewEmitter(storageSvc, localization.Default(), cfg.DefaultLang)
	awarder := badge.NewAwarder(storageSvc, emitter)
	ctx := context.Background()

	command, args := os.Args[1], os.Args[2:]

	switch command {
	case "promote":
		need(args, 1, "admin promote <email>")
		if err := promote(ctx, storageSvc, args[0]); err != nil {
			log.Fatalf("Error promoting user: %v", err)
		}
		fmt.Printf("User %s is now an admin.\n", args[0])

	case "seed-badges":
		n, err := awarder.Seed(ctx, config.DefaultBadges)
		if err != nil {
			log.Fatalf("Error seeding badges: %v", err)
		}
		fmt.Printf("Created %d badge definitions.\n", n)

	case "award-badges":
		if len(args) == 1 {
			awarded, err := awarder.EvaluateAll(ctx, args[0])
			if err != nil {
				log.Fatalf("Error awarding badges: %v", err)
			}
			fmt.Printf("Awarded %d badges to %s.\n", len(awarded), args[0])
			return
		}
		report, err := awarder.Backfill(ctx)
		if err != nil {
			log.Fatalf("Error backfilling badges: %v", err)
		}
		fmt.Printf("Checked %d users, awarded %d badges, %d users failed.\n", report.Users, report.Awarded, report.Failed)

	case "grant-badge":
		need(args, 2, "admin grant-badge <user_id> <badge_id|badge_name>")
		b, err := grantBadge(ctx, storageSvc, awarder, args[0], args[1])
		if err != nil {
			log.Fatalf("Error granting badge: %v", err)
		}
		fmt.Printf("Badge %q granted to %s.\n", b.Name, args[0])

	case "reconcile":
		report, err := reconcile.NewService(storageSvc).Everything(ctx)
		if err != nil {
			log.Fatalf("Error reconciling: %v", err)
		}
		printReport(report)

	case "recount-votes":
		report, err := reconcile.NewService(storageSvc).Tallies(ctx)
		if err != nil {
			log.Fatalf("Error recounting votes: %v", err)
		}
		printReport(report)

	case "set-status":
		need(args, 2, "admin set-status <complaint_id> <status>")
		svc := complaint.NewService(storageSvc, emitter, awarder, nil)
		c, err := svc.UpdateStatus(ctx, models.Principal{Role: models.RoleAdmin}, args[0], args[1])
		if err != nil {
			log.Fatalf("Error changing status: %v", err)
		}
		fmt.Printf("Complaint %s is now %s.\n", c.ID, c.Status)

	case "token":
		need(args, 1, "admin token <email>")
		user, err := storageSvc.GetUserByEmail(ctx, args[0])
		if err != nil {
			log.Fatalf("Error loading user: %v", err)
		}
		token, err := handler.NewTokens(cfg.JWTSecret, cfg.JWTTTL).Issue(user)
		if err != nil {
			log.Fatalf("Error issuing token: %v", err)
		}
		fmt.Println(token)

	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func need(args []string, n int, form string) {
	if len(args) != n {
		fmt.Println("Usage: " + form)
		os.Exit(1)
	}
}

func promote(ctx context.Context, s storage.Storage, email string) error {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	user.Role = models.RoleAdmin
	return s.UpdateUser(ctx, user)
}

// grantBadge accepts either a badge id or its unique name.
func grantBadge(ctx context.Context, s storage.Storage, a *badge.Awarder, userID, ref string) (*models.Badge, error) {
	b, err := s.GetBadgeByName(ctx, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return a.Grant(ctx, userID, ref)
	}
	if err != nil {
		return nil, err
	}
	return a.Grant(ctx, userID, b.ID)
}

func printReport(r reconcile.Report) {
	fmt.Printf("Users checked: %d\nTargets checked: %d\nValues corrected: %d\nOrphan votes removed: %d\n",
		r.Users, r.Targets, r.Corrected, r.OrphanVotes)
}
