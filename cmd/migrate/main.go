// Command migrate is the one-off tool that replaces legacy plaintext password
// cells with bcrypt hashes.
//
// Historically the Users sheet stored passwords in the clear. The gateway now
// only ever bcrypt-compares, so every legacy row must be migrated once. The
// tool is idempotent: rows whose password cell already looks like a bcrypt
// hash are skipped, so re-running it is safe.
//
// For every migrated row it appends a best-effort "password_migrated" audit
// entry. An audit failure is logged and never aborts the row's migration —
// the hash write is the primary operation.
//
// Usage:
//
//	SHEET_ID=... GOOGLE_CREDENTIALS_FILE=... JWT_SECRET=... go run ./cmd/migrate
//
// Pass -dry-run to report what would change without writing.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/sakif/classroom-portal/internal/auth"
	"github.com/sakif/classroom-portal/internal/config"
	sheetsRepo "github.com/sakif/classroom-portal/internal/repository/sheets"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would be migrated without writing")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.DemoMode() {
		logger.Error("migration requires store configuration (SHEET_ID and GOOGLE_CREDENTIALS_FILE)")
		os.Exit(1)
	}

	ctx := context.Background()

	repo, err := sheetsRepo.New(ctx, sheetsRepo.Config{
		SpreadsheetID:   cfg.SheetID,
		CredentialsFile: cfg.GoogleCredentialsFile,
		Timeout:         cfg.StoreTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to create sheets repository", slog.String("error", err.Error()))
		os.Exit(1)
	}

	passwords := auth.NewPasswordService()

	users, err := repo.FindAll(ctx)
	if err != nil {
		logger.Error("failed to read users table", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var migrated, skipped, failed int
	for _, u := range users {
		if u.PasswordHash == "" || auth.IsBcryptHash(u.PasswordHash) {
			skipped++
			continue
		}

		if *dryRun {
			logger.Info("would migrate", slog.String("userID", u.UserID))
			migrated++
			continue
		}

		hash, err := passwords.Hash(u.PasswordHash)
		if err != nil {
			logger.Error("hashing failed", slog.String("userID", u.UserID), slog.String("error", err.Error()))
			failed++
			continue
		}

		if err := repo.MigratePasswordHash(ctx, u.UserID, hash); err != nil {
			logger.Error("migration write failed", slog.String("userID", u.UserID), slog.String("error", err.Error()))
			failed++
			continue
		}
		migrated++
		logger.Info("migrated", slog.String("userID", u.UserID))

		// Best-effort audit trail; never blocks the migration itself.
		if err := repo.Append(ctx, u.UserID, "password_migrated"); err != nil {
			logger.Warn("audit append failed", slog.String("userID", u.UserID), slog.String("error", err.Error()))
		}
	}

	logger.Info("migration complete",
		slog.Int("migrated", migrated),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)
	if failed > 0 {
		os.Exit(1)
	}
}
