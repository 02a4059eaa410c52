package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/perceptio/backend/internal/domain/participant"
	"github.com/perceptio/backend/internal/domain/survey"
)

// MigrateSource names the flat files to import. Empty or missing paths are
// skipped.
type MigrateSource struct {
	CSVPath  string
	JSONPath string
}

// MigrateReport summarizes an import.
type MigrateReport struct {
	Sessions    int  `json:"sessions" yaml:"sessions"`
	Users       int  `json:"users" yaml:"users"`
	SkippedCSV  bool `json:"skippedCsv" yaml:"skippedCsv"`
	SkippedJSON bool `json:"skippedJson" yaml:"skippedJson"`
	DryRun      bool `json:"dryRun" yaml:"dryRun"`
}

// Migrate copies CSV session records and JSON user aggregates into dst in a
// single transaction. Users are upserted, so rerunning is safe for them;
// sessions are appended again. With dryRun nothing is written.
func Migrate(ctx context.Context, src MigrateSource, dst *SQLiteStore, dryRun bool) (*MigrateReport, error) {
	report := &MigrateReport{DryRun: dryRun}

	records, err := readSourceRecords(ctx, src.CSVPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		report.SkippedCSV = true
	case err != nil:
		return nil, err
	}

	users, err := readSourceUsers(src.JSONPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		report.SkippedJSON = true
	case err != nil:
		return nil, err
	}

	tx, err := dst.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, rec := range records {
		if rec.User == "" {
			rec.User = "unknown"
		}
		if rec.Timestamp.IsZero() {
			rec.Timestamp = now
		}
		if !dryRun {
			if _, err := appendRecord(ctx, tx, rec); err != nil {
				return nil, err
			}
		}
		report.Sessions++
	}

	for _, a := range users {
		if !dryRun {
			if err := upsertUser(ctx, tx, a); err != nil {
				return nil, err
			}
		}
		report.Users++
	}

	if dryRun {
		return report, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit migration: %w", err)
	}
	return report, nil
}

func readSourceRecords(ctx context.Context, path string) ([]survey.SessionRecord, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs, err := ReadCSVRecords(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}

func readSourceUsers(path string) ([]*participant.Aggregate, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	byPseudo, err := LoadUsersFile(path)
	if err != nil {
		return nil, err
	}
	users := make([]*participant.Aggregate, 0, len(byPseudo))
	for _, a := range byPseudo {
		users = append(users, a)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Pseudo < users[j].Pseudo })
	return users, nil
}
