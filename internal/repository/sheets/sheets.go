// Package sheets implements the repository interfaces against a Google
// spreadsheet used as a makeshift database.
//
// WHY A SPREADSHEET?
// The deployment this serves keeps its records in a sheet the teaching staff
// already edit by hand: one sheet per table, the first row as column names,
// every other row a record. It is schema-less and non-transactional, which
// shapes everything in this package:
//
//   - Columns are resolved BY HEADER NAME on every read. Staff reorder
//     columns freely; a positional read would silently scramble fields.
//   - Every read fetches the whole table. There is no query language, and at
//     classroom scale (hundreds of rows) that is fine.
//   - An update is "read the table, find the row, write the whole row back".
//     The store offers no compare-and-swap, so two concurrent writers to the
//     same row can race. We narrow the window with a re-read of the target
//     row immediately before writing (returning a conflict if it changed),
//     but a residual window remains — last writer wins inside it. Callers
//     that care retry on conflict.
//
// The raw Values API is hidden behind the small rowAPI interface so the
// repository logic is testable with an in-memory fake.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	usersSheet = "Users"
	auditSheet = "Audit"
)

// rowAPI is the minimal surface this package needs from the spreadsheet
// service: range read, range overwrite, row append.
type rowAPI interface {
	get(ctx context.Context, readRange string) ([][]any, error)
	update(ctx context.Context, writeRange string, row []any) error
	append(ctx context.Context, sheet string, row []any) error
}

// Config for the sheets repository.
type Config struct {
	// SpreadsheetID from the sheet URL.
	SpreadsheetID string
	// CredentialsFile is the path to the service-account JSON key. The
	// service account's email must be granted editor access on the sheet.
	CredentialsFile string
	// Timeout bounds every store call. The Sheets transport has no timeout
	// of its own; without this, an unreachable store hangs the request.
	Timeout time.Duration
}

// Repository talks to one spreadsheet holding the Users and Audit sheets.
// It implements repository.UserRepository and repository.AuditLog.
type Repository struct {
	api     rowAPI
	timeout time.Duration
	logger  *slog.Logger
}

// New builds the Sheets client from service-account credentials and wraps it
// in a Repository. Fails fast on unreadable credentials so a misconfigured
// deployment dies at startup, not on the first request.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Repository, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets: reading credentials file: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: parsing service-account credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("sheets: creating sheets service: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Repository{
		api:     &googleRows{svc: svc, spreadsheetID: cfg.SpreadsheetID},
		timeout: timeout,
		logger:  logger,
	}, nil
}

// newWithAPI wires a Repository over an arbitrary rowAPI. Used by tests.
func newWithAPI(api rowAPI, timeout time.Duration, logger *slog.Logger) *Repository {
	return &Repository{api: api, timeout: timeout, logger: logger}
}

// googleRows is the production rowAPI over the Google Sheets Values API.
type googleRows struct {
	svc           *sheets.Service
	spreadsheetID string
}

func (g *googleRows) get(ctx context.Context, readRange string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (g *googleRows) update(ctx context.Context, writeRange string, row []any) error {
	vr := &sheets.ValueRange{Values: [][]any{row}}
	// RAW: store values as-is, don't let the sheet parse "1/2" into a date.
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, writeRange, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (g *googleRows) append(ctx context.Context, sheet string, row []any) error {
	vr := &sheets.ValueRange{Values: [][]any{row}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, sheet, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
