// Package store persists check reports in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/resilience"
)

// Migrations holds the schema, for postgres.Client.Migrate(Migrations,
// "migrations").
//
//go:embed migrations/*.sql
var Migrations embed.FS

type ReportStore struct {
	db     *sql.DB
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func New(db *sql.DB) *ReportStore {
	return &ReportStore{
		db: db,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			RetryIf:      retryable,
		},
		logger: slog.Default().With("component", "report-store"),
	}
}

// Save inserts a report and returns its id. Transient failures are retried.
func (s *ReportStore) Save(ctx context.Context, resp *proto.CheckResponse) (int64, error) {
	diags, err := json.Marshal(resp.Diagnostics)
	if err != nil {
		return 0, fmt.Errorf("marshaling diagnostics: %w", err)
	}
	requestID := sql.NullString{String: logger.RequestID(ctx), Valid: logger.RequestID(ctx) != ""}

	var id int64
	err = resilience.Retry(ctx, "save report", s.retry, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx,
			`INSERT INTO style_reports (title, rule_set_version, units, errors, warnings, diagnostics, request_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			resp.Title, resp.RuleSetVersion, resp.Units, resp.Errors, resp.Warnings, diags, requestID,
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("inserting report: %w", err)
	}
	s.logger.Debug("report saved", "id", id, "errors", resp.Errors, "warnings", resp.Warnings)
	return id, nil
}

// Get returns a stored report with its diagnostics.
func (s *ReportStore) Get(ctx context.Context, id int64) (*proto.CheckResponse, error) {
	var (
		resp  = &proto.CheckResponse{ReportID: id}
		diags []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT title, rule_set_version, units, errors, warnings, diagnostics
		 FROM style_reports WHERE id = $1`, id,
	).Scan(&resp.Title, &resp.RuleSetVersion, &resp.Units, &resp.Errors, &resp.Warnings, &diags)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "report %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying report %d: %w", id, err)
	}
	if err := json.Unmarshal(diags, &resp.Diagnostics); err != nil {
		return nil, fmt.Errorf("decoding diagnostics of report %d: %w", id, err)
	}
	return resp, nil
}

// List returns report summaries, newest first.
func (s *ReportStore) List(ctx context.Context, page proto.Pagination) ([]proto.ReportSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, rule_set_version, units, errors, warnings, created_at
		 FROM style_reports ORDER BY id DESC LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var out []proto.ReportSummary
	for rows.Next() {
		var (
			r       proto.ReportSummary
			created time.Time
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.RuleSetVersion, &r.Units, &r.Errors, &r.Warnings, &created); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		r.CreatedAt = created.Unix()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report rows: %w", err)
	}
	return out, nil
}

func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
