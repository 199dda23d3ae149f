package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

const uniqueViolationCode = "23505"

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	report_id TEXT NOT NULL,
	image TEXT NOT NULL,
	class_label TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	user_role TEXT NOT NULL,
	report_text TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reports_report_id ON reports(report_id);
CREATE INDEX IF NOT EXISTS idx_reports_owner_created ON reports(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) error {
	tagsJSON, err := json.Marshal(report.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO reports (
	id, user_id, report_id, image, class_label, confidence, tags, status, user_role, report_text, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		report.ID, report.UserID, report.ReportID, report.Image, report.ClassLabel, report.Confidence,
		tagsJSON, string(report.Status), string(report.UserRole), report.ReportText, "", report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrConflict, "insert report", err)
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

const reportColumns = `id, user_id, report_id, image, class_label, confidence, tags, status, user_role, report_text, created_at, updated_at`

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+reportColumns+`
FROM reports
WHERE id = $1
`, id)
	return scanReportRow(row, id)
}

func (r *ReportRepository) GetByReportID(ctx context.Context, reportID string) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+reportColumns+`
FROM reports
WHERE report_id = $1
`, reportID)
	return scanReportRow(row, reportID)
}

func (r *ReportRepository) GetOwned(ctx context.Context, userID, reportID string) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+reportColumns+`
FROM reports
WHERE user_id = $1 AND report_id = $2
`, userID, reportID)
	return scanReportRow(row, reportID)
}

func (r *ReportRepository) ListByOwner(ctx context.Context, userID string) ([]domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+reportColumns+`
FROM reports
WHERE user_id = $1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

// Complete applies pending -> completed. The status guard makes the terminal
// transition single-shot and turns a delete-during-analysis into a zero-row
// match instead of a resurrected record.
func (r *ReportRepository) Complete(ctx context.Context, id string, result domain.AnalysisResult, confidence float64, tags []string, reportText string) (bool, error) {
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return false, fmt.Errorf("marshal tags: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE reports
SET status = $2, class_label = $3, confidence = $4, tags = $5, report_text = $6, updated_at = $7
WHERE id = $1 AND status = $8
`, id, string(domain.StatusCompleted), result.Caption, confidence, tagsJSON, reportText,
		time.Now().UTC(), string(domain.StatusPending))
	if err != nil {
		return false, fmt.Errorf("complete report: %w", err)
	}
	return matchedOneRow(res, "complete report")
}

// Fail applies pending -> error with the diagnostic fields the original
// protocol exposes on a failed analysis.
func (r *ReportRepository) Fail(ctx context.Context, id, reportText, errMessage string) (bool, error) {
	tagsJSON, err := json.Marshal([]string{domain.ErrorClassLabel})
	if err != nil {
		return false, fmt.Errorf("marshal tags: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE reports
SET status = $2, class_label = $3, confidence = 0, tags = $4, report_text = $5, error_message = $6, updated_at = $7
WHERE id = $1 AND status = $8
`, id, string(domain.StatusError), domain.ErrorClassLabel, tagsJSON, reportText, errMessage,
		time.Now().UTC(), string(domain.StatusPending))
	if err != nil {
		return false, fmt.Errorf("fail report: %w", err)
	}
	return matchedOneRow(res, "fail report")
}

func (r *ReportRepository) SaveReportText(ctx context.Context, id, reportText string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE reports
SET report_text = $2, updated_at = $3
WHERE id = $1 AND report_text = ''
`, id, reportText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save report text: %w", err)
	}
	return nil
}

func (r *ReportRepository) Delete(ctx context.Context, userID, reportID string) error {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM reports
WHERE user_id = $1 AND report_id = $2
`, userID, reportID)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	matched, err := matchedOneRow(res, "delete report")
	if err != nil {
		return err
	}
	if !matched {
		return domain.WrapError(domain.ErrReportNotFound, "delete report",
			fmt.Errorf("report_id=%s", reportID))
	}
	return nil
}

type reportScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(s reportScanner) (domain.Report, error) {
	var report domain.Report
	var tagsRaw []byte
	var status, role string

	err := s.Scan(
		&report.ID, &report.UserID, &report.ReportID, &report.Image, &report.ClassLabel,
		&report.Confidence, &tagsRaw, &status, &role, &report.ReportText,
		&report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		return domain.Report{}, err
	}
	if err := json.Unmarshal(tagsRaw, &report.Tags); err != nil {
		return domain.Report{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	if report.Tags == nil {
		report.Tags = []string{}
	}
	report.Status = domain.ReportStatus(status)
	report.UserRole = domain.Role(role)
	return report, nil
}

func scanReportRow(row *sql.Row, key string) (*domain.Report, error) {
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrReportNotFound, "get report",
				fmt.Errorf("key=%s", key))
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	return &report, nil
}

func matchedOneRow(res sql.Result, operation string) (bool, error) {
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", operation, err)
	}
	return rows > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
