package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/citizenwatch/roadwatch-server/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS reports (
		id          TEXT PRIMARY KEY,
		issue_type  TEXT NOT NULL,
		description TEXT NOT NULL,
		location    TEXT NOT NULL,
		photo_url   TEXT,
		status      TEXT NOT NULL CHECK (status IN ('Reported', 'In Progress', 'Completed')),
		created_at  TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS status_changes (
		id          BIGSERIAL PRIMARY KEY,
		report_id   TEXT NOT NULL REFERENCES reports(id),
		from_status TEXT NOT NULL,
		to_status   TEXT NOT NULL,
		changed_at  TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS status_changes_report_idx ON status_changes (report_id, changed_at DESC);
`

// Postgres stores reports in a PostgreSQL database through pgx.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres wraps an open pool. Call EnsureSchema before first use on a
// fresh database.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the reports and status_changes tables if missing
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, nr models.NewReport) (models.Report, error) {
	r := models.Report{
		ID:          uuid.NewString(),
		IssueType:   nr.IssueType,
		Description: nr.Description,
		Location:    nr.Location,
		PhotoURL:    nr.PhotoURL,
		Status:      nr.Status,
		CreatedAt:   nr.CreatedAt,
	}

	query := `
		INSERT INTO reports (id, issue_type, description, location, photo_url, status, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
	`

	_, err := p.db.Exec(ctx, query,
		r.ID, string(r.IssueType), r.Description, r.Location,
		r.PhotoURL, string(r.Status), r.CreatedAt,
	)
	if err != nil {
		return models.Report{}, fmt.Errorf("insert report: %w", err)
	}

	return r, nil
}

func (p *Postgres) List(ctx context.Context) ([]models.Report, error) {
	query := `
		SELECT id, issue_type, description, location, COALESCE(photo_url, ''), status, created_at
		FROM reports
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}

	return reports, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*models.Report, error) {
	query := `
		SELECT id, issue_type, description, location, COALESCE(photo_url, ''), status, created_at
		FROM reports WHERE id = $1
	`

	r, err := scanReport(p.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &r, nil
}

func (p *Postgres) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	tag, err := p.db.Exec(ctx, `UPDATE reports SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AppendStatusChange(ctx context.Context, c models.StatusChange) error {
	query := `
		INSERT INTO status_changes (report_id, from_status, to_status, changed_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := p.db.Exec(ctx, query, c.ReportID, string(c.From), string(c.To), c.ChangedAt)
	if err != nil {
		return fmt.Errorf("insert status change: %w", err)
	}
	return nil
}

func (p *Postgres) ListStatusChanges(ctx context.Context, reportID string) ([]models.StatusChange, error) {
	query := `
		SELECT report_id, from_status, to_status, changed_at
		FROM status_changes
		WHERE report_id = $1
		ORDER BY changed_at DESC, id DESC
	`

	rows, err := p.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("query status changes: %w", err)
	}
	defer rows.Close()

	changes := make([]models.StatusChange, 0)
	for rows.Next() {
		var c models.StatusChange
		var from, to string
		if err := rows.Scan(&c.ReportID, &from, &to, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		c.From, c.To = models.Status(from), models.Status(to)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

func scanReport(row pgx.Row) (models.Report, error) {
	var r models.Report
	var issueType, status string
	err := row.Scan(&r.ID, &issueType, &r.Description, &r.Location, &r.PhotoURL, &status, &r.CreatedAt)
	r.IssueType, r.Status = models.IssueType(issueType), models.Status(status)
	return r, err
}
