package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"vitalwatch/internal/dispatch"
	"vitalwatch/internal/models"
)

// Postgres records readings and alerts for audit and resolves the provider
// responsible for a subject. It implements both the dispatch.AlertStore
// and dispatch.IdentityResolver collaborator contracts.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres opens and pings the audit database.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Postgres{db: db}, nil
}

// RecordReading appends one reading to the audit table.
func (p *Postgres) RecordReading(ctx context.Context, r *models.Reading) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO readings (subject_id, metric, value, unit, observed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.SubjectID, string(r.Metric), r.Value, r.Unit, r.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// RecordAlert appends one alert record, mirroring the Alert entity.
func (p *Postgres) RecordAlert(ctx context.Context, a *models.Alert) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO alerts (id, subject_id, metric, value, unit, observed_at,
		                     triggers, severity, recipient_id, title, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.SubjectID, string(a.Metric), a.Value, a.Unit, a.ObservedAt,
		pq.Array(a.Triggers.Names()), string(a.Severity),
		nullString(a.RecipientID), a.Title, a.Message, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// ResolveRecipient looks up the provider assigned to a subject.
func (p *Postgres) ResolveRecipient(ctx context.Context, subjectID string) (string, error) {
	var recipientID sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT assigned_provider_id FROM subjects WHERE id = $1`,
		subjectID,
	).Scan(&recipientID)

	if errors.Is(err, sql.ErrNoRows) {
		return "", dispatch.ErrNoRecipient
	}
	if err != nil {
		return "", fmt.Errorf("resolve recipient: %w", err)
	}
	if !recipientID.Valid || recipientID.String == "" {
		return "", dispatch.ErrNoRecipient
	}

	return recipientID.String, nil
}

// HealthCheck pings the database.
func (p *Postgres) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
