package store

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS subjects (
	id                   TEXT PRIMARY KEY,
	assigned_provider_id TEXT
);

CREATE TABLE IF NOT EXISTS readings (
	id          BIGSERIAL PRIMARY KEY,
	subject_id  TEXT             NOT NULL,
	metric      TEXT             NOT NULL,
	value       DOUBLE PRECISION NOT NULL,
	unit        TEXT             NOT NULL DEFAULT '',
	observed_at TIMESTAMPTZ      NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_readings_subject_metric
	ON readings (subject_id, metric, observed_at);

CREATE TABLE IF NOT EXISTS alerts (
	id           TEXT PRIMARY KEY,
	subject_id   TEXT             NOT NULL,
	metric       TEXT             NOT NULL,
	value        DOUBLE PRECISION NOT NULL,
	unit         TEXT             NOT NULL DEFAULT '',
	observed_at  TIMESTAMPTZ      NOT NULL,
	triggers     TEXT[]           NOT NULL,
	severity     TEXT             NOT NULL,
	recipient_id TEXT,
	title        TEXT             NOT NULL,
	message      TEXT             NOT NULL,
	created_at   TIMESTAMPTZ      NOT NULL,
	acknowledged BOOLEAN          NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_alerts_subject
	ON alerts (subject_id, created_at);
`

// EnsureSchema creates the audit tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
