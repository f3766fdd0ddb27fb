// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// activity.go records ad lifecycle events in the database for audit and
// debugging. Each entry captures which ad changed, who changed it and the
// status and version it ended in.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"masterannonce/internal/models"
)

// ActivityStore handles the annonce activity log.
type ActivityStore struct {
	db *sql.DB
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Notify records a lifecycle event. Failures are logged, never returned.
func (s *ActivityStore) Notify(ctx context.Context, a models.Activity) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO annonce_activity (event_type, annonce_id, actor_id, status, version, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.Type, a.AnnonceID, a.ActorID, a.Status, a.Version, a.OccurredAt)
	if err != nil {
		// Best-effort: the mutation has already been committed.
		slog.Warn("failed to log annonce activity",
			"type", a.Type,
			"annonce_id", a.AnnonceID,
			"error", err,
		)
		return
	}
	slog.Debug("annonce activity logged",
		"type", a.Type,
		"annonce_id", a.AnnonceID,
		"version", a.Version,
	)
}

// Recent returns the most recent activity entries, newest first.
func (s *ActivityStore) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, annonce_id, actor_id, status, version, occurred_at
		FROM annonce_activity
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query annonce activity: %w", err)
	}
	defer rows.Close()

	entries := []models.Activity{}
	for rows.Next() {
		var e models.Activity
		if err := rows.Scan(&e.ID, &e.Type, &e.AnnonceID, &e.ActorID, &e.Status, &e.Version, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan annonce activity: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
