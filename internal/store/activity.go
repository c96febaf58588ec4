// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// activity.go records who changed what through the dashboard. Each entry
// captures the entity, the action (create/update/delete) and the actor.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Activity actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Activity is a single dashboard change.
type Activity struct {
	ID          uuid.UUID
	EntityType  string // "blog", "category", "tag", "user"
	EntityID    string
	EntityTitle string
	Action      string
	ActorID     string
	ActorName   string
	CreatedAt   time.Time
}

// Verb returns the action in the past tense for display.
func (a Activity) Verb() string {
	switch a.Action {
	case ActionCreate:
		return "created"
	case ActionUpdate:
		return "updated"
	case ActionDelete:
		return "deleted"
	}
	return a.Action
}

// ActivityStore handles activity log operations.
type ActivityStore struct {
	db *sql.DB
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Record stores an activity entry.
func (s *ActivityStore) Record(ctx context.Context, a Activity) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, entity_type, entity_id, entity_title, action, actor_id, actor_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.EntityType, a.EntityID, truncate(a.EntityTitle, 200), a.Action, a.ActorID, truncate(a.ActorName, 100))
	if err != nil {
		// Best-effort: the API change already happened.
		slog.Warn("failed to record activity",
			"entity_type", a.EntityType,
			"entity_id", a.EntityID,
			"action", a.Action,
			"error", err,
		)
		return
	}
	slog.Debug("activity recorded",
		"entity_type", a.EntityType,
		"entity_id", a.EntityID,
		"action", a.Action,
	)
}

// Recent returns the newest entries, limited to the specified count.
func (s *ActivityStore) Recent(ctx context.Context, limit int) ([]Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, entity_title, action, actor_id, actor_name, created_at
		FROM activity_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity log: %w", err)
	}
	defer rows.Close()

	var entries []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.EntityType, &a.EntityID, &a.EntityTitle, &a.Action, &a.ActorID, &a.ActorName, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
