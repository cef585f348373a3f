package store

import (
	"context"
	"fmt"

	"weblogd/internal/models"
)

const defaultEventListLimit = 100

// LogEvent appends one audit event.
func (s *Store) LogEvent(ctx context.Context, event models.Event) error {
	if event.Type == "" {
		event.Type = models.EventInformation
	}
	if event.Source == "" {
		return fmt.Errorf("event source is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (type, source, code, description, user_id, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(event.Type), event.Source, event.Code, event.Description, event.UserID, event.IPAddress, dbFormatTime(event.CreatedAt))
	return err
}

// ListEvents returns the newest events first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = defaultEventListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, source, code, description, user_id, ip_address, created_at
		FROM events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		var event models.Event
		var eventType, createdAt string
		if err := rows.Scan(&event.ID, &eventType, &event.Source, &event.Code, &event.Description, &event.UserID,
			&event.IPAddress, &createdAt); err != nil {
			return nil, err
		}
		event.Type = models.EventType(eventType)
		if event.CreatedAt, err = dbParseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
