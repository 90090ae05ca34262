package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventFileSharedWithYou = "file_shared_with_you"
	EventSharedFileDeleted = "shared_file_deleted"
)

type Event struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	EventTime time.Time       `json:"event_time"`
	Payload   json.RawMessage `json:"payload"`
}

// EventMessage is the envelope stored in the journal and pushed to websocket
// clients.
type EventMessage struct {
	EventType string      `json:"event_type"`
	Payload   interface{} `json:"payload"`
}

func MarshalEvent(eventType string, payload interface{}) ([]byte, error) {
	b, err := json.Marshal(EventMessage{EventType: eventType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return b, nil
}

func (q *Queries) LogEvent(ctx context.Context, userID int64, eventType string, payload interface{}) error {
	eventBytes, err := MarshalEvent(eventType, payload)
	if err != nil {
		return err
	}

	query := `INSERT INTO event_journal (user_id, event_type, payload) VALUES ($1, $2, $3)`
	_, err = q.db.Exec(ctx, query, userID, eventType, eventBytes)
	return err
}

const maxEventBatch = 100

func (q *Queries) GetEventsSince(ctx context.Context, userID int64, sinceID int64) ([]Event, error) {
	query := `
		SELECT id, event_type, event_time, payload
		FROM event_journal
		WHERE user_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3
	`
	rows, err := q.db.Query(ctx, query, userID, sinceID, maxEventBatch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		if err := rows.Scan(&event.ID, &event.EventType, &event.EventTime, &event.Payload); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if events == nil {
		return []Event{}, nil
	}

	return events, nil
}
