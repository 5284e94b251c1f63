package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IrrigationEvent is one recorded start/stop action. Details is a free-form
// document, stored as JSON.
type IrrigationEvent struct {
	ID      string
	UserID  string
	Kind    string
	Details map[string]any
	Created time.Time
}

type EventModelInterface interface {
	Append(userID, kind string, details map[string]any) (IrrigationEvent, error)
	Latest(userID string, limit int) ([]IrrigationEvent, error)
}

type EventModel struct {
	DB *sql.DB
}

func (m *EventModel) Append(userID, kind string, details map[string]any) (IrrigationEvent, error) {
	ev := IrrigationEvent{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Details: details,
		Created: time.Now().UTC(),
	}
	doc, err := json.Marshal(details)
	if err != nil {
		return IrrigationEvent{}, err
	}
	_, err = m.DB.Exec(`INSERT INTO irrigation_events (id, user_id, kind, details, created) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.Kind, string(doc), ev.Created)
	if err != nil {
		return IrrigationEvent{}, err
	}
	return ev, nil
}

// Latest returns up to limit events, most recent first.
func (m *EventModel) Latest(userID string, limit int) ([]IrrigationEvent, error) {
	rows, err := m.DB.Query(`SELECT id, user_id, kind, details, created FROM irrigation_events
		WHERE user_id = ? ORDER BY created DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IrrigationEvent
	for rows.Next() {
		var ev IrrigationEvent
		var doc string
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Kind, &doc, &ev.Created); err != nil {
			return nil, err
		}
		if doc != "" {
			if err := json.Unmarshal([]byte(doc), &ev.Details); err != nil {
				return nil, err
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
