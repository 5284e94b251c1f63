package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Notification is one line of a user's notification history.
type Notification struct {
	ID      string
	UserID  string
	Text    string
	Read    bool
	Created time.Time
}

type NotificationModelInterface interface {
	Append(userID, text string) error
	Latest(userID string, limit int) ([]Notification, error)
}

type NotificationModel struct {
	DB *sql.DB
}

func (m *NotificationModel) Append(userID, text string) error {
	_, err := m.DB.Exec(`INSERT INTO notifications (id, user_id, text, read, created) VALUES (?, ?, ?, 0, ?)`,
		uuid.NewString(), userID, text, time.Now().UTC())
	return err
}

// Latest returns up to limit notifications, most recent first.
func (m *NotificationModel) Latest(userID string, limit int) ([]Notification, error) {
	rows, err := m.DB.Query(`SELECT id, user_id, text, read, created FROM notifications
		WHERE user_id = ? ORDER BY created DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Text, &n.Read, &n.Created); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
