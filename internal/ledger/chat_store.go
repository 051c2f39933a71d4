package ledger

import (
	"context"
	"time"
)

type ChatMessageRecord struct {
	SessionID   string    `json:"session_id"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
	Timestamp   time.Time `json:"timestamp"`
}

func (s *Store) AppendChatMessage(ctx context.Context, rec ChatMessageRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO chat_messages(session_id, user_message, ai_response, ts)
		 VALUES (?, ?, ?, ?)`,
		rec.SessionID, rec.UserMessage, rec.AIResponse,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// ListChatMessages returns up to limit messages for a session in
// chronological order.
func (s *Store) ListChatMessages(ctx context.Context, sessionID string, limit int) ([]ChatMessageRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT session_id, user_message, ai_response, ts FROM
		   (SELECT session_id, user_message, ai_response, ts, id
		      FROM chat_messages WHERE session_id=?
		      ORDER BY id DESC LIMIT ?)
		 ORDER BY id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ChatMessageRecord{}
	for rows.Next() {
		var rec ChatMessageRecord
		var ts string
		if err := rows.Scan(&rec.SessionID, &rec.UserMessage, &rec.AIResponse, &ts); err != nil {
			return nil, err
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}
