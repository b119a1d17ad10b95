package store

import "context"

// AddScreenRecord remembers a displayed message under a chat scope.
func (s *Store) AddScreenRecord(ctx context.Context, chatID int64, scope string, messageID int) error {
	_, err := s.Exec(ctx, "INSERT INTO screen_messages(chat_id, scope, message_id) VALUES(?, ?, ?)",
		chatID, scope, messageID)
	return err
}

// ScreenRecords lists the records of a chat scope in insertion order; an
// empty scope lists every scope of the chat.
func (s *Store) ScreenRecords(ctx context.Context, chatID int64, scope string) ([]ScreenRecord, error) {
	var out []ScreenRecord
	err := s.Query(ctx, &out, `SELECT id, chat_id, scope, message_id FROM screen_messages
		WHERE chat_id = ? AND (? = '' OR scope = ?) ORDER BY id`, chatID, scope, scope)
	return out, err
}

// DeleteScreenRecords removes records by id.
func (s *Store) DeleteScreenRecords(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.In(ctx, "DELETE FROM screen_messages WHERE id IN (?)", ids)
	return err
}

// In expands slice arguments of an IN (?) clause and executes the statement.
func (s *Store) In(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := s.with(func(c Conn) error {
		var err error
		n, err = c.In(ctx, query, args...)
		return err
	})
	return n, err
}
