package state

// State tags what a pending continuation expects, e.g. "prod.add.name".
type State string

// StateIdle indicates there is no pending continuation for the user.
const StateIdle State = ""

// Session is a pending continuation: the tag, the entity it targets and any
// values gathered by earlier steps of a multi-step input.
type Session struct {
	State State
	// Target is the primary entity id (product, category, link index...).
	Target int64
	// Sub is a secondary id, e.g. the variant of a product.
	Sub    int64
	Fields map[string]string
}

// Field returns a gathered value or "".
func (s Session) Field(key string) string {
	if s.Fields == nil {
		return ""
	}
	return s.Fields[key]
}

// With returns a copy of the session with key set.
func (s Session) With(key, value string) Session {
	fields := make(map[string]string, len(s.Fields)+1)
	for k, v := range s.Fields {
		fields[k] = v
	}
	fields[key] = value
	s.Fields = fields
	return s
}

// Manager stores continuations keyed by Telegram user id.
type Manager interface {
	// Get returns the pending continuation without consuming it.
	Get(userID int64) (Session, bool)
	// Set arms a continuation, replacing any pending one.
	Set(userID int64, s Session)
	// Take returns and removes the pending continuation atomically.
	Take(userID int64) (Session, bool)
	// Clear drops any pending continuation.
	Clear(userID int64)
	// Len returns the number of users with a pending continuation.
	Len() int
}
