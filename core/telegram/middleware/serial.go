package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// KeyedMutex hands out one mutex per key and forgets it when unused.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the lock for key and returns its release func.
func (k *KeyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[int64]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// SerializeChats runs updates of the same chat one at a time. Screen
// bookkeeping for a chat relies on this ordering.
func SerializeChats() tele.MiddlewareFunc {
	var locks KeyedMutex
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				return next(c)
			}
			unlock := locks.Lock(chat.ID)
			defer unlock()
			return next(c)
		}
	}
}
