package menu

import (
	"slices"
	"sync"
)

// selections holds the working set of the category picker per user. Entering
// the picker replaces it; "done" commits and drops it.
type selections struct {
	mu     sync.Mutex
	byUser map[int64]selection
}

type selection struct {
	product int64
	cats    map[int64]bool
}

func (s *selections) start(user, product int64, ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byUser == nil {
		s.byUser = make(map[int64]selection)
	}
	sel := selection{product: product, cats: make(map[int64]bool, len(ids))}
	for _, id := range ids {
		sel.cats[id] = true
	}
	s.byUser[user] = sel
}

func (s *selections) active(user, product int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.byUser[user]
	return ok && sel.product == product
}

func (s *selections) toggle(user, product, category int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.byUser[user]
	if !ok || sel.product != product {
		return
	}
	if sel.cats[category] {
		delete(sel.cats, category)
	} else {
		sel.cats[category] = true
	}
}

// ids returns the sorted selection of product.
func (s *selections) ids(user, product int64) ([]int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.byUser[user]
	if !ok || sel.product != product {
		return nil, false
	}
	out := make([]int64, 0, len(sel.cats))
	for id := range sel.cats {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, true
}

func (s *selections) drop(user, product int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel, ok := s.byUser[user]; ok && sel.product == product {
		delete(s.byUser, user)
	}
}
