package callbacks

import (
	"fmt"
	"sort"
)

type rule[H any] struct {
	pattern Pattern
	handler H
}

// Table is an ordered list of (pattern, handler) pairs evaluated most
// specific first. The zero value is ready to use; it is not safe for
// concurrent registration, only for concurrent lookups after setup.
type Table[H any] struct {
	rules []rule[H]
}

// Add compiles pattern and inserts it at its specificity position. Among
// equally specific patterns registration order is kept.
func (t *Table[H]) Add(pattern string, h H) (Pattern, error) {
	p, err := Compile(pattern)
	if err != nil {
		return Pattern{}, err
	}
	for _, r := range t.rules {
		if r.pattern.raw == p.raw {
			return Pattern{}, fmt.Errorf("callbacks: duplicate pattern %q", pattern)
		}
	}
	t.rules = append(t.rules, rule[H]{pattern: p, handler: h})
	sort.SliceStable(t.rules, func(i, j int) bool {
		return moreSpecific(t.rules[i].pattern, t.rules[j].pattern)
	})
	return p, nil
}

// Lookup returns the first rule matching token.
func (t *Table[H]) Lookup(token string) (H, Pattern, Args, bool) {
	for _, r := range t.rules {
		if args, ok := r.pattern.Match(token); ok {
			return r.handler, r.pattern, args, true
		}
	}
	var zero H
	return zero, Pattern{}, Args{}, false
}

// Patterns lists registered patterns in evaluation order.
func (t *Table[H]) Patterns() []string {
	out := make([]string, len(t.rules))
	for i, r := range t.rules {
		out[i] = r.pattern.raw
	}
	return out
}

// Len returns the number of registered rules.
func (t *Table[H]) Len() int { return len(t.rules) }
