// Package access classifies actors as owners, editors or anonymous users and
// answers per-capability permission checks.
package access

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/internal/store"
)

// Role of an actor.
type Role int

const (
	Anonymous Role = iota
	Editor
	Owner
)

func (r Role) String() string {
	switch r {
	case Owner:
		return "owner"
	case Editor:
		return "editor"
	default:
		return "anonymous"
	}
}

// Capability names a fine-grained staff permission. Values match the
// editor permission names of the store.
type Capability string

const (
	Categories  Capability = store.PermCats
	Products    Capability = store.PermProds
	Photos      Capability = store.PermPhotos
	Links       Capability = store.PermLinks
	Welcome     Capability = store.PermWelcome
	Reservation Capability = store.PermReserve
)

// Capabilities lists every capability in display order.
var Capabilities = []Capability{Categories, Products, Photos, Links, Welcome, Reservation}

// Owners is the immutable set of configured owner ids.
type Owners struct {
	ids map[int64]struct{}
}

// NewOwners copies ids into a set.
func NewOwners(ids []int64) Owners {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Owners{ids: set}
}

// Has reports membership.
func (o Owners) Has(id int64) bool {
	_, ok := o.ids[id]
	return ok
}

// Len returns the number of owners.
func (o Owners) Len() int { return len(o.ids) }

// EditorSource loads editor rows.
type EditorSource interface {
	GetEditor(ctx context.Context, userID int64) (store.Editor, error)
}

// Resolver answers identity and permission questions.
type Resolver struct {
	owners  Owners
	editors EditorSource
}

// NewResolver builds a resolver over the owner set and editor rows.
func NewResolver(owners Owners, editors EditorSource) *Resolver {
	return &Resolver{owners: owners, editors: editors}
}

// IsOwner reports whether actor is a configured owner.
func (r *Resolver) IsOwner(actor int64) bool {
	return r.owners.Has(actor)
}

// Classify returns the actor's role. Store failures are logged and
// classified as Anonymous.
func (r *Resolver) Classify(ctx context.Context, actor int64) Role {
	if r.owners.Has(actor) {
		return Owner
	}
	e, ok := r.editor(ctx, actor)
	if ok && e.Active {
		return Editor
	}
	return Anonymous
}

// IsStaff is true for owners and active editors regardless of their flags.
func (r *Resolver) IsStaff(ctx context.Context, actor int64) bool {
	return r.Classify(ctx, actor) != Anonymous
}

// Can reports whether actor holds capability. Owners hold every capability;
// editors need an active row with the matching flag.
func (r *Resolver) Can(ctx context.Context, actor int64, capability Capability) bool {
	if r.owners.Has(actor) {
		return true
	}
	e, ok := r.editor(ctx, actor)
	if !ok || !e.Active {
		return false
	}
	return e.Has(string(capability))
}

func (r *Resolver) editor(ctx context.Context, actor int64) (store.Editor, bool) {
	if r.editors == nil || actor == 0 {
		return store.Editor{}, false
	}
	e, err := r.editors.GetEditor(ctx, actor)
	switch {
	case err == nil:
		return e, true
	case errors.Is(err, store.ErrNotFound):
		return store.Editor{}, false
	default:
		logger.Warn(ctx, "access", "access.lookup_failed",
			slog.Int64("user_id", actor),
			slog.String("err", err.Error()),
		)
		return store.Editor{}, false
	}
}
