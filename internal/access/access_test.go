package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/catalogbot/internal/store"
)

type fakeEditors struct {
	rows map[int64]store.Editor
	err  error
}

func (f fakeEditors) GetEditor(_ context.Context, id int64) (store.Editor, error) {
	if f.err != nil {
		return store.Editor{}, f.err
	}
	e, ok := f.rows[id]
	if !ok {
		return store.Editor{}, store.ErrNotFound
	}
	return e, nil
}

func TestClassifyAndCan(t *testing.T) {
	ctx := context.Background()
	src := fakeEditors{rows: map[int64]store.Editor{
		10: {UserID: 10, Active: true, PermCats: true},
		11: {UserID: 11, Active: false, PermCats: true, PermProds: true},
	}}
	r := NewResolver(NewOwners([]int64{1, 2}), src)

	assert.Equal(t, Owner, r.Classify(ctx, 1))
	assert.Equal(t, Editor, r.Classify(ctx, 10))
	assert.Equal(t, Anonymous, r.Classify(ctx, 11))
	assert.Equal(t, Anonymous, r.Classify(ctx, 99))

	for _, c := range Capabilities {
		assert.True(t, r.Can(ctx, 2, c), c)
	}
	assert.True(t, r.Can(ctx, 10, Categories))
	assert.False(t, r.Can(ctx, 10, Products))
	assert.False(t, r.Can(ctx, 11, Categories), "suspended editor")

	// staff gate ignores per-capability flags
	assert.True(t, r.IsStaff(ctx, 10))
	assert.False(t, r.IsStaff(ctx, 11))
	assert.True(t, r.IsOwner(1))
	assert.False(t, r.IsOwner(10))
}

func TestStoreErrorFailsClosed(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(NewOwners([]int64{1}), fakeEditors{err: errors.New("db down")})

	assert.Equal(t, Anonymous, r.Classify(ctx, 10))
	assert.False(t, r.Can(ctx, 10, Links))
	assert.Equal(t, Owner, r.Classify(ctx, 1))
}

func TestOwnersCopiesInput(t *testing.T) {
	ids := []int64{5}
	o := NewOwners(ids)
	ids[0] = 6
	assert.True(t, o.Has(5))
	assert.False(t, o.Has(6))
	assert.Equal(t, 1, o.Len())
	assert.Equal(t, "owner", Owner.String())
}
