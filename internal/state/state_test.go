package state_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/state"
)

type note struct {
	domain.Meta
	Text string `json:"text"`
}

func (n note) WithIdentity(id string, at time.Time) note {
	n.ID = id
	n.CreatedAt = at
	return n
}

// fakeKV: хранилище в памяти с управляемым отказом записи.
type fakeKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failPut error
	puts    int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) PutMany(_ context.Context, entries map[string][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return f.failPut
	}
	f.puts++
	for k, v := range entries {
		f.data[k] = v
	}
	return nil
}

func (f *fakeKV) Ping(context.Context) error { return nil }

type recorder struct {
	renders [][]note
}

func (r *recorder) Render(items []note) {
	r.renders = append(r.renders, items)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newNotes(t *testing.T, kv *fakeKV, r *recorder, observers ...state.Observer) *state.Collection[note] {
	t.Helper()
	var renderer state.Renderer[note]
	if r != nil {
		renderer = r
	}
	return state.NewCollection[note]("notes", kv, renderer, state.Options{
		NewID:     sequentialIDs(),
		Observers: observers,
	})
}

func TestCreateAssignsIdentityPersistsAndRenders(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	r := &recorder{}
	c := newNotes(t, kv, r)

	a, err := c.Create(ctx, note{Text: "a"})
	require.NoError(t, err)
	b, err := c.Create(ctx, note{Text: "b"})
	require.NoError(t, err)

	require.Equal(t, "id-1", a.ID)
	require.Equal(t, "id-2", b.ID)
	require.False(t, a.CreatedAt.IsZero())
	require.Len(t, r.renders, 2)
	require.Equal(t, []note{a, b}, r.renders[1])

	var stored []note
	require.NoError(t, json.Unmarshal(kv.data["notes"], &stored))
	require.Equal(t, []note{a, b}, stored)
}

func TestUpdatePreservesIdentityAndUnspecifiedFields(t *testing.T) {
	ctx := context.Background()
	c := newNotes(t, newFakeKV(), nil)
	created, err := c.Create(ctx, note{Text: "a"})
	require.NoError(t, err)

	updated, found, err := c.Update(ctx, created.ID, func(n note) note {
		n.ID = "hijacked"
		n.Text = "b"
		return n
	})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.Equal(t, "b", updated.Text)

	got, ok := c.Find(created.ID)
	require.True(t, ok)
	require.Equal(t, updated, got)
}

func TestSilentMissDoesNotPersistOrRender(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	r := &recorder{}
	c := newNotes(t, kv, r)

	_, found, err := c.Update(ctx, "missing", func(n note) note { return n })
	require.NoError(t, err)
	require.False(t, found)

	removed, err := c.Remove(ctx, "missing")
	require.NoError(t, err)
	require.False(t, removed)

	require.Zero(t, kv.puts)
	require.Empty(t, r.renders)
}

func TestRemoveAndIdsNeverReused(t *testing.T) {
	ctx := context.Background()
	c := newNotes(t, newFakeKV(), nil)
	a, _ := c.Create(ctx, note{Text: "a"})
	removed, err := c.Remove(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, removed)

	b, _ := c.Create(ctx, note{Text: "b"})
	require.NotEqual(t, a.ID, b.ID)
	_, ok := c.Find(a.ID)
	require.False(t, ok)
	require.Equal(t, 1, c.Len())
}

func TestListIsRestartableAndFiltered(t *testing.T) {
	ctx := context.Background()
	c := newNotes(t, newFakeKV(), nil)
	for _, text := range []string{"a", "bb", "c"} {
		_, err := c.Create(ctx, note{Text: text})
		require.NoError(t, err)
	}

	seq := c.List()
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	require.Equal(t, first, second)
	require.Len(t, first, 3)

	short := slices.Collect(c.List(func(n note) bool { return len(n.Text) == 1 }))
	require.Len(t, short, 2)
	require.Equal(t, "a", short[0].Text)
	require.Equal(t, "c", short[1].Text)
}

func TestPersistFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	r := &recorder{}
	c := newNotes(t, kv, r)
	a, err := c.Create(ctx, note{Text: "a"})
	require.NoError(t, err)

	kv.failPut = errors.New("disk full")
	_, err = c.Create(ctx, note{Text: "b"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "state: persist notes")
	require.ErrorIs(t, err, kv.failPut)

	require.Equal(t, []note{a}, c.Snapshot())
	require.Len(t, r.renders, 1)

	// Стор остаётся рабочим после ошибки.
	kv.failPut = nil
	_, err = c.Create(ctx, note{Text: "c"})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
}

func TestLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	c := newNotes(t, kv, nil)
	_, _ = c.Create(ctx, note{Text: "a"})
	_, _ = c.Create(ctx, note{Text: "b"})

	r := &recorder{}
	reloaded := newNotes(t, kv, r)
	require.NoError(t, reloaded.Load(ctx))
	require.Equal(t, c.Snapshot(), reloaded.Snapshot())
	require.Len(t, r.renders, 1)
}

func TestLoadMissingKeyRendersEmpty(t *testing.T) {
	r := &recorder{}
	c := newNotes(t, newFakeKV(), r)
	require.NoError(t, c.Load(context.Background()))
	require.Equal(t, 0, c.Len())
	require.Len(t, r.renders, 1)
	require.NotNil(t, r.renders[0])
	require.Empty(t, r.renders[0])
}

func TestLoadRejectsCorruptPayload(t *testing.T) {
	kv := newFakeKV()
	kv.data["notes"] = []byte("{not json")
	c := newNotes(t, kv, nil)
	err := c.Load(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "state: decode notes")
}

func TestClearPersistsEmptyArray(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	c := newNotes(t, kv, nil)
	_, _ = c.Create(ctx, note{Text: "a"})
	require.NoError(t, c.Clear(ctx))
	require.Equal(t, "[]", string(kv.data["notes"]))
}

func TestPutInsertsOrReplaces(t *testing.T) {
	ctx := context.Background()
	c := newNotes(t, newFakeKV(), nil)
	require.NoError(t, c.Put(ctx, note{Meta: domain.Meta{ID: "p1"}, Text: "a"}))
	require.NoError(t, c.Put(ctx, note{Meta: domain.Meta{ID: "p1"}, Text: "b"}))
	require.Equal(t, 1, c.Len())
	got, _ := c.Find("p1")
	require.Equal(t, "b", got.Text)
}

func TestObserversReceiveCommittedChanges(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	var changes []state.Change
	c := newNotes(t, kv, nil, state.ObserverFunc(func(ch state.Change) {
		changes = append(changes, ch)
	}))

	a, _ := c.Create(ctx, note{Text: "a"})
	_, _ = c.Remove(ctx, a.ID)
	kv.failPut = errors.New("boom")
	_, _ = c.Create(ctx, note{Text: "b"})

	require.Len(t, changes, 2)
	require.Equal(t, state.OpCreate, changes[0].Op)
	require.Equal(t, 1, changes[0].Size)
	require.Equal(t, state.OpRemove, changes[1].Op)
	require.Equal(t, 0, changes[1].Size)
	require.Equal(t, "notes", changes[1].Collection)
}

func TestTxCommitsSeveralCollectionsAtomically(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	ra, rb := &recorder{}, &recorder{}
	left := state.NewCollection[note]("left", kv, ra, state.Options{NewID: sequentialIDs()})
	right := state.NewCollection[note]("right", kv, rb, state.Options{NewID: sequentialIDs()})

	tx := state.Begin(kv)
	state.Stage(tx, left).Create(note{Text: "l"})
	state.Stage(tx, right).Create(note{Text: "r"})
	require.Equal(t, 0, left.Len(), "staged changes are invisible before commit")
	require.NoError(t, tx.Commit(ctx))

	require.Equal(t, 1, kv.puts)
	require.Equal(t, 1, left.Len())
	require.Equal(t, 1, right.Len())
	require.Len(t, ra.renders, 1)
	require.Len(t, rb.renders, 1)
}

func TestTxRollsBackEveryCollectionOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	ra, rb := &recorder{}, &recorder{}
	left := state.NewCollection[note]("left", kv, ra, state.Options{})
	right := state.NewCollection[note]("right", kv, rb, state.Options{})
	seed, err := left.Create(ctx, note{Text: "seed"})
	require.NoError(t, err)

	kv.failPut = errors.New("unavailable")
	tx := state.Begin(kv)
	state.Stage(tx, left).Update(seed.ID, func(n note) note { n.Text = "changed"; return n })
	state.Stage(tx, right).Create(note{Text: "r"})
	err = tx.Commit(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "left,right")

	got, _ := left.Find(seed.ID)
	require.Equal(t, "seed", got.Text)
	require.Equal(t, 0, right.Len())
	require.Len(t, ra.renders, 1)
	require.Empty(t, rb.renders)
}

func TestTxWithoutChangesIsNoop(t *testing.T) {
	kv := newFakeKV()
	r := &recorder{}
	c := newNotes(t, kv, r)
	tx := state.Begin(kv)
	staged := state.Stage(tx, c)
	require.Same(t, staged, state.Stage(tx, c))
	require.NoError(t, tx.Commit(context.Background()))
	require.Zero(t, kv.puts)
	require.Empty(t, r.renders)
	require.Error(t, tx.Commit(context.Background()))
}

func TestTxRejectsForeignStore(t *testing.T) {
	c := newNotes(t, newFakeKV(), nil)
	tx := state.Begin(newFakeKV())
	state.Stage(tx, c).Create(note{Text: "x"})
	require.ErrorIs(t, tx.Commit(context.Background()), state.ErrForeignStore)
	require.Equal(t, 0, c.Len())
}

func TestNewIDIsTimeOrderedUUID(t *testing.T) {
	a := state.NewID()
	b := state.NewID()
	require.Len(t, a, 36)
	require.NotEqual(t, a, b)
	require.Less(t, a, b)
}
