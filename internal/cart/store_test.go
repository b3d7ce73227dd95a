package cart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/gusto/internal/cart"
	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/notice"
	"github.com/vladislavdragonenkov/gusto/internal/schedule"
	"github.com/vladislavdragonenkov/gusto/internal/state"
	"github.com/vladislavdragonenkov/gusto/internal/storage/memory"
)

type summaryRecorder struct {
	summaries []cart.Summary
}

func (r *summaryRecorder) RenderCart(s cart.Summary) {
	r.summaries = append(r.summaries, s)
}

func (r *summaryRecorder) last() cart.Summary {
	return r.summaries[len(r.summaries)-1]
}

type failingKV struct {
	*memory.KeyValueStore
	fail bool
}

func (f *failingKV) PutMany(ctx context.Context, entries map[string][]byte) error {
	if f.fail {
		return errors.New("quota exceeded")
	}
	return f.KeyValueStore.PutMany(ctx, entries)
}

type fixture struct {
	store    *cart.Store
	kv       *failingKV
	clock    *schedule.Manual
	board    *notice.Board
	rendered *summaryRecorder
}

func newFixture(t *testing.T, cfg cart.Config) *fixture {
	t.Helper()
	clock := schedule.NewManual()
	kv := &failingKV{KeyValueStore: memory.NewKeyValueStore()}
	board := notice.NewBoard(clock, notice.DefaultDuration, nil)
	rendered := &summaryRecorder{}
	store := cart.NewStore(kv, rendered, board, cfg, state.Options{}, cart.WithScheduler(clock))
	require.NoError(t, store.Load(context.Background()))
	return &fixture{store: store, kv: kv, clock: clock, board: board, rendered: rendered}
}

var (
	pastel = domain.Product{ID: "10", Name: "Pastel de Queijo", Price: domain.MoneyFromReais(12, 50)}
	acai   = domain.Product{ID: "5", Name: "Combo Açaí Duplo", Price: domain.MoneyFromReais(35, 90)}
)

func TestAddItemIncrementsExistingLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cart.Config{})

	_, err := f.store.AddItem(ctx, pastel)
	require.NoError(t, err)
	line, err := f.store.AddItem(ctx, pastel)
	require.NoError(t, err)
	require.Equal(t, 2, line.Quantity)

	lines := f.store.Lines()
	require.Len(t, lines, 1)
	require.Equal(t, 2, f.store.TotalItems())
	require.Equal(t, domain.MoneyFromReais(25, 0), f.store.Subtotal())

	toast, ok := f.board.Current()
	require.True(t, ok)
	require.Equal(t, "Pastel de Queijo adicionado ao carrinho!", toast.Message)
}

func TestRenderAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cart.Config{})
	require.Len(t, f.rendered.summaries, 1, "load renders the empty cart")

	_, _ = f.store.AddItem(ctx, pastel)
	_, _ = f.store.AddItem(ctx, acai)
	_, _ = f.store.UpdateQuantity(ctx, pastel.ID, 3)
	require.Len(t, f.rendered.summaries, 4)

	last := f.rendered.last()
	require.Equal(t, 4, last.TotalItems)
	require.Equal(t, domain.MoneyFromReais(12, 50).Times(3)+domain.MoneyFromReais(35, 90), last.Total)
	require.Equal(t, []string{pastel.ID, acai.ID}, []string{last.Lines[0].ID, last.Lines[1].ID})
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cart.Config{})
	_, _ = f.store.AddItem(ctx, pastel)

	found, err := f.store.UpdateQuantity(ctx, pastel.ID, 0)
	require.NoError(t, err)
	require.True(t, found)
	require.Empty(t, f.store.Lines())

	toast, _ := f.board.Current()
	require.Equal(t, "Item removido do carrinho", toast.Message)
}

func TestUpdateQuantityUnknownIsSilent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cart.Config{})
	renders := len(f.rendered.summaries)

	found, err := f.store.UpdateQuantity(ctx, "missing", 4)
	require.NoError(t, err)
	require.False(t, found)
	removed, err := f.store.RemoveItem(ctx, "missing")
	require.NoError(t, err)
	require.False(t, removed)
	require.Len(t, f.rendered.summaries, renders)
}

func TestTotalIncludesDeliveryOnlyWhenEnabled(t *testing.T) {
	ctx := context.Background()
	off := newFixture(t, cart.Config{DeliveryFee: domain.MoneyFromReais(5, 0)})
	_, _ = off.store.AddItem(ctx, pastel)
	require.Equal(t, off.store.Subtotal(), off.store.Total())

	on := newFixture(t, cart.Config{DeliveryFee: domain.MoneyFromReais(5, 0), DeliveryEnabled: true})
	_, _ = on.store.AddItem(ctx, pastel)
	require.Equal(t, domain.MoneyFromReais(17, 50), on.store.Total())
}

func TestCheckoutEmptyCartChangesNothing(t *testing.T) {
	f := newFixture(t, cart.Config{})
	renders := len(f.rendered.summaries)

	_, err := f.store.Checkout(context.Background())
	require.ErrorIs(t, err, domain.ErrEmptyCart)
	require.Equal(t, 1, f.clock.Pending(), "only the toast hide timer is scheduled")
	require.Len(t, f.rendered.summaries, renders)
}

func TestCheckoutClearsAfterDelay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cart.Config{})
	_, _ = f.store.AddItem(ctx, pastel)
	_, _ = f.store.AddItem(ctx, acai)

	receipt, err := f.store.Checkout(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, receipt.TotalItems)
	require.Len(t, receipt.Lines, 2)

	f.clock.Advance(cart.DefaultClearDelay - time.Millisecond)
	require.Len(t, f.store.Lines(), 2)

	f.clock.Advance(time.Millisecond)
	require.Empty(t, f.store.Lines())
	require.Equal(t, 0, f.rendered.last().TotalItems)

	raw, found, err := f.kv.Get(ctx, cart.StorageKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "[]", string(raw))
}

func TestCheckoutTwiceSchedulesTwoClears(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cart.Config{})
	_, _ = f.store.AddItem(ctx, pastel)

	_, err := f.store.Checkout(ctx)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.store.Checkout(ctx)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	require.Empty(t, f.store.Lines())

	// Второй таймер очищает корзину, даже если в неё уже добавили новый товар.
	_, _ = f.store.AddItem(ctx, acai)
	f.clock.Advance(time.Second)
	require.Empty(t, f.store.Lines())
}

func TestPersistFailureKeepsCartUsable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cart.Config{})
	_, _ = f.store.AddItem(ctx, pastel)

	f.kv.fail = true
	_, err := f.store.AddItem(ctx, pastel)
	require.Error(t, err)
	require.Equal(t, 1, f.store.Lines()[0].Quantity)

	f.kv.fail = false
	line, err := f.store.AddItem(ctx, pastel)
	require.NoError(t, err)
	require.Equal(t, 2, line.Quantity)
}

func TestCartSurvivesReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cart.Config{})
	_, _ = f.store.AddItem(ctx, pastel)
	_, _ = f.store.UpdateQuantity(ctx, pastel.ID, 5)

	reloaded := cart.NewStore(f.kv, nil, nil, cart.Config{}, state.Options{})
	require.NoError(t, reloaded.Load(ctx))
	require.Equal(t, 5, reloaded.TotalItems())
	require.Equal(t, f.store.Lines(), reloaded.Lines())
}

func TestAddItemRejectsInvalidProduct(t *testing.T) {
	f := newFixture(t, cart.Config{})
	_, err := f.store.AddItem(context.Background(), domain.Product{Name: "no id"})
	require.True(t, domain.IsValidation(err))
	require.Empty(t, f.store.Lines())
}
