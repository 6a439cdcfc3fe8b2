package store

import (
	"context"
	"sync"
	"testing"

	"github.com/fjod/foodcart/internal/domain"
	"github.com/fjod/foodcart/internal/ledger"
	"github.com/fjod/foodcart/internal/persistence"
	"github.com/fjod/foodcart/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type mockPersister struct {
	m      sync.Mutex
	loaded ledger.Ledger
	saves  []ledger.Ledger
	err    error
}

func (m *mockPersister) Load(context.Context) ledger.Ledger {
	return m.loaded
}

func (m *mockPersister) Save(_ context.Context, l ledger.Ledger) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.saves = append(m.saves, l)
	return m.err
}

func (m *mockPersister) saveCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.saves)
}

func (m *mockPersister) lastSave() ledger.Ledger {
	m.m.Lock()
	defer m.m.Unlock()
	return m.saves[len(m.saves)-1]
}

func item(id string, price float64) domain.ItemInput {
	return domain.NewItemInput(id, "Item "+id, price)
}

func TestStore_EmptyCart(t *testing.T) {
	s := New(context.Background(), &mockPersister{})

	assert.Equal(t, 0, s.ItemCount())
	assert.True(t, s.Total().IsZero())
	assert.Empty(t, s.Items())
	assert.False(t, s.IsPanelOpen())
}

func TestStore_RehydratesOnCreate(t *testing.T) {
	p := &mockPersister{loaded: ledger.New(domain.CartItem{ID: "a", UnitPrice: decimal.NewFromInt(100), Quantity: 3})}
	s := New(context.Background(), p)

	assert.Equal(t, 3, s.ItemCount())
	assert.True(t, s.Total().Equal(decimal.NewFromInt(300)))
	assert.Equal(t, 0, p.saveCount())
}

func TestStore_EveryMutationSavesOnce(t *testing.T) {
	p := &mockPersister{}
	s := New(context.Background(), p)
	ctx := context.Background()

	s.Add(ctx, item("a", 3000))
	s.Add(ctx, item("a", 3000))
	s.Add(ctx, item("b", 100))
	s.SetQuantity(ctx, "b", 4)
	s.Decrement(ctx, "b")
	s.Increment(ctx, "b")
	s.Remove(ctx, "b")
	s.Remove(ctx, "unknown")
	s.Clear(ctx)

	assert.Equal(t, 9, p.saveCount())
	assert.True(t, p.lastSave().IsEmpty())
}

func TestStore_ItemCountIsUnits(t *testing.T) {
	s := New(context.Background(), &mockPersister{})
	ctx := context.Background()

	s.Add(ctx, item("a", 3000))
	s.Add(ctx, item("a", 3000))
	s.Add(ctx, item("b", 500))

	assert.Equal(t, 3, s.ItemCount())
	assert.Len(t, s.Items(), 2)
	assert.True(t, s.Total().Equal(decimal.NewFromInt(6500)))
}

func TestStore_AddDoesNotOpenPanel(t *testing.T) {
	s := New(context.Background(), &mockPersister{})

	s.Add(context.Background(), item("a", 10))
	assert.False(t, s.IsPanelOpen())

	s.OpenPanel()
	s.Add(context.Background(), item("b", 10))
	assert.True(t, s.IsPanelOpen())
}

func TestStore_PanelIsNotPersisted(t *testing.T) {
	p := &mockPersister{}
	s := New(context.Background(), p)

	s.OpenPanel()
	s.SetPanelOpen(false)
	s.SetPanelOpen(true)
	s.ClosePanel()

	assert.Equal(t, 0, p.saveCount())
	assert.False(t, s.IsPanelOpen())
}

func TestStore_DecrementAtOneRemoves(t *testing.T) {
	s := New(context.Background(), &mockPersister{})
	ctx := context.Background()

	s.Add(ctx, item("a", 10))
	s.Decrement(ctx, "a")

	assert.Empty(t, s.Items())
	for _, it := range s.Items() {
		assert.GreaterOrEqual(t, it.Quantity, 1)
	}
}

func TestStore_SaveFailureKeepsMutation(t *testing.T) {
	p := &mockPersister{err: assert.AnError}
	s := New(context.Background(), p)

	s.Add(context.Background(), item("a", 1000))

	assert.Equal(t, 1, s.ItemCount())
	assert.Equal(t, 1, p.saveCount())
}

func TestStore_SubscribersSeeEveryVersion(t *testing.T) {
	s := New(context.Background(), &mockPersister{})
	ctx := context.Background()

	var mu sync.Mutex
	var counts []int
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, snap.ItemCount)
	})

	s.Add(ctx, item("a", 10))
	s.Add(ctx, item("a", 10))
	s.OpenPanel()
	unsubscribe()
	s.Clear(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 2}, counts)
}

func TestStore_ListenerMayReadStore(t *testing.T) {
	s := New(context.Background(), &mockPersister{})

	var seen int
	s.Subscribe(func(snap Snapshot) {
		seen = s.ItemCount()
	})
	s.Add(context.Background(), item("a", 10))

	assert.Equal(t, 1, seen)
}

func TestStore_ConcurrentMutations(t *testing.T) {
	p := &mockPersister{}
	s := New(context.Background(), p)

	var lastVersion uint64
	var outOfOrder bool
	var mu sync.Mutex
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if snap.Version < lastVersion {
			outOfOrder = true
		}
		lastVersion = snap.Version
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(context.Background(), item("a", 5))
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, s.ItemCount())
	assert.Equal(t, 20, p.saveCount())
	assert.False(t, outOfOrder)
}

func TestStore_ReloadScenario(t *testing.T) {
	backend := storage.NewMemory()
	ctx := context.Background()

	first := New(ctx, persistence.NewAdapter(backend, "cart:s1"))
	first.Add(ctx, item("a", 1000))
	first.Remove(ctx, "a")

	reloaded := New(ctx, persistence.NewAdapter(backend, "cart:s1"))
	assert.Empty(t, reloaded.Items())
}

func TestStore_ReloadKeepsLedger(t *testing.T) {
	backend := storage.NewMemory()
	ctx := context.Background()

	first := New(ctx, persistence.NewAdapter(backend, "cart:s1"))
	first.Add(ctx, item("a", 3000))
	first.Add(ctx, item("a", 3000))
	first.Add(ctx, item("b", 99.5))
	first.OpenPanel()

	reloaded := New(ctx, persistence.NewAdapter(backend, "cart:s1"))
	require.Len(t, reloaded.Items(), 2)
	assert.True(t, reloaded.Snapshot().Ledger.Equal(first.Snapshot().Ledger))
	assert.False(t, reloaded.IsPanelOpen())
}

func TestStore_AddOutOfRangePrice(t *testing.T) {
	p := &mockPersister{}
	s := New(context.Background(), p)

	s.Add(context.Background(), domain.InputFrom(gjson.Parse(`{"id":"a","name":"A","price":"1e50000000"}`)))

	require.Len(t, s.Items(), 1)
	assert.True(t, s.Total().IsZero())
	assert.Equal(t, 1, p.saveCount())
}
