package cart

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/pharmacy/internal/domain/models"
	"github.com/mamadbah2/pharmacy/internal/notify"
)

type fakeStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	loadErr error
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{data: make(map[string][]byte)}
}

func (f *fakeStorage) Load(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	data, ok := f.data[key]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return data, nil
}

func (f *fakeStorage) Save(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.data[key] = data
	return nil
}

func (f *fakeStorage) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeStorage) snapshot(t *testing.T, key string) []models.CartLine {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[key]
	require.True(t, ok, "no snapshot under %s", key)
	var lines []models.CartLine
	require.NoError(t, json.Unmarshal(data, &lines))
	return lines
}

type noticeLog struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (n *noticeLog) Notify(_ context.Context, notice models.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *noticeLog) last() models.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return models.Notice{}
	}
	return n.notices[len(n.notices)-1]
}

func price(v float64) *float64 { return &v }

func medicine(id string, p *float64) models.CartMedicine {
	return models.CartMedicine{ID: id, Name: "Medicine " + id, Price: p, Category: "Analgesic", PharmacyID: "ph-1"}
}

func newTestStore(t *testing.T) (*Store, *fakeStorage, *noticeLog) {
	t.Helper()
	storage := newFakeStorage()
	notices := &noticeLog{}
	store := NewStore("pharmacy-cart", storage, notices, nil)
	require.NoError(t, store.Load(context.Background()))
	return store, storage, notices
}

func TestStore_AddMergesLines(t *testing.T) {
	store, storage, notices := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, medicine("m1", price(2.5)), 2))
	require.NoError(t, store.Add(ctx, medicine("m1", price(3)), 1))
	require.NoError(t, store.Add(ctx, medicine("m2", price(1)), 1))

	lines := store.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, 3.0, *lines[0].Medicine.Price, "latest snapshot wins")
	assert.Equal(t, "m2", lines[1].Medicine.ID)

	assert.Equal(t, lines, storage.snapshot(t, "pharmacy-cart"))
	assert.Equal(t, models.NoticeSuccess, notices.last().Level)
	assert.Equal(t, "Added to cart", notices.last().Title)
}

func TestStore_AddInvalidQuantity(t *testing.T) {
	store, storage, notices := newTestStore(t)

	err := store.Add(context.Background(), medicine("m1", price(2)), 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, store.Lines())
	assert.Zero(t, storage.saves)
	assert.Equal(t, models.NoticeError, notices.last().Level)
}

func TestStore_AdjustQuantity(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		delta int
		want  []int
	}{
		{"increase", 2, []int{4, 1}},
		{"decrease", -1, []int{1, 1}},
		{"to zero removes", -2, []int{1}},
		{"below zero removes", -10, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, storage, _ := newTestStore(t)
			require.NoError(t, store.Add(ctx, medicine("m1", price(1)), 2))
			require.NoError(t, store.Add(ctx, medicine("m2", price(1)), 1))

			require.NoError(t, store.AdjustQuantity(ctx, "m1", tt.delta))

			lines := store.Lines()
			got := make([]int, 0, len(lines))
			for _, l := range lines {
				assert.Positive(t, l.Quantity)
				got = append(got, l.Quantity)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, lines, storage.snapshot(t, "pharmacy-cart"))
		})
	}
}

func TestStore_AdjustQuantityUnknownIsNoop(t *testing.T) {
	store, storage, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, medicine("m1", price(1)), 1))
	saves := storage.saves

	require.NoError(t, store.AdjustQuantity(ctx, "missing", 3))
	assert.Equal(t, saves, storage.saves)
	assert.Len(t, store.Lines(), 1)
}

func TestStore_Remove(t *testing.T) {
	store, storage, notices := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, medicine("m1", price(1)), 1))
	require.NoError(t, store.Add(ctx, medicine("m2", price(1)), 1))

	require.NoError(t, store.Remove(ctx, "m1"))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "m2", lines[0].Medicine.ID)
	assert.Equal(t, lines, storage.snapshot(t, "pharmacy-cart"))
	assert.Equal(t, "Removed from cart", notices.last().Title)
	assert.Equal(t, "Medicine m1 was removed from your cart.", notices.last().Description)

	saves := storage.saves
	require.NoError(t, store.Remove(ctx, "m1"))
	assert.Equal(t, saves, storage.saves)
}

func TestStore_ClearThenLoad(t *testing.T) {
	store, storage, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, medicine("m1", price(1)), 3))

	require.NoError(t, store.Clear(ctx))
	assert.Empty(t, store.Lines())

	_, err := storage.Load(ctx, "pharmacy-cart")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	fresh := NewStore("pharmacy-cart", storage, nil, nil)
	require.NoError(t, fresh.Load(ctx))
	assert.Empty(t, fresh.Lines())
}

func TestStore_Totals(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, medicine("m1", price(2.5)), 2))
	require.NoError(t, store.Add(ctx, medicine("m2", nil), 4))
	require.NoError(t, store.Add(ctx, medicine("m3", price(1.25)), 1))

	assert.Equal(t, 7, store.TotalItems())
	assert.InDelta(t, 6.25, store.TotalPrice(), 1e-9)
}

func TestStore_LoadRestoresSnapshot(t *testing.T) {
	storage := newFakeStorage()
	storage.data["pharmacy-cart"] = []byte(`[
		{"medicine":{"_id":"m1","name":"Paracetamol","price":1.5},"quantity":2},
		{"medicine":{"_id":"m2","name":"Broken"},"quantity":0},
		{"medicine":{"_id":"m1","name":"Paracetamol","price":1.5},"quantity":1}
	]`)

	store := NewStore("pharmacy-cart", storage, nil, nil)
	require.NoError(t, store.Load(context.Background()))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Paracetamol", lines[0].Medicine.Name)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestStore_LoadCorruptSnapshot(t *testing.T) {
	storage := newFakeStorage()
	storage.data["pharmacy-cart"] = []byte(`{not json`)

	store := NewStore("pharmacy-cart", storage, nil, nil)
	require.NoError(t, store.Load(context.Background()))
	assert.Empty(t, store.Lines())
}

func TestStore_LoadStorageError(t *testing.T) {
	storage := newFakeStorage()
	storage.loadErr = errors.New("connection refused")

	store := NewStore("pharmacy-cart", storage, nil, nil)
	err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, store.Lines())
}

func TestStore_PersistFailureKeepsMutation(t *testing.T) {
	store, storage, _ := newTestStore(t)
	storage.saveErr = errors.New("disk full")

	err := store.Add(context.Background(), medicine("m1", price(1)), 1)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Len(t, store.Lines(), 1)
}

func TestStore_LinesIsACopy(t *testing.T) {
	store, _, _ := newTestStore(t)
	require.NoError(t, store.Add(context.Background(), medicine("m1", price(2)), 1))

	lines := store.Lines()
	lines[0].Quantity = 99
	*lines[0].Medicine.Price = 100

	again := store.Lines()
	assert.Equal(t, 1, again[0].Quantity)
	assert.Equal(t, 2.0, *again[0].Medicine.Price)
}

type listenerFunc func(ctx context.Context, session string, result models.CheckoutResult) error

func (f listenerFunc) CheckoutStarted(ctx context.Context, session string, result models.CheckoutResult) error {
	return f(ctx, session, result)
}

func TestStore_CheckoutEmpty(t *testing.T) {
	store, storage, notices := newTestStore(t)
	called := false
	store.OnCheckout(listenerFunc(func(context.Context, string, models.CheckoutResult) error {
		called = true
		return nil
	}))

	_, err := store.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, storage.saves)
	assert.False(t, called)
	assert.Equal(t, "Cart is empty", notices.last().Title)
}

func TestStore_Checkout(t *testing.T) {
	store, storage, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, medicine("m1", price(2.5)), 2))
	require.NoError(t, store.Add(ctx, medicine("m2", nil), 1))

	var got models.CheckoutResult
	store.OnCheckout(listenerFunc(func(_ context.Context, _ string, result models.CheckoutResult) error {
		got = result
		return nil
	}))
	store.OnCheckout(listenerFunc(func(context.Context, string, models.CheckoutResult) error {
		return errors.New("listener down")
	}))

	saves := storage.saves
	result, err := store.Checkout(ctx)
	require.NoError(t, err)

	assert.Equal(t, PaymentPath, result.Next)
	assert.Equal(t, 3, result.TotalItems)
	assert.InDelta(t, 5.0, result.TotalPrice, 1e-9)
	assert.Len(t, result.Lines, 2)
	assert.Equal(t, result, got)
	assert.Equal(t, saves+1, storage.saves)
	assert.Len(t, store.Lines(), 2, "checkout keeps the cart")
}

func TestStore_NoticesReachRecorder(t *testing.T) {
	storage := newFakeStorage()
	store := NewStore("pharmacy-cart", storage, notify.NewLogNotifier(nil), nil)
	ctx, rec := notify.WithRecorder(context.Background())

	require.NoError(t, store.Add(ctx, medicine("m1", price(1)), 1))

	notices := rec.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "Medicine m1 was added to your cart.", notices[0].Description)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Add(ctx, medicine("m1", price(1)), 1)
		}()
	}
	wg.Wait()

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 50, lines[0].Quantity)
}

func TestStore_AdjustQuantitySequenceKeepsLinesPositive(t *testing.T) {
	store, storage, _ := newTestStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 42))
	ids := []string{"m1", "m2", "m3", "m4"}

	want := map[string]int{}
	for _, id := range ids[:3] {
		require.NoError(t, store.Add(ctx, medicine(id, price(1)), 2))
		want[id] = 2
	}

	checkLines := func(t *testing.T, step int, lines []models.CartLine) {
		t.Helper()
		seen := map[string]bool{}
		for _, line := range lines {
			assert.GreaterOrEqual(t, line.Quantity, 1, "step %d: %s", step, line.Medicine.ID)
			assert.False(t, seen[line.Medicine.ID], "step %d: duplicate %s", step, line.Medicine.ID)
			seen[line.Medicine.ID] = true
			assert.Equal(t, want[line.Medicine.ID], line.Quantity, "step %d: %s", step, line.Medicine.ID)
		}
		assert.Len(t, lines, len(want), "step %d", step)
	}

	for step := 0; step < 500; step++ {
		id := ids[rng.IntN(len(ids))]
		if rng.IntN(4) == 0 {
			qty := 1 + rng.IntN(3)
			require.NoError(t, store.Add(ctx, medicine(id, price(1)), qty))
			want[id] += qty
		} else {
			delta := rng.IntN(8) - 4
			require.NoError(t, store.AdjustQuantity(ctx, id, delta))
			if q, ok := want[id]; ok {
				if q+delta <= 0 {
					delete(want, id)
				} else {
					want[id] = q + delta
				}
			}
		}

		checkLines(t, step, store.Lines())
		checkLines(t, step, storage.snapshot(t, "pharmacy-cart"))
	}
}
