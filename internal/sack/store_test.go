package sack

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/skawsh-sack/internal/pricing"
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/angelmondragon/skawsh-sack/pkg/storage"
	"github.com/angelmondragon/skawsh-sack/pkg/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type failingStorage struct {
	storage.Storage
	failSet bool
	failGet bool
}

func (f *failingStorage) Get(ctx context.Context, key string) (string, error) {
	if f.failGet {
		return "", stdErrors.New("connection reset")
	}
	return f.Storage.Get(ctx, key)
}

func (f *failingStorage) Set(ctx context.Context, key, value string) error {
	if f.failSet {
		return stdErrors.New("quota exceeded")
	}
	return f.Storage.Set(ctx, key, value)
}

func newTestStore(t *testing.T, st storage.Storage) (*Store, *atomic.Int32) {
	t.Helper()
	store, err := NewStore(Params{
		Storage: st,
		Rules:   pricing.NewRules(pricing.DefaultExpressMultiplier),
		Now:     func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	var notified atomic.Int32
	store.Bus().Subscribe(func() { notified.Add(1) })
	return store, &notified
}

func washFold(weight string, fulfillment enums.FulfillmentType) Input {
	return Input{
		ServiceID:   "wash-fold",
		Name:        "Wash & Fold",
		StudioID:    "busy-bee",
		StudioName:  "Busy Bee Laundry",
		Fulfillment: fulfillment,
		BasePrice:   decimal.NewFromInt(49),
		Unit:        enums.ServiceUnitPerKg,
		Amount:      pricing.WeightOf(decimal.RequireFromString(weight)),
	}
}

func shirt(quantity int, fulfillment enums.FulfillmentType) Input {
	return Input{
		ServiceID:   "dry-clean-shirt",
		Name:        "Shirt Dry Clean",
		StudioID:    "busy-bee",
		StudioName:  "Busy Bee Laundry",
		Fulfillment: fulfillment,
		BasePrice:   decimal.NewFromInt(120),
		Amount:      pricing.CountOf(quantity),
	}
}

func TestUpsertPricesWeightLine(t *testing.T) {
	ctx := context.Background()
	store, notified := newTestStore(t, memory.New())

	item, err := store.Upsert(ctx, washFold("2.0", enums.FulfillmentStandard))
	require.NoError(t, err)
	require.NotNil(t, item)

	assert.Equal(t, 1, store.UniqueServiceCount())
	assert.True(t, item.Price.Equal(decimal.NewFromInt(98)), "price %s", item.Price)
	assert.Equal(t, "2.0", item.Amount.String())
	assert.Equal(t, fixedNow, item.AddedAt)
	assert.Equal(t, int32(1), notified.Load())
}

func TestStepRecomputesWithoutDrift(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, memory.New())
	_, err := store.Upsert(ctx, washFold("2.0", enums.FulfillmentStandard))
	require.NoError(t, err)

	var item *LineItem
	for i := 0; i < 3; i++ {
		item, err = store.Step(ctx, "wash-fold", 1)
		require.NoError(t, err)
	}
	require.NotNil(t, item)
	assert.True(t, item.Amount.Weight.Equal(decimal.RequireFromString("2.3")), "weight %s", item.Amount.Weight)
	assert.True(t, item.Price.Equal(decimal.NewFromInt(113)), "price %s", item.Price)

	stored, ok := store.Get("wash-fold")
	require.True(t, ok)
	assert.Equal(t, "2.3", stored.Amount.String())
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, memory.New())

	first, err := store.Upsert(ctx, washFold("1.5", enums.FulfillmentExpress))
	require.NoError(t, err)
	second, err := store.Upsert(ctx, washFold("1.5", enums.FulfillmentExpress))
	require.NoError(t, err)

	require.Len(t, store.Items(), 1)
	assert.True(t, first.Price.Equal(second.Price))
	assert.Equal(t, first.Amount.String(), second.Amount.String())
	assert.Equal(t, first.AddedAt, second.AddedAt)
	assert.Equal(t, enums.FulfillmentExpress, second.Fulfillment)
}

func TestUpsertReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, memory.New())
	_, err := store.Upsert(ctx, washFold("1.0", enums.FulfillmentStandard))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, shirt(2, enums.FulfillmentStandard))
	require.NoError(t, err)

	_, err = store.Upsert(ctx, washFold("4.0", enums.FulfillmentStandard))
	require.NoError(t, err)

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "wash-fold", items[0].ServiceID)
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(196)))
	assert.Equal(t, "dry-clean-shirt", items[1].ServiceID)
}

func TestUpsertNonPositiveAmountRemoves(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, memory.New())
	_, err := store.Upsert(ctx, shirt(3, enums.FulfillmentStandard))
	require.NoError(t, err)

	item, err := store.Upsert(ctx, shirt(0, enums.FulfillmentStandard))
	require.NoError(t, err)
	assert.Nil(t, item)
	_, ok := store.Get("dry-clean-shirt")
	assert.False(t, ok)
}

func TestUpsertRejectsMismatchedAmount(t *testing.T) {
	ctx := context.Background()
	store, notified := newTestStore(t, memory.New())

	in := washFold("1.0", enums.FulfillmentStandard)
	in.Amount = pricing.CountOf(2)
	_, err := store.Upsert(ctx, in)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = store.Upsert(ctx, Input{Amount: pricing.CountOf(1)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	assert.Zero(t, store.UniqueServiceCount())
	assert.Equal(t, int32(0), notified.Load())
}

func TestStepRemovesAtFloor(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, memory.New())
	_, err := store.Upsert(ctx, shirt(1, enums.FulfillmentStandard))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, washFold("0.1", enums.FulfillmentStandard))
	require.NoError(t, err)

	item, err := store.Step(ctx, "dry-clean-shirt", -1)
	require.NoError(t, err)
	assert.Nil(t, item)
	item, err = store.Step(ctx, "wash-fold", -1)
	require.NoError(t, err)
	assert.Nil(t, item)

	assert.Empty(t, store.Items())
}

func TestStepErrors(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, memory.New())

	_, err := store.Step(ctx, "missing", 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = store.Step(ctx, "missing", 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestDominantTypeTracksExpressLines(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, memory.New())
	assert.Equal(t, enums.DominantNone, store.DominantType())

	_, err := store.Upsert(ctx, washFold("1.0", enums.FulfillmentExpress))
	require.NoError(t, err)
	assert.Equal(t, enums.DominantExpress, store.DominantType())

	_, err = store.Upsert(ctx, shirt(1, enums.FulfillmentStandard))
	require.NoError(t, err)
	assert.Equal(t, enums.DominantBoth, store.DominantType())

	removed, err := store.RemoveByFulfillment(ctx, enums.FulfillmentExpress)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, enums.DominantStandard, store.DominantType())
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	store, notified := newTestStore(t, memory.New())
	require.NoError(t, store.Remove(context.Background(), "ghost"))
	assert.Equal(t, int32(0), notified.Load())
}

func TestClearPersistsEmptySnapshot(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	store, notified := newTestStore(t, st)
	_, err := store.Upsert(ctx, washFold("1.0", enums.FulfillmentStandard))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, shirt(2, enums.FulfillmentExpress))
	require.NoError(t, err)
	before := notified.Load()

	require.NoError(t, store.Clear(ctx))

	assert.Empty(t, store.Items())
	assert.Equal(t, before+1, notified.Load())
	raw, err := st.Get(ctx, ItemsKey)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", raw)
}

func TestLoadRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	writer, _ := newTestStore(t, st)
	_, err := writer.Upsert(ctx, washFold("2.3", enums.FulfillmentExpress))
	require.NoError(t, err)
	_, err = writer.Upsert(ctx, shirt(2, enums.FulfillmentStandard))
	require.NoError(t, err)

	reader, _ := newTestStore(t, st)
	require.NoError(t, reader.Load(ctx))

	items := reader.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "2.3", items[0].Amount.String())
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(169)), "price %s", items[0].Price)
	assert.Equal(t, 2, items[1].Amount.Quantity)
	assert.Equal(t, enums.DominantBoth, reader.DominantType())
}

func TestLoadCorruptSnapshotYieldsEmptySack(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.Set(ctx, ItemsKey, "{not json"))

	store, _ := newTestStore(t, st)
	require.NoError(t, store.Load(ctx))
	assert.Empty(t, store.Items())
}

func TestLoadReadFailureKeepsSackAndReports(t *testing.T) {
	ctx := context.Background()
	st := &failingStorage{Storage: memory.New()}
	store, notified := newTestStore(t, st)
	_, err := store.Upsert(ctx, shirt(2, enums.FulfillmentStandard))
	require.NoError(t, err)
	before := notified.Load()

	st.failGet = true
	err = store.Load(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
	assert.Equal(t, 1, store.UniqueServiceCount(), "a failed read must not empty the sack")
	assert.Equal(t, before, notified.Load())

	st.failGet = false
	reader, _ := newTestStore(t, st)
	require.NoError(t, reader.Load(ctx))
	assert.Equal(t, 1, reader.UniqueServiceCount(), "persisted snapshot must survive the failed read")
}

func TestLoadSkipsInvalidLines(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	lines := []map[string]any{
		{"service_id": "a", "amount": map[string]any{"kind": "count", "quantity": 2}},
		{"service_id": "a", "amount": map[string]any{"kind": "count", "quantity": 5}},
		{"service_id": "b", "amount": map[string]any{"kind": "count", "quantity": 0}},
		{"service_id": "", "amount": map[string]any{"kind": "count", "quantity": 1}},
	}
	raw, err := json.Marshal(lines)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, ItemsKey, string(raw)))

	store, _ := newTestStore(t, st)
	require.NoError(t, store.Load(ctx))
	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Amount.Quantity)
}

func TestStorageFailureKeepsMemoryAndNotifies(t *testing.T) {
	ctx := context.Background()
	st := &failingStorage{Storage: memory.New(), failSet: true}
	store, notified := newTestStore(t, st)

	item, err := store.Upsert(ctx, shirt(1, enums.FulfillmentStandard))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
	require.NotNil(t, item)
	assert.Equal(t, 1, store.UniqueServiceCount())
	assert.Equal(t, int32(1), notified.Load())
}

func TestUpdateSubItemsDropsEmptyEntries(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, memory.New())
	_, err := store.Upsert(ctx, washFold("3.0", enums.FulfillmentStandard))
	require.NoError(t, err)

	item, err := store.UpdateSubItems(ctx, "wash-fold", []SubItem{
		{Name: " Shirt ", Quantity: 4},
		{Name: "Trouser", Quantity: 0},
		{Name: "", Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []SubItem{{Name: "Shirt", Quantity: 4}}, item.SubItems)

	_, err = store.UpdateSubItems(ctx, "missing", nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestFirstItemCelebrationFiresOnce(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	store, _ := newTestStore(t, st)

	assert.False(t, store.ConsumeFirstItemCelebration(ctx), "empty sack never celebrates")

	_, err := store.Upsert(ctx, shirt(1, enums.FulfillmentStandard))
	require.NoError(t, err)
	assert.True(t, store.ConsumeFirstItemCelebration(ctx))
	assert.False(t, store.ConsumeFirstItemCelebration(ctx))

	require.NoError(t, store.Clear(ctx))
	_, err = store.Upsert(ctx, shirt(1, enums.FulfillmentStandard))
	require.NoError(t, err)
	assert.False(t, store.ConsumeFirstItemCelebration(ctx))

	reloaded, _ := newTestStore(t, st)
	require.NoError(t, reloaded.Load(ctx))
	assert.False(t, reloaded.ConsumeFirstItemCelebration(ctx))
}

func TestItemsAreCopies(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, memory.New())
	in := washFold("1.0", enums.FulfillmentStandard)
	in.SubItems = []SubItem{{Name: "Shirt", Quantity: 1}}
	_, err := store.Upsert(ctx, in)
	require.NoError(t, err)

	items := store.Items()
	items[0].SubItems[0].Quantity = 99
	items[0].Name = "mutated"

	stored, ok := store.Get("wash-fold")
	require.True(t, ok)
	assert.Equal(t, "Wash & Fold", stored.Name)
	assert.Equal(t, 1, stored.SubItems[0].Quantity)
}

func TestBarSummarisesStudio(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, memory.New())
	_, err := store.Upsert(ctx, washFold("2.0", enums.FulfillmentStandard))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, shirt(1, enums.FulfillmentExpress))
	require.NoError(t, err)
	other := shirt(1, enums.FulfillmentStandard)
	other.ServiceID, other.StudioID, other.StudioName = "shoe-clean", "clean-tide", "Clean Tide Studio"
	_, err = store.Upsert(ctx, other)
	require.NoError(t, err)

	bar := store.Bar("busy-bee")
	assert.True(t, bar.Visible)
	assert.Equal(t, 2, bar.ServiceCount)
	assert.Equal(t, "Busy Bee Laundry", bar.StudioName)
	assert.Equal(t, enums.DominantBoth, bar.Dominant)
	assert.True(t, bar.Subtotal.Equal(decimal.NewFromInt(278)), "subtotal %s", bar.Subtotal)

	all := store.Bar("")
	assert.Equal(t, 3, all.ServiceCount)

	empty := BuildBar("nowhere", nil)
	assert.False(t, empty.Visible)
	assert.Equal(t, enums.DominantNone, empty.Dominant)
}
