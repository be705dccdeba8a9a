package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/storage"
)

func TestParamSpaceStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewParamSpaceStore(pool)
	ctx := context.Background()

	items := []*domain.ParamSpaceItem{
		{Name: "windowSize", StrategyKind: domain.StrategyKindPriceChange, ValueType: domain.ValueTypeInt, Min: 3, Max: 50, Step: 1, Enabled: true},
		{Name: "priceChangeThreshold", StrategyKind: domain.StrategyKindPriceChange, ValueType: domain.ValueTypeFloat, Min: 0.5, Max: 5, Step: 0.1, Enabled: true},
		{Name: "takeProfitPct", StrategyKind: domain.StrategyKindPriceChange, ValueType: domain.ValueTypeFloat, Min: 0.5, Max: 10, Step: 0.5, Enabled: false},
	}
	for _, item := range items {
		require.NoError(t, store.Insert(ctx, item))
	}

	got, err := store.GetByStrategyKind(ctx, domain.StrategyKindPriceChange)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by name ASC.
	assert.Equal(t, "priceChangeThreshold", got[0].Name)
	assert.Equal(t, "takeProfitPct", got[1].Name)
	assert.Equal(t, "windowSize", got[2].Name)

	assert.Equal(t, domain.ValueTypeFloat, got[0].ValueType)
	assert.InDelta(t, 0.5, got[0].Min, 1e-9)
	assert.InDelta(t, 5.0, got[0].Max, 1e-9)
	assert.InDelta(t, 0.1, got[0].Step, 1e-9)
	assert.True(t, got[0].Enabled)
	assert.False(t, got[1].Enabled)
}

func TestParamSpaceStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewParamSpaceStore(pool)
	ctx := context.Background()

	item := &domain.ParamSpaceItem{
		Name: "windowSize", StrategyKind: domain.StrategyKindPriceChange,
		ValueType: domain.ValueTypeInt, Min: 3, Max: 50, Step: 1, Enabled: true,
	}

	require.NoError(t, store.Insert(ctx, item))
	assert.ErrorIs(t, store.Insert(ctx, item), storage.ErrDuplicateKey)
}

func TestParamSpaceStore_GetUnknownKind(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewParamSpaceStore(pool)

	got, err := store.GetByStrategyKind(context.Background(), "OTHER_KIND")
	require.NoError(t, err)
	assert.Empty(t, got)
}
