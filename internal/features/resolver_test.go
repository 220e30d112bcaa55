package features

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pvpforecast/internal/contracts"
)

type mapStore struct {
	rows  map[contracts.Key]Row
	err   error
	calls int
}

func (s *mapStore) Fetch(_ context.Context, key contracts.Key) (Row, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	row, ok := s.rows[key]
	if !ok {
		return nil, ErrFeaturesNotFound
	}
	return row, nil
}

func testManifests(t *testing.T) (*Manifest, *Manifest) {
	t.Helper()

	a := &Manifest{
		Name:    "A",
		Columns: []string{"price_lag_1", "promo"},
		Dtypes:  map[string]Dtype{"price_lag_1": DtypeFloat64, "promo": DtypeBool},
		Model:   ModelSpec{Kind: ModelRemote, URL: "http://a"},
	}
	b := &Manifest{
		Name:    "B",
		Columns: []string{"region", "week"},
		Dtypes:  map[string]Dtype{"region": DtypeCategory, "week": DtypeInt8},
		Model:   ModelSpec{Kind: ModelRemote, URL: "http://b"},
	}
	require.NoError(t, a.Validate())
	require.NoError(t, b.Validate())
	return a, b
}

func TestResolver_Resolve(t *testing.T) {
	a, b := testManifests(t)
	key := contracts.Key{SKU: "X1", TimeKey: 20240101}
	store := &mapStore{rows: map[contracts.Key]Row{
		key: {
			"sku":         "X1",
			"time_key":    int64(20240101),
			"price_lag_1": "10.25",
			"promo":       int64(1),
			"region":      "north",
			"week":        int64(1),
			"unused":      nil,
		},
	}}

	r := NewResolver(store, a, b, zerolog.Nop())

	vecA, vecB, err := r.Resolve(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, "A", vecA.Pipeline)
	assert.Equal(t, []string{"price_lag_1", "promo"}, vecA.Columns())
	assert.Equal(t, []any{10.25, true}, vecA.Values())

	assert.Equal(t, "B", vecB.Pipeline)
	assert.Equal(t, []string{"region", "week"}, vecB.Columns())
	assert.Equal(t, []any{"north", int8(1)}, vecB.Values())

	f, ok := vecA.Get("promo")
	require.True(t, ok)
	x, ok := f.Float()
	assert.True(t, ok)
	assert.Equal(t, 1.0, x)
}

func TestResolver_NotFound(t *testing.T) {
	a, b := testManifests(t)
	r := NewResolver(&mapStore{}, a, b, zerolog.Nop())

	_, _, err := r.Resolve(context.Background(), contracts.Key{SKU: "ghost", TimeKey: 1})
	assert.ErrorIs(t, err, ErrFeaturesNotFound)
}

func TestResolver_StoreError(t *testing.T) {
	a, b := testManifests(t)
	boom := errors.New("connection reset")
	r := NewResolver(&mapStore{err: boom}, a, b, zerolog.Nop())

	_, _, err := r.Resolve(context.Background(), contracts.Key{SKU: "X1", TimeKey: 1})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrFeaturesNotFound)
}

func TestResolver_DtypeError(t *testing.T) {
	a, b := testManifests(t)
	key := contracts.Key{SKU: "X1", TimeKey: 1}

	tests := []struct {
		name     string
		row      Row
		pipeline string
		column   string
	}{
		{
			name:     "bad float in A",
			row:      Row{"price_lag_1": "n/a", "promo": true, "region": "north", "week": int64(1)},
			pipeline: "A",
			column:   "price_lag_1",
		},
		{
			name:     "null in A",
			row:      Row{"price_lag_1": 1.0, "promo": nil, "region": "north", "week": int64(1)},
			pipeline: "A",
			column:   "promo",
		},
		{
			name:     "overflow in B",
			row:      Row{"price_lag_1": 1.0, "promo": true, "region": "north", "week": int64(500)},
			pipeline: "B",
			column:   "week",
		},
		{
			name:     "missing column in B",
			row:      Row{"price_lag_1": 1.0, "promo": true, "week": int64(1)},
			pipeline: "B",
			column:   "region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mapStore{rows: map[contracts.Key]Row{key: tt.row}}
			r := NewResolver(store, a, b, zerolog.Nop())

			_, _, err := r.Resolve(context.Background(), key)

			var dtypeErr *DtypeError
			require.ErrorAs(t, err, &dtypeErr)
			assert.Equal(t, tt.pipeline, dtypeErr.Pipeline)
			assert.Equal(t, tt.column, dtypeErr.Column)
			assert.Contains(t, err.Error(), tt.column)
		})
	}
}
