package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pvpforecast/internal/contracts"
	"github.com/wonny/pvpforecast/pkg/database"
)

func TestSQLiteStore_Fetch(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.DB.ExecContext(ctx, `
		CREATE TABLE features (
			sku TEXT NOT NULL,
			time_key INTEGER NOT NULL,
			price_lag_1 REAL,
			promo INTEGER,
			region TEXT,
			PRIMARY KEY (sku, time_key)
		)`)
	require.NoError(t, err)
	_, err = db.DB.ExecContext(ctx,
		`INSERT INTO features VALUES ('X1', 20240101, 10.5, 1, 'north'), ('X2', 20240101, NULL, 0, 'south')`)
	require.NoError(t, err)

	store, err := NewSQLiteStore(db.DB, "features")
	require.NoError(t, err)

	row, err := store.Fetch(ctx, contracts.Key{SKU: "X1", TimeKey: 20240101})
	require.NoError(t, err)
	assert.Equal(t, "X1", row["sku"])
	assert.Equal(t, int64(20240101), row["time_key"])
	assert.Equal(t, 10.5, row["price_lag_1"])
	assert.Equal(t, int64(1), row["promo"])
	assert.Equal(t, "north", row["region"])

	row, err = store.Fetch(ctx, contracts.Key{SKU: "X2", TimeKey: 20240101})
	require.NoError(t, err)
	assert.Nil(t, row["price_lag_1"])

	_, err = store.Fetch(ctx, contracts.Key{SKU: "ghost", TimeKey: 1})
	assert.ErrorIs(t, err, ErrFeaturesNotFound)
}

func TestNewSQLiteStore_EmptyTable(t *testing.T) {
	_, err := NewSQLiteStore(nil, " ")
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"features"`, quoteIdent("features"))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
