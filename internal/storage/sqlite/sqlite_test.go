// internal/storage/sqlite/sqlite_test.go
package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jugheadddd/launchpad-contracts/internal/storage"
	"github.com/jugheadddd/launchpad-contracts/internal/storage/models"
)

func newStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "journal.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleToken(addr string, at time.Time) *models.TokenRecord {
	return &models.TokenRecord{
		Address:    addr,
		Pair:       "pair:1",
		Creator:    "alice",
		BaseAsset:  "usdc",
		Name:       "Dragon",
		Symbol:     "DRG",
		Supply:     "1000000000000000000000000000",
		LaunchedAt: at,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.SaveToken(ctx, sampleToken("token:1", at)))

	got, err := store.GetToken(ctx, "token:1")
	require.NoError(t, err)
	assert.Equal(t, "Dragon", got.Name)
	assert.Equal(t, "1000000000000000000000000000", got.Supply)
	assert.True(t, got.LaunchedAt.Equal(at))
	assert.Nil(t, got.GraduatedAt)

	_, err = store.GetToken(ctx, "token:missing")
	require.ErrorIs(t, err, ErrNotFound)

	// Duplicate address violates the primary key and is not retried.
	require.Error(t, store.SaveToken(ctx, sampleToken("token:1", at)))
}

func TestListTokensOrdersAndPaginates(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 3; i++ {
		addr := string(rune('a' + i))
		require.NoError(t, store.SaveToken(ctx, sampleToken(addr, base.Add(time.Duration(i)*time.Minute))))
	}

	all, err := store.ListTokens(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Address)
	assert.Equal(t, "c", all[2].Address)

	page, err := store.ListTokens(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].Address)
}

func TestTradeRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	for i, side := range []string{"buy", "sell", "buy"} {
		require.NoError(t, store.SaveTrade(ctx, &models.TradeRecord{
			Token:      "token:1",
			Trader:     "bob",
			Side:       side,
			AmountIn:   "1000",
			AmountOut:  "2000",
			Price:      "5000000000000000000",
			ExecutedAt: at.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, store.SaveTrade(ctx, &models.TradeRecord{
		Token: "token:2", Trader: "bob", Side: "buy",
		AmountIn: "1", AmountOut: "1", Price: "1", ExecutedAt: at,
	}))

	trades, err := store.ListTrades(ctx, "token:1", 10, 0)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, "buy", trades[0].Side)
	assert.Equal(t, "sell", trades[1].Side)
	assert.True(t, trades[0].ID < trades[1].ID)

	empty, err := store.ListTrades(ctx, "token:ghost", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	all, err := store.ListTrades(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestGraduationStampsToken(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.SaveToken(ctx, sampleToken("token:1", at)))
	require.NoError(t, store.SaveGraduation(ctx, &models.GraduationRecord{
		Token:       "token:1",
		Pool:        "dspool:9",
		TokenSeeded: "999",
		AssetSeeded: "111",
		GraduatedAt: at.Add(time.Hour),
	}))

	grad, err := store.GetGraduation(ctx, "token:1")
	require.NoError(t, err)
	assert.Equal(t, "dspool:9", grad.Pool)

	token, err := store.GetToken(ctx, "token:1")
	require.NoError(t, err)
	require.NotNil(t, token.GraduatedAt)
	assert.True(t, token.GraduatedAt.Equal(at.Add(time.Hour)))

	_, err = store.GetGraduation(ctx, "token:ghost")
	require.ErrorIs(t, err, ErrNotFound)
}
