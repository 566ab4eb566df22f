package tradejournal

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

func tx(n int) domain.Transaction {
	return domain.Transaction{
		ID:           fmt.Sprintf("tx-%d", n),
		InstrumentID: "1",
		Side:         domain.SideBuy,
		Amount:       int64(n),
		Price:        decimal.RequireFromString("72.5"),
		Total:        decimal.RequireFromString("72.5725").Mul(decimal.NewFromInt(int64(n))),
		Timestamp:    int64(1_700_000_000_000 + n),
	}
}

func TestWALStore_AppendAndReplay(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	start := store.CurrentIndex()
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Append(tx(i)))
	}
	assert.Equal(t, start+3, store.CurrentIndex())

	records, err := store.TransactionsAfter(start)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, start+uint64(i)+1, r.Index)
		assert.Equal(t, fmt.Sprintf("tx-%d", i+1), r.Transaction.ID)
		assert.Equal(t, int64(i+1), r.Transaction.Amount)
		assert.True(t, r.Transaction.Price.Equal(decimal.RequireFromString("72.5")))
	}

	tail, err := store.TransactionsAfter(start + 2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "tx-3", tail[0].Transaction.ID)

	none, err := store.TransactionsAfter(store.CurrentIndex())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWALStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewWALStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(tx(1)))
	require.NoError(t, store.Append(tx(2)))
	idx := store.CurrentIndex()
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, idx, reopened.CurrentIndex())
	records, err := reopened.TransactionsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "tx-2", records[1].Transaction.ID)
}

func TestWALStore_RejectsMissingID(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.Append(domain.Transaction{}))
}

func TestWALStore_NilStore(t *testing.T) {
	var store *WALStore

	assert.Error(t, store.Append(tx(1)))
	assert.Zero(t, store.CurrentIndex())
	_, err := store.TransactionsAfter(0)
	assert.Error(t, err)
}
