package financestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "finance.yaml")
	store := NewFileStore(path, logging.NewMockLogger())

	people, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, people)

	saved, err := store.Save(ctx, samplePerson())
	require.NoError(t, err)
	assert.True(t, saved.RemainingAmount.Equal(dec(600)))

	_, err = store.Save(ctx, models.PersonFinance{PersonName: "Bobur", TotalAmount: dec(50)})
	require.NoError(t, err)

	updated, err := store.AddPayment(ctx, "ALI", models.Payment{Amount: dec(100), Note: "cash"})
	require.NoError(t, err)
	assert.True(t, updated.RemainingAmount.Equal(dec(500)))

	reopened := NewFileStore(path, logging.NewMockLogger())
	people, err = reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Ali", people[0].PersonName, "records are stored sorted by name")
	assert.Len(t, people[0].Payments, 2)
	assert.Equal(t, "cash", people[0].Payments[1].Note)
	assert.True(t, people[0].Wagons[0].Amount.Equal(dec(1000)))

	require.NoError(t, reopened.Delete(ctx, " bobur "))
	people, err = reopened.List(ctx)
	require.NoError(t, err)
	assert.Len(t, people, 1)
}

func TestFileStore_OverwriteIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "finance.yaml"), logging.NewMockLogger())

	_, err := store.Save(ctx, models.PersonFinance{PersonName: "Ali", TotalAmount: dec(10)})
	require.NoError(t, err)
	_, err = store.Save(ctx, models.PersonFinance{PersonName: "ali", TotalAmount: dec(20)})
	require.NoError(t, err)

	people, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.True(t, people[0].TotalAmount.Equal(dec(20)))
}

func TestFileStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "finance.yaml"), logging.NewMockLogger())

	_, err := store.AddPayment(ctx, "nobody", models.Payment{Amount: dec(1)})
	assert.True(t, errors.Is(err, ledgererror.ErrNotFound))

	assert.True(t, errors.Is(store.Delete(ctx, "nobody"), ledgererror.ErrNotFound))

	_, err = store.Save(ctx, models.PersonFinance{})
	assert.True(t, ledgererror.IsValidation(err))
}

func TestFileStore_BareListAndCorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	bare := filepath.Join(dir, "bare.yaml")
	require.NoError(t, os.WriteFile(bare, []byte("- person_name: Ali\n  total_amount: \"100\"\n  paid_amount: \"40\"\n"), 0600))
	people, err := NewFileStore(bare, logging.NewMockLogger()).List(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.True(t, people[0].RemainingAmount.Equal(dec(60)))

	corrupt := filepath.Join(dir, "corrupt.yaml")
	require.NoError(t, os.WriteFile(corrupt, []byte("records: [unclosed"), 0600))
	_, err = NewFileStore(corrupt, logging.NewMockLogger()).List(ctx)
	assert.Error(t, err)
}
