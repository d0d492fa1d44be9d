package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-assistant/internal/common/errors"
)

var ledgerColumns = []string{
	"property_name", "tenant_name", "ledger_type", "ledger_category",
	"ledger_group", "year", "quarter", "month", "amount",
}

func TestLoadPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(ledgerColumns).
		AddRow("Building 1", "Tenant A", "Revenue", "Rental Income", "Income", "2024", "Q1", "January", 10000.0).
		AddRow("Building 1", nil, "Expenses", "Maintenance", "Operating", "2024", "Q1", "January", -3000.0)

	mock.ExpectQuery("SELECT property_name, tenant_name, ledger_type").
		WillReturnRows(rows)

	store, err := LoadPostgres(context.Background(), db, "financial_ledger")
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, []string{"Building 1"}, store.Properties())
	// NULL tenant stays out of the universe.
	assert.Equal(t, []string{"Tenant A"}, store.Tenants())

	// Loaded rows come out canonicalized.
	scanned := store.Scan(Filter{Quarter: "2024-Q1", Month: "2024-M01"})
	assert.Len(t, scanned, 2)
	assert.Equal(t, TypeRevenue, scanned[0].LedgerType)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadPostgresQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT property_name").
		WillReturnError(fmt.Errorf("relation does not exist"))

	_, err = LoadPostgres(context.Background(), db, "financial_ledger")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeLedgerLoadFailed))
}

func TestLoadPostgresEmptyTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT property_name").
		WillReturnRows(sqlmock.NewRows(ledgerColumns))

	_, err = LoadPostgres(context.Background(), db, "financial_ledger")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeLedgerLoadFailed))
}
