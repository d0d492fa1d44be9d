package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"ledger-assistant/internal/common/errors"
)

// selectColumns is the fixed ledger projection; Table is the only
// configurable part of the statement.
const selectColumns = "SELECT property_name, tenant_name, ledger_type, ledger_category, ledger_group, year, quarter, month, amount FROM %s"

// LoadPostgres reads the full ledger table into memory. The dataset is small
// enough that a startup snapshot beats per-query round trips, and it makes
// every downstream calculation deterministic against one consistent view.
func LoadPostgres(ctx context.Context, db *sql.DB, table string) (*Store, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(selectColumns, table))
	if err != nil {
		return nil, errors.NewLedgerLoadFailedError(err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r        Row
			tenant   sql.NullString
			category sql.NullString
			group    sql.NullString
			quarter  sql.NullString
			month    sql.NullString
			year     sql.NullString
		)
		if err := rows.Scan(&r.Property, &tenant, &r.LedgerType, &category, &group, &year, &quarter, &month, &r.Amount); err != nil {
			return nil, errors.NewLedgerLoadFailedError(err)
		}
		r.Tenant = tenant.String
		r.LedgerCategory = category.String
		r.LedgerGroup = group.String
		r.Year = year.String
		r.Quarter = quarter.String
		r.Month = month.String
		out = append(out, canonicalRow(r))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewLedgerLoadFailedError(err)
	}
	if len(out) == 0 {
		return nil, errors.NewLedgerLoadFailedError(fmt.Errorf("table %s is empty", table))
	}
	return NewStore(out), nil
}
