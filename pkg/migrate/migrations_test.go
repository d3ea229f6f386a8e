package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateFS(Files(), "migrations"))
	require.NoError(t, ValidateDir("migrations"))
}

func TestMigrationsDeclareUpsertKeys(t *testing.T) {
	expected := map[string][]string{
		"create_square_connections": {"CONSTRAINT square_connections_user_id_key UNIQUE (user_id)"},
		"create_staff_members":      {"CONSTRAINT staff_members_user_employee_key UNIQUE (user_id, square_employee_id)"},
		"create_transactions": {
			"CONSTRAINT transactions_user_square_key UNIQUE (user_id, square_transaction_id)",
			"CHECK (total_amount >= 0)",
		},
		"create_transaction_items": {
			"CONSTRAINT transaction_items_txn_name_key UNIQUE (transaction_id, item_name)",
			"CHECK (gross_amount >= 0)",
		},
		"create_weekly_reports": {"CONSTRAINT weekly_reports_user_week_key UNIQUE (user_id, week_start)"},
	}

	for suffix, statements := range expected {
		matches, err := fs.Glob(Files(), "migrations/*_"+suffix+".sql")
		require.NoError(t, err)
		require.Len(t, matches, 1, "migration %s", suffix)

		data, err := fs.ReadFile(Files(), matches[0])
		require.NoError(t, err)
		for _, stmt := range statements {
			assert.Contains(t, string(data), stmt, "migration %s", suffix)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Menu Categories!")
	require.NoError(t, err)
	assert.Regexp(t, `\d{14}_add_menu_categories\.sql$`, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}
