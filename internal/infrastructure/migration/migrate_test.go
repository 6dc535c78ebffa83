package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListVersions_ProjectMigrations(t *testing.T) {
	path, err := filepath.Abs(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)

	versions, err := ListVersions(path)
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, uint(1), versions[0])
	for i := 1; i < len(versions); i++ {
		assert.Greater(t, versions[i], versions[i-1])
	}
}

func TestListVersions_MissingDown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_init.up.sql"), []byte("SELECT 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_init.down.sql"), []byte("SELECT 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000002_alerts.up.sql"), []byte("SELECT 1;"), 0o644))

	_, err := ListVersions(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 2 has no down migration")
}

func TestListVersions_EmptyDirectory(t *testing.T) {
	versions, err := ListVersions(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestSourceURL(t *testing.T) {
	assert.Equal(t, "file:///srv/cafe/migrations", sourceURL("/srv/cafe/migrations"))
}

func TestProjectSchema_MatchesDomainRules(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "000001_create_deduction_schema.up.sql"))
	require.NoError(t, err)
	schema := string(raw)

	// optional components may carry a zero base quantity
	assert.Contains(t, schema, "CHECK (base_quantity >= 0)")
	assert.NotContains(t, schema, "CHECK (base_quantity > 0)")

	// ledger amounts are rounded to the column scale before they are written
	assert.Equal(t, int32(4), inventory.QuantityScale)
	for _, line := range strings.Split(schema, "\n") {
		if strings.Contains(line, "DECIMAL(") {
			assert.Contains(t, line, "DECIMAL(18, 4)", line)
		}
	}
}
