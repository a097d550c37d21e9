package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/interlock/internal/relmodel"
)

func TestLoadDir_MissingFileIsNotAnError(t *testing.T) {
	rs, err := LoadDir(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, rs.Provider)
	assert.Nil(t, rs.Requirer)
}

func TestLoadDir_LoadsBothRoles(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, SchemaFileName), []byte(testSchema), 0o644)
	require.NoError(t, err)

	rs, err := LoadDir(dir)
	require.NoError(t, err)
	require.NotNil(t, rs.Provider)
	require.NotNil(t, rs.Requirer)

	assert.Same(t, rs.Provider, rs.ForRole(relmodel.RoleProvider))
	assert.Same(t, rs.Requirer, rs.ForRole(relmodel.RoleRequirer))
}

func TestLoadDir_SingleRole(t *testing.T) {
	dir := t.TempDir()
	src := []byte("requirer: {\n\tapp: {\n\t\thost: string\n\t}\n}\n")
	err := os.WriteFile(filepath.Join(dir, SchemaFileName), src, 0o644)
	require.NoError(t, err)

	rs, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Nil(t, rs.Provider)
	require.NotNil(t, rs.Requirer)
	assert.Equal(t, "requirer", rs.Requirer.Name())
}

func TestLoadDir_CompileError(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, SchemaFileName), []byte("provider: {"), 0o644)
	require.NoError(t, err)

	_, err = LoadDir(dir)
	require.Error(t, err)

	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Contains(t, lerr.Path, SchemaFileName)
}
