package collect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/interlock/internal/relmodel"
	"github.com/roach88/interlock/internal/tester"
)

const tracingSchema = `
provider: {
	app: {
		host: string
	}
}
requirer: {
	app: {
		url: string
	}
}
`

const tracingMetadata = `
providers:
  - name: tempo-k8s
    url: https://github.com/canonical/tempo-k8s-operator
requirers:
  - name: foo-k8s
    url: https://github.com/canonical/foo-k8s-operator
    custom_test_setup: true
`

func noopTest(*tester.Scope) error { return nil }

// writeTree lays out an interfaces tree in a temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestCollect(t *testing.T) {
	root := writeTree(t, map[string]string{
		"interfaces/tracing/v42/schema.cue":     tracingSchema,
		"interfaces/tracing/v42/interface.yaml": tracingMetadata,
		"interfaces/database/v1/schema.cue":     "requirer: {\n\tapp: {\n\t\thost: string\n\t}\n}\n",
	})

	reg := NewRegistry()
	reg.MustRegister("tracing", 42, relmodel.RoleProvider, "test_no_data_on_created", noopTest)
	reg.MustRegister("tracing", 42, relmodel.RoleProvider, "test_data_on_changed", noopTest)
	reg.MustRegister("tracing", 42, relmodel.RoleRequirer, "test_no_data_on_joined", noopTest)

	versions, errs := Collect(root, "*", reg)
	require.Empty(t, errs)
	require.Len(t, versions, 2)

	// Sorted by name: database first.
	db := versions[0]
	assert.Equal(t, "database", db.Name)
	assert.Equal(t, 1, db.Version)
	assert.Nil(t, db.Roles[relmodel.RoleProvider].Schema)
	assert.NotNil(t, db.Roles[relmodel.RoleRequirer].Schema)
	assert.Empty(t, db.Roles[relmodel.RoleProvider].Tests)

	tracing := versions[1]
	assert.Equal(t, "tracing", tracing.Name)
	assert.Equal(t, 42, tracing.Version)

	provider := tracing.Roles[relmodel.RoleProvider]
	require.Len(t, provider.Tests, 2)
	// Cases come back sorted by name.
	assert.Equal(t, "test_data_on_changed", provider.Tests[0].Name)
	assert.Equal(t, "test_no_data_on_created", provider.Tests[1].Name)
	require.Len(t, provider.Charms, 1)
	assert.Equal(t, "tempo-k8s", provider.Charms[0].Name)
	assert.False(t, provider.Charms[0].CustomTestSetup)
	require.NotNil(t, provider.Schema)

	requirer := tracing.Roles[relmodel.RoleRequirer]
	require.Len(t, requirer.Tests, 1)
	require.Len(t, requirer.Charms, 1)
	assert.True(t, requirer.Charms[0].CustomTestSetup)
}

func TestCollect_Filter(t *testing.T) {
	root := writeTree(t, map[string]string{
		"interfaces/tracing/v1/schema.cue":  "provider: {}",
		"interfaces/database/v1/schema.cue": "provider: {}",
	})

	versions, errs := Collect(root, "trac*", NewRegistry())
	require.Empty(t, errs)
	require.Len(t, versions, 1)
	assert.Equal(t, "tracing", versions[0].Name)
}

func TestCollect_IgnoresNonVersionDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"interfaces/tracing/v1/schema.cue":      "provider: {}",
		"interfaces/tracing/notes/README":       "not a version",
		"interfaces/tracing/v1x/schema.cue":     "provider: {}",
		"interfaces/tracing/stray-file.txt":     "ignored",
	})

	versions, errs := Collect(root, "*", NewRegistry())
	require.Empty(t, errs)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)
}

func TestCollect_CollectsErrorsAndContinues(t *testing.T) {
	root := writeTree(t, map[string]string{
		"interfaces/broken/v1/schema.cue":  "provider: {",
		"interfaces/tracing/v1/schema.cue": "provider: {}",
	})

	versions, errs := Collect(root, "*", NewRegistry())
	require.Len(t, errs, 1)
	// The broken version still appears, without its schema.
	require.Len(t, versions, 2)
	assert.Nil(t, versions[0].Roles[relmodel.RoleProvider].Schema)
	assert.NotNil(t, versions[1].Roles[relmodel.RoleProvider].Schema)
}

func TestCollect_MissingRoot(t *testing.T) {
	_, errs := Collect(filepath.Join(t.TempDir(), "nope"), "*", NewRegistry())
	require.Len(t, errs, 1)
}

func TestCollect_MalformedMetadata(t *testing.T) {
	root := writeTree(t, map[string]string{
		"interfaces/tracing/v1/interface.yaml": "providers: [unclosed",
	})

	versions, errs := Collect(root, "*", NewRegistry())
	require.Len(t, errs, 1)
	require.Len(t, versions, 1)
	assert.Empty(t, versions[0].Roles[relmodel.RoleProvider].Charms)
}

func TestRegistry_DuplicateName(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("db", 1, relmodel.RoleProvider, "test_a", noopTest))
	err := reg.Register("db", 1, relmodel.RoleProvider, "test_a", noopTest)
	assert.Error(t, err)
}

func TestRegistry_Validation(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register("", 1, relmodel.RoleProvider, "test_a", noopTest))
	assert.Error(t, reg.Register("db", -1, relmodel.RoleProvider, "test_a", noopTest))
	assert.Error(t, reg.Register("db", 1, "neither", "test_a", noopTest))
	assert.Error(t, reg.Register("db", 1, relmodel.RoleProvider, "", noopTest))
	assert.Error(t, reg.Register("db", 1, relmodel.RoleProvider, "test_a", nil))
}
