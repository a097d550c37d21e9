package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/interlock/internal/collect"
	"github.com/roach88/interlock/internal/relmodel"
	"github.com/roach88/interlock/internal/results"
	"github.com/roach88/interlock/internal/tester"
)

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

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

// register adds a case to the default registry, tolerating repeats across
// tests in the same process.
func register(iface string, version int, role relmodel.Role, name string, fn collect.TestFunc) {
	_ = collect.Register(iface, version, role, name, fn)
}

func discoverFixture(t *testing.T) string {
	t.Helper()
	root := writeTree(t, map[string]string{
		"interfaces/database/v1/schema.cue": "requirer: {\n\tapp: {\n\t\thost: string\n\t}\n}\n",
		"interfaces/tracing/v42/schema.cue": "provider: {\n\tapp: {\n\t\thost: string\n\t}\n}\nrequirer: {}\n",
		"interfaces/tracing/v42/interface.yaml": `
providers:
  - name: tempo-k8s
    url: https://github.com/canonical/tempo-k8s-operator
`,
	})

	skipBody := func(s *tester.Scope) error {
		tst, err := s.NewTester()
		if err != nil {
			return err
		}
		if _, err := tst.Run(context.Background(), tester.NamedEvent("tracing-relation-created")); err != nil {
			return err
		}
		return tst.SkipSchemaValidation()
	}
	register("tracing", 42, relmodel.RoleProvider, "test_data_on_changed", skipBody)
	register("tracing", 42, relmodel.RoleProvider, "test_no_data_on_created", skipBody)
	return root
}

func TestDiscover_TreeOutput(t *testing.T) {
	root := discoverFixture(t)

	out, err := execute(t, "discover", root)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "discover_tree", []byte(out))
}

func TestDiscover_JSON(t *testing.T) {
	root := discoverFixture(t)

	out, err := execute(t, "--format", "json", "discover", root, "--interface", "tracing")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := execute(t, "discover", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_TextAndFailure(t *testing.T) {
	root := writeTree(t, map[string]string{
		"interfaces/good/v1/schema.cue":   "provider: {}",
		"interfaces/broken/v2/schema.cue": "provider: {",
	})

	out, err := execute(t, "validate", root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "good/v1: provider schema OK")
	assert.Contains(t, out, "error:")
}

func TestValidate_CleanTree(t *testing.T) {
	root := writeTree(t, map[string]string{
		"interfaces/good/v1/schema.cue": "provider: {}",
	})

	out, err := execute(t, "validate", root)
	require.NoError(t, err)
	assert.Contains(t, out, "requirer schema missing")
}

func TestRun_PassAndRecord(t *testing.T) {
	root := writeTree(t, map[string]string{
		"interfaces/clipass/v1/schema.cue": "provider: {}",
	})

	register("clipass", 1, relmodel.RoleProvider, "test_no_data_on_created",
		func(s *tester.Scope) error {
			tst, err := s.NewTester()
			if err != nil {
				return err
			}
			if _, err := tst.Run(context.Background(), tester.NamedEvent("clipass-relation-created")); err != nil {
				return err
			}
			return tst.AssertRelationDataEmpty()
		})

	db := filepath.Join(t.TempDir(), "results.db")
	out, err := execute(t, "run", root, "--interface", "clipass", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "pass")
	assert.Contains(t, out, "1 passed, 0 failed, 0 errored")

	store, err := results.Open(db)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.List(context.Background(), "clipass", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, results.OutcomePass, runs[0].Outcome)
}

func TestRun_SchemaFailure(t *testing.T) {
	// The dry-run runtime writes no data, so a schema demanding a host
	// field must fail.
	root := writeTree(t, map[string]string{
		"interfaces/clifail/v1/schema.cue": "provider: {\n\tapp: {\n\t\thost: string\n\t}\n}\n",
	})

	register("clifail", 1, relmodel.RoleProvider, "test_data_on_changed",
		func(s *tester.Scope) error {
			tst, err := s.NewTester()
			if err != nil {
				return err
			}
			if _, err := tst.Run(context.Background(), tester.NamedEvent("clifail-relation-changed")); err != nil {
				return err
			}
			return tst.AssertSchemaValid(nil)
		})

	out, err := execute(t, "run", root, "--interface", "clifail")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "fail")
	assert.Contains(t, out, "0 passed, 1 failed, 0 errored")
}

func TestRun_LifecycleViolationIsError(t *testing.T) {
	root := writeTree(t, map[string]string{
		"interfaces/clilife/v1/schema.cue": "provider: {}",
	})

	// The body forgets to resolve the schema decision; the scope close
	// turns that into an error outcome.
	register("clilife", 1, relmodel.RoleProvider, "test_forgets_assertion",
		func(s *tester.Scope) error {
			tst, err := s.NewTester()
			if err != nil {
				return err
			}
			_, err = tst.Run(context.Background(), tester.NamedEvent("clilife-relation-created"))
			return err
		})

	out, err := execute(t, "run", root, "--interface", "clilife")
	require.Error(t, err)
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "SCHEMA_UNRESOLVED")
}

func TestRun_RoleFilter(t *testing.T) {
	root := writeTree(t, map[string]string{
		"interfaces/clirole/v1/schema.cue": "provider: {}",
	})

	register("clirole", 1, relmodel.RoleProvider, "test_provider_side",
		func(s *tester.Scope) error {
			tst, err := s.NewTester()
			if err != nil {
				return err
			}
			if _, err := tst.Run(context.Background(), tester.NamedEvent("clirole-relation-created")); err != nil {
				return err
			}
			return tst.SkipSchemaValidation()
		})

	out, err := execute(t, "run", root, "--interface", "clirole", "--role", "requirer")
	require.NoError(t, err)
	assert.Contains(t, out, "0 passed, 0 failed, 0 errored")

	_, err = execute(t, "run", root, "--interface", "clirole", "--role", "neither")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReport(t *testing.T) {
	db := filepath.Join(t.TempDir(), "results.db")
	store, err := results.Open(db)
	require.NoError(t, err)
	_, err = store.Record(context.Background(), results.Run{
		Interface: "tracing", Version: 42, Role: relmodel.RoleProvider,
		TestName: "test_data_on_changed", Outcome: results.OutcomePass,
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, err := execute(t, "report", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "tracing/v42")
	assert.Contains(t, out, "test_data_on_changed")
	assert.Contains(t, out, "pass")
}

func TestReport_EmptyDB(t *testing.T) {
	db := filepath.Join(t.TempDir(), "results.db")
	out, err := execute(t, "report", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "no recorded runs")
}

func TestRoot_InvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "report", "--db", "x")
	assert.Error(t, err)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(&ExitError{Code: ExitCommandError}))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}
