package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/interlock/internal/relmodel"
)

const testSchema = `
provider: {
	app: {
		url: string
	}
}
requirer: {
	app: {
		host: string
		port: int
	}
	unit: {
		address: string
	}
}
`

func compileTestSchemas(t *testing.T) RoleSchemas {
	t.Helper()
	rs, err := Compile("schema.cue", []byte(testSchema))
	require.NoError(t, err)
	require.NotNil(t, rs.Provider)
	require.NotNil(t, rs.Requirer)
	return rs
}

func TestValidate_Conforming(t *testing.T) {
	rs := compileTestSchemas(t)

	err := rs.Provider.Validate(DatabagPair{
		App: relmodel.Databag{"url": `"https://example.com"`},
	})
	assert.NoError(t, err)
}

func TestValidate_PlainStringValue(t *testing.T) {
	rs := compileTestSchemas(t)

	// Values that are not valid JSON are treated as plain strings.
	err := rs.Provider.Validate(DatabagPair{
		App: relmodel.Databag{"url": "https://example.com"},
	})
	assert.NoError(t, err)
}

func TestValidate_MissingRequiredField(t *testing.T) {
	rs := compileTestSchemas(t)

	err := rs.Provider.Validate(DatabagPair{App: relmodel.Databag{}})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "provider", verr.Schema)
	assert.NotEmpty(t, verr.Messages)
}

func TestValidate_WrongType(t *testing.T) {
	rs := compileTestSchemas(t)

	err := rs.Requirer.Validate(DatabagPair{
		App:  relmodel.Databag{"host": "example", "port": "not-a-number"},
		Unit: relmodel.Databag{"address": "10.0.0.1"},
	})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "requirer", verr.Schema)
}

func TestValidate_CollectsAppAndUnitViolations(t *testing.T) {
	rs := compileTestSchemas(t)

	// Both scopes violate: app misses host and port, unit misses address.
	err := rs.Requirer.Validate(DatabagPair{})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	var hasApp, hasUnit bool
	for _, m := range verr.Messages {
		switch {
		case len(m) > 4 && m[:4] == "app:":
			hasApp = true
		case len(m) > 5 && m[:5] == "unit:":
			hasUnit = true
		}
	}
	assert.True(t, hasApp, "expected app-scope violations, got %v", verr.Messages)
	assert.True(t, hasUnit, "expected unit-scope violations, got %v", verr.Messages)
}

func TestValidate_JSONEncodedValue(t *testing.T) {
	rs, err := Compile("schema.cue", []byte(`
provider: {
	app: {
		ingesters: [...{port: int, protocol: string}]
	}
}
`))
	require.NoError(t, err)

	err = rs.Provider.Validate(DatabagPair{
		App: relmodel.Databag{
			"ingesters": `[{"port": 4317, "protocol": "otlp_grpc"}]`,
		},
	})
	assert.NoError(t, err)

	err = rs.Provider.Validate(DatabagPair{
		App: relmodel.Databag{
			"ingesters": `[{"port": "not-int", "protocol": "zipkin"}]`,
		},
	})
	assert.Error(t, err)
}

func TestValidate_UndeclaredScopeIgnored(t *testing.T) {
	rs := compileTestSchemas(t)

	// The provider schema declares no unit constraint; unit data passes.
	err := rs.Provider.Validate(DatabagPair{
		App:  relmodel.Databag{"url": "https://example.com"},
		Unit: relmodel.Databag{"anything": "goes"},
	})
	assert.NoError(t, err)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile("schema.cue", []byte(`provider: {`))
	require.Error(t, err)

	var lerr *LoadError
	assert.ErrorAs(t, err, &lerr)
}

func TestCompile_NonStructRole(t *testing.T) {
	_, err := Compile("schema.cue", []byte(`provider: 42`))
	require.Error(t, err)
}
