package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/interlock/internal/relmodel"
)

// SchemaFileName is the conventional schema file inside a version
// directory.
const SchemaFileName = "schema.cue"

// RoleSchemas holds the compiled schemas declared by one interface
// version, keyed by role. Either side may be nil when the file declares
// no schema for that role.
type RoleSchemas struct {
	Provider *DataBagSchema
	Requirer *DataBagSchema
}

// ForRole returns the schema for the given role, or nil.
func (rs RoleSchemas) ForRole(role relmodel.Role) *DataBagSchema {
	switch role {
	case relmodel.RoleProvider:
		return rs.Provider
	case relmodel.RoleRequirer:
		return rs.Requirer
	}
	return nil
}

// LoadError reports a failure to read or compile a schema file.
type LoadError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// LoadDir loads the schema.cue file from a version directory and compiles
// its "provider" and "requirer" declarations.
//
// A missing schema file is not an error: interfaces may ship tests without
// schemas, and the harness surfaces that as NoSchemaError only when a test
// actually asks for schema validation. Compile failures are errors.
func LoadDir(dir string) (RoleSchemas, error) {
	path := filepath.Join(dir, SchemaFileName)
	src, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return RoleSchemas{}, nil
	}
	if err != nil {
		return RoleSchemas{}, &LoadError{Path: path, Message: err.Error()}
	}
	return Compile(path, src)
}

// Compile compiles CUE source into RoleSchemas. path is used for error
// positions only.
func Compile(path string, src []byte) (RoleSchemas, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(path))
	if err := value.Err(); err != nil {
		return RoleSchemas{}, &LoadError{Path: path, Message: fmt.Sprintf("compiling schema: %v", err)}
	}

	var out RoleSchemas
	for _, role := range relmodel.Roles {
		v := value.LookupPath(cue.ParsePath(string(role)))
		if !v.Exists() {
			continue
		}
		s, err := FromValue(string(role), v)
		if err != nil {
			return RoleSchemas{}, &LoadError{Path: path, Message: err.Error()}
		}
		switch role {
		case relmodel.RoleProvider:
			out.Provider = s
		case relmodel.RoleRequirer:
			out.Requirer = s
		}
	}
	return out, nil
}
