package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/interlock/internal/relmodel"
	"github.com/roach88/interlock/internal/schema"
)

// InterfacesDirName is the conventional top-level directory holding one
// subdirectory per interface.
const InterfacesDirName = "interfaces"

// MetadataFileName is the per-version metadata file naming the charms
// that implement each role.
const MetadataFileName = "interface.yaml"

var versionDirRegexp = regexp.MustCompile(`^v(\d+)$`)

// Charm references one implementation of an interface role.
type Charm struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`

	// CustomTestSetup marks charms that ship their own harness wiring
	// instead of the default one.
	CustomTestSetup bool `yaml:"custom_test_setup,omitempty"`
}

// interfaceMetadata is the on-disk shape of interface.yaml.
type interfaceMetadata struct {
	Providers []Charm `yaml:"providers"`
	Requirers []Charm `yaml:"requirers"`
}

// RoleTests is the discovered material for one role of one interface
// version.
type RoleTests struct {
	Tests  []TestCase
	Schema *schema.DataBagSchema
	Charms []Charm
}

// InterfaceVersion is the discovered material for one interface version.
type InterfaceVersion struct {
	Name    string
	Version int
	Dir     string
	Roles   map[relmodel.Role]RoleTests
}

// Collect walks the interfaces tree under root and pairs what it finds
// with the registered test cases. filter is a glob on interface names
// ("*" matches all).
//
// Unreadable metadata and malformed schemas are collected as errors, not
// fatal: discovery reports everything it could resolve alongside
// everything it could not, matching the loader convention of collecting
// all problems in one pass. Results are sorted by name then version.
func Collect(root, filter string, reg *Registry) ([]InterfaceVersion, []error) {
	if filter == "" {
		filter = "*"
	}
	if reg == nil {
		reg = Default()
	}

	interfacesDir := filepath.Join(root, InterfacesDirName)
	entries, err := os.ReadDir(interfacesDir)
	if err != nil {
		return nil, []error{fmt.Errorf("reading interfaces dir: %w", err)}
	}

	var out []InterfaceVersion
	var errs []error

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ok, _ := filepath.Match(filter, name); !ok {
			continue
		}

		versions, verrs := collectInterface(filepath.Join(interfacesDir, name), name, reg)
		out = append(out, versions...)
		errs = append(errs, verrs...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out, errs
}

func collectInterface(dir, name string, reg *Registry) ([]InterfaceVersion, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("reading %s: %w", dir, err)}
	}

	var out []InterfaceVersion
	var errs []error

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m := versionDirRegexp.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			// Unreachable given the regexp; guard anyway.
			continue
		}

		versionDir := filepath.Join(dir, entry.Name())
		iv, verrs := collectVersion(versionDir, name, version, reg)
		out = append(out, iv)
		errs = append(errs, verrs...)
	}
	return out, errs
}

func collectVersion(dir, name string, version int, reg *Registry) (InterfaceVersion, []error) {
	var errs []error

	schemas, err := schema.LoadDir(dir)
	if err != nil {
		errs = append(errs, err)
	}

	meta, err := loadMetadata(dir)
	if err != nil {
		errs = append(errs, err)
	}

	iv := InterfaceVersion{
		Name:    name,
		Version: version,
		Dir:     dir,
		Roles:   make(map[relmodel.Role]RoleTests, len(relmodel.Roles)),
	}
	for _, role := range relmodel.Roles {
		rt := RoleTests{
			Tests:  reg.Cases(name, version, role),
			Schema: schemas.ForRole(role),
		}
		switch role {
		case relmodel.RoleProvider:
			rt.Charms = meta.Providers
		case relmodel.RoleRequirer:
			rt.Charms = meta.Requirers
		}
		iv.Roles[role] = rt
	}
	return iv, errs
}

// loadMetadata reads interface.yaml from a version directory. A missing
// file yields empty metadata; a malformed one is an error.
func loadMetadata(dir string) (interfaceMetadata, error) {
	path := filepath.Join(dir, MetadataFileName)
	src, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return interfaceMetadata{}, nil
	}
	if err != nil {
		return interfaceMetadata{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var meta interfaceMetadata
	if err := yaml.Unmarshal(src, &meta); err != nil {
		return interfaceMetadata{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return meta, nil
}
