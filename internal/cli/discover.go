package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/interlock/internal/collect"
	"github.com/roach88/interlock/internal/relmodel"
)

// DiscoveredRole is the JSON shape of one role's discovered material.
type DiscoveredRole struct {
	Tests     []string        `json:"tests"`
	SchemaOK  bool            `json:"schema_ok"`
	Charms    []collect.Charm `json:"charms,omitempty"`
}

// DiscoveredVersion is the JSON shape of one interface version.
type DiscoveredVersion struct {
	Interface string                           `json:"interface"`
	Version   int                              `json:"version"`
	Roles     map[relmodel.Role]DiscoveredRole `json:"roles"`
}

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "discover <root>",
		Short: "List discovered interface tests, schemas and charms",
		Long: `Walk an interfaces tree and print what the harness would run:
test cases registered for each interface/version/role, whether a databag
schema was found, and which charms implement each role.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(rootOpts, args[0], filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter, "interface", "*", "glob filter on interface names")
	return cmd
}

func runDiscover(opts *RootOptions, root, filter string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	formatter.VerboseLog("collecting tests for %s from root = %s", filter, root)

	versions, errs := collect.Collect(root, filter, collect.Default())
	if len(versions) == 0 && len(errs) > 0 {
		return &ExitError{Code: ExitCommandError, Message: "discovery failed", Err: errs[0]}
	}
	for _, err := range errs {
		formatter.VerboseLog("warning: %v", err)
	}

	if opts.Format == "json" {
		out := make([]DiscoveredVersion, 0, len(versions))
		for _, iv := range versions {
			dv := DiscoveredVersion{
				Interface: iv.Name,
				Version:   iv.Version,
				Roles:     make(map[relmodel.Role]DiscoveredRole, len(iv.Roles)),
			}
			for role, rt := range iv.Roles {
				dr := DiscoveredRole{SchemaOK: rt.Schema != nil, Charms: rt.Charms}
				for _, tc := range rt.Tests {
					dr.Tests = append(dr.Tests, tc.Name)
				}
				dv.Roles[role] = dr
			}
			out = append(out, dv)
		}
		return formatter.Success(out)
	}

	printDiscoveredTree(formatter.Writer, versions)
	return nil
}

// printDiscoveredTree renders the discovered material as an indented
// tree, one interface per block.
func printDiscoveredTree(w io.Writer, versions []collect.InterfaceVersion) {
	fmt.Fprintln(w, "Discovered:")

	var lastName string
	for _, iv := range versions {
		if iv.Name != lastName {
			if lastName != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s:\n", iv.Name)
			lastName = iv.Name
		}
		fmt.Fprintf(w, "  - v%d:\n", iv.Version)

		for _, role := range relmodel.Roles {
			rt := iv.Roles[role]
			fmt.Fprintf(w, "   - %s:\n", role)

			if len(rt.Tests) == 0 {
				fmt.Fprintln(w, "     - <no tests>")
			} else {
				for _, tc := range rt.Tests {
					fmt.Fprintf(w, "      - %s\n", tc.Name)
				}
			}

			if rt.Schema != nil {
				fmt.Fprintln(w, "     - schema OK")
			} else {
				fmt.Fprintln(w, "     - schema NOT OK")
			}

			if len(rt.Charms) == 0 {
				fmt.Fprintln(w, "     - <no charms>")
			} else {
				fmt.Fprintln(w, "     - charms:")
				for _, c := range rt.Charms {
					setup := "no"
					if c.CustomTestSetup {
						setup = "yes"
					}
					fmt.Fprintf(w, "       - %s (%s) custom_test_setup=%s\n", c.Name, c.URL, setup)
				}
			}
		}
	}
}
