package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/interlock/internal/collect"
	"github.com/roach88/interlock/internal/relmodel"
)

// SchemaReport is the per-version result of schema validation.
type SchemaReport struct {
	Interface string `json:"interface"`
	Version   int    `json:"version"`
	Provider  bool   `json:"provider_schema"`
	Requirer  bool   `json:"requirer_schema"`
}

// ValidateResult aggregates schema validation over a tree.
type ValidateResult struct {
	Valid   bool           `json:"valid"`
	Schemas []SchemaReport `json:"schemas"`
	Errors  []string       `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "validate <root>",
		Short: "Validate interface schemas and metadata",
		Long: `Load every schema.cue and interface.yaml under an interfaces tree and
report all problems in one pass. Exits non-zero if anything fails to load.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter, "interface", "*", "glob filter on interface names")
	return cmd
}

func runValidate(opts *RootOptions, root, filter string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	versions, errs := collect.Collect(root, filter, collect.Default())
	if len(versions) == 0 && len(errs) > 0 {
		return &ExitError{Code: ExitCommandError, Message: "validation failed", Err: errs[0]}
	}

	result := ValidateResult{Valid: len(errs) == 0}
	for _, iv := range versions {
		result.Schemas = append(result.Schemas, SchemaReport{
			Interface: iv.Name,
			Version:   iv.Version,
			Provider:  iv.Roles[relmodel.RoleProvider].Schema != nil,
			Requirer:  iv.Roles[relmodel.RoleRequirer].Schema != nil,
		})
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, err.Error())
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		for _, sr := range result.Schemas {
			fmt.Fprintf(formatter.Writer, "%s/v%d: provider schema %s, requirer schema %s\n",
				sr.Interface, sr.Version, presence(sr.Provider), presence(sr.Requirer))
		}
		for _, msg := range result.Errors {
			fmt.Fprintf(formatter.Writer, "error: %s\n", msg)
		}
	}

	if !result.Valid {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d validation error(s)", len(result.Errors))}
	}
	return nil
}

func presence(ok bool) string {
	if ok {
		return "OK"
	}
	return "missing"
}
