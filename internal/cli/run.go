package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/interlock/internal/collect"
	"github.com/roach88/interlock/internal/relmodel"
	"github.com/roach88/interlock/internal/results"
	"github.com/roach88/interlock/internal/runtime"
	"github.com/roach88/interlock/internal/tester"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Filter        string
	Role          string
	RuntimeConfig string
	DBPath        string
}

// TestOutcome is one executed test case in the run summary.
type TestOutcome struct {
	Interface string          `json:"interface"`
	Version   int             `json:"version"`
	Role      relmodel.Role   `json:"role"`
	Test      string          `json:"test"`
	Outcome   results.Outcome `json:"outcome"`
	Message   string          `json:"message,omitempty"`
}

// RunSummary aggregates a run invocation.
type RunSummary struct {
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Errored  int           `json:"errored"`
	Outcomes []TestOutcome `json:"outcomes"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <root>",
		Short: "Run registered conformance tests",
		Long: `Execute every registered test case discovered under an interfaces tree.

Without a real implementation runtime attached this is a dry run against
a pass-through runtime: it exercises test wiring, relation merging, event
coercion and the full tester lifecycle, and validates schemas against
whatever data the runtime produced.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "interface", "*", "glob filter on interface names")
	cmd.Flags().StringVar(&opts.Role, "role", "", "only run tests for one role (provider|requirer)")
	cmd.Flags().StringVar(&opts.RuntimeConfig, "runtime-config", "", "YAML runtime config bundle for the implementation under test")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record outcomes to this results database")
	return cmd
}

func runTests(rootOpts *RootOptions, opts *RunOptions, root string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	var roleFilter relmodel.Role
	if opts.Role != "" {
		r, err := relmodel.ParseRole(opts.Role)
		if err != nil {
			return &ExitError{Code: ExitCommandError, Message: "invalid --role", Err: err}
		}
		roleFilter = r
	}

	cfg := runtime.Config{Name: "dry-run"}
	if opts.RuntimeConfig != "" {
		loaded, err := runtime.LoadConfig(opts.RuntimeConfig)
		if err != nil {
			return &ExitError{Code: ExitCommandError, Message: "loading runtime config", Err: err}
		}
		cfg = loaded
	}

	var store *results.Store
	if opts.DBPath != "" {
		s, err := results.Open(opts.DBPath)
		if err != nil {
			return &ExitError{Code: ExitCommandError, Message: "opening results database", Err: err}
		}
		defer s.Close()
		store = s
	}

	versions, errs := collect.Collect(root, opts.Filter, collect.Default())
	if len(versions) == 0 && len(errs) > 0 {
		return &ExitError{Code: ExitCommandError, Message: "discovery failed", Err: errs[0]}
	}
	for _, err := range errs {
		formatter.VerboseLog("warning: %v", err)
	}

	var logger *slog.Logger
	if rootOpts.Verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	}

	summary := &RunSummary{}
	for _, iv := range versions {
		for _, role := range relmodel.Roles {
			if roleFilter != "" && role != roleFilter {
				continue
			}
			rt := iv.Roles[role]
			for _, tc := range rt.Tests {
				outcome := executeCase(iv, role, rt, tc, cfg, logger)
				summary.Outcomes = append(summary.Outcomes, outcome)
				switch outcome.Outcome {
				case results.OutcomePass:
					summary.Passed++
				case results.OutcomeFail:
					summary.Failed++
				default:
					summary.Errored++
				}

				if store != nil {
					_, err := store.Record(context.Background(), results.Run{
						Interface: outcome.Interface,
						Version:   outcome.Version,
						Role:      outcome.Role,
						TestName:  outcome.Test,
						Outcome:   outcome.Outcome,
						Message:   outcome.Message,
					})
					if err != nil {
						return &ExitError{Code: ExitCommandError, Message: "recording outcome", Err: err}
					}
				}

				if rootOpts.Format != "json" {
					fmt.Fprintf(formatter.Writer, "%-5s %s/v%d/%s :: %s",
						outcome.Outcome, outcome.Interface, outcome.Version, outcome.Role, outcome.Test)
					if outcome.Message != "" {
						fmt.Fprintf(formatter.Writer, " (%s)", outcome.Message)
					}
					fmt.Fprintln(formatter.Writer)
				}
			}
		}
	}

	if rootOpts.Format == "json" {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "\n%d passed, %d failed, %d errored\n",
			summary.Passed, summary.Failed, summary.Errored)
	}

	if summary.Failed > 0 || summary.Errored > 0 {
		return &ExitError{
			Code:    ExitFailure,
			Message: fmt.Sprintf("%d test(s) did not pass", summary.Failed+summary.Errored),
		}
	}
	return nil
}

// executeCase runs one test case through a full scope lifecycle and
// classifies the outcome.
func executeCase(iv collect.InterfaceVersion, role relmodel.Role, rt collect.RoleTests, tc collect.TestCase, cfg runtime.Config, logger *slog.Logger) TestOutcome {
	out := TestOutcome{
		Interface: iv.Name,
		Version:   iv.Version,
		Role:      role,
		Test:      tc.Name,
	}

	ctx := &tester.Context{
		Interface: iv.Name,
		Version:   iv.Version,
		Role:      role,
		Schema:    rt.Schema,
		SupportedEndpoints: map[relmodel.Role][]string{
			role: {iv.Name},
		},
		Runtime:       runtime.NewScriptRuntime(),
		RuntimeConfig: cfg,
		Logger:        logger,
	}

	scope, err := tester.Enter(ctx)
	if err != nil {
		out.Outcome = results.OutcomeError
		out.Message = err.Error()
		return out
	}

	runErr := tc.Run(scope)
	closeErr := scope.Close()

	err = errors.Join(runErr, closeErr)
	if err == nil {
		out.Outcome = results.OutcomePass
		return out
	}

	out.Message = err.Error()
	var verr *tester.SchemaValidationError
	if errors.As(err, &verr) {
		out.Outcome = results.OutcomeFail
	} else {
		out.Outcome = results.OutcomeError
	}
	return out
}
