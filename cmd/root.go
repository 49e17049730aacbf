// Package cmd provides the CLI commands for branchkeeper.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/branchkeeper/internal/domain"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// AppConfig holds application configuration loaded by ConfigLoader.
type AppConfig struct {
	AuthorName  string
	AuthorEmail string
	Signoff     bool
	ForgeToken  string
	ForgeOwner  string
	ForgeRepo   string
	LogLevel    string
}

// Publisher opens or updates a pull request once a reconcile produces a
// non-none outcome. Left nil when forge configuration is absent.
type Publisher interface {
	OpenOrUpdate(ctx context.Context, owner, repo, base, head, title string) (int, error)
}

// OutcomeRecorder appends a reconcile outcome to the audit trail. Left nil
// when audit configuration is absent.
type OutcomeRecorder interface {
	Record(ctx context.Context, base, branch string, outcome domain.ReconcileOutcome) error
}

// Dependencies holds all injectable dependencies for the command. This
// enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func() (*AppConfig, error)

	// VcsDriverFactory opens a VcsDriver bound to the repository at path.
	VcsDriverFactory func(path string) (domain.VcsDriver, error)

	// ReconcilerFactory builds a Reconciler from a VcsDriver and the
	// configured commit identity.
	ReconcilerFactory func(driver domain.VcsDriver, cfg *AppConfig) domain.Reconciler

	// PublisherFactory builds a Publisher when forge configuration is
	// present; returns nil when no forge token is configured. It is only
	// called when --publish was requested.
	PublisherFactory func(cfg *AppConfig) Publisher

	// RecorderFactory builds an OutcomeRecorder when audit configuration
	// is present; returns nil otherwise.
	RecorderFactory func(cfg *AppConfig) (OutcomeRecorder, error)

	// Stdout is the writer for standard output.
	Stdout io.Writer

	// Stderr is the writer for standard error (warnings/errors).
	Stderr io.Writer
}

// Command-line flags.
var (
	message string
	base    string
	branch  string
	signoff bool
	doPush  bool
	publish bool
	verbose bool
)

// defaultDeps holds the production dependencies, set by the production
// wiring in main before Execute().
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for branchkeeper.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency
// injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "branchkeeper",
		Short:        "Reconcile pull request branches from a working tree",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.AddCommand(newReconcileCmd(deps))

	return rootCmd
}

// newReconcileCmd builds the "reconcile" subcommand: it runs the branch
// reconciliation algorithm and prints the outcome as JSON to stdout.
// --push and --publish are opt-in steps layered after the reconcile.
func newReconcileCmd(deps *Dependencies) *cobra.Command {
	reconcileCmd := &cobra.Command{
		Use:   "reconcile [path]",
		Short: "Create or update a pull request branch from the working tree",
		Long: `reconcile materializes uncommitted changes and workflow commits as a
pull request branch on top of a base branch, creating it fresh or updating
it in place.

Examples:
  # Reconcile the PR branch for the current repository
  branchkeeper reconcile -m "automated update" -b main --branch ci/auto-update

  # Reconcile, then force-push the result
  branchkeeper reconcile -m "automated update" -b main --branch ci/auto-update --push

  # Reconcile, push, and open/update the pull request
  branchkeeper reconcile -m "automated update" -b main --branch ci/auto-update --push --publish`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, args, deps)
		},
	}

	reconcileCmd.Flags().StringVarP(&message, "message", "m", "", "Commit message for staged changes (required)")
	reconcileCmd.Flags().StringVarP(&base, "base", "b", "", "Base branch; empty means the current branch")
	reconcileCmd.Flags().StringVar(&branch, "branch", "", "Pull request branch to create or update (required)")
	reconcileCmd.Flags().BoolVar(&signoff, "signoff", false, "Add a Signed-off-by trailer to the staged commit")
	reconcileCmd.Flags().BoolVar(&doPush, "push", false, "Force-push the resulting branch when it changed")
	reconcileCmd.Flags().BoolVar(&publish, "publish", false, "Open or update the pull request after pushing")

	return reconcileCmd
}

// runReconcile executes the reconcile logic with injected dependencies.
func runReconcile(cmd *cobra.Command, args []string, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}
	if branch == "" {
		return errors.New("--branch is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repoPath := "."
	if len(args) > 0 {
		repoPath = args[0]
	}

	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	if verbose {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			writeWarningf(stderr, "warning: could not set log level: %v\n", err)
		}
	}

	log := deps.LoggerFactory()

	log.Info(ctx, "starting reconcile", map[string]interface{}{
		"path": repoPath, "base": base, "branch": branch, "push": doPush, "publish": publish,
	})

	cfg, err := deps.ConfigLoader()
	if err != nil {
		log.Error(ctx, "failed to load configuration", err, nil)
		return fmt.Errorf("configuration error: %w", err)
	}
	cfg.Signoff = cfg.Signoff || signoff

	driver, err := deps.VcsDriverFactory(repoPath)
	if err != nil {
		log.Error(ctx, "failed to open repository", err, map[string]interface{}{"path": repoPath})
		return fmt.Errorf("not a git repository: %s: %w", repoPath, err)
	}

	reconciler := deps.ReconcilerFactory(driver, cfg)
	outcome, err := reconciler.CreateOrUpdateBranch(ctx, domain.ReconcileRequest{
		CommitMessage: message,
		BaseName:      base,
		BranchName:    branch,
		Signoff:       cfg.Signoff,
	})
	if err != nil {
		log.Error(ctx, "reconcile failed", err, nil)
		if errors.Is(err, domain.ErrDetachedHead) || errors.Is(err, domain.ErrIdentityMissing) {
			return fmt.Errorf("precondition violation: %w", err)
		}
		return err
	}

	log.Info(ctx, "reconcile complete", map[string]interface{}{
		"action":             outcome.Action.String(),
		"has_diff_with_base": outcome.HasDiffWithBase,
	})

	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	if err := writeOutcomeJSON(stdout, branch, outcome); err != nil {
		writeWarningf(stderr, "warning: could not write outcome: %v\n", err)
	}

	if deps.RecorderFactory != nil {
		if recorder, recErr := deps.RecorderFactory(cfg); recErr != nil {
			log.Warn(ctx, "audit recorder unavailable", map[string]interface{}{"error": recErr.Error()})
		} else if recorder != nil {
			if err := recorder.Record(ctx, outcome.ResolvedBase, branch, outcome); err != nil {
				log.Warn(ctx, "failed to record reconcile outcome", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	if outcome.Action == domain.ActionNone {
		return nil
	}

	if doPush {
		if err := driver.Push(ctx, fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch), true); err != nil {
			log.Error(ctx, "failed to push branch", err, map[string]interface{}{"branch": branch})
			return fmt.Errorf("push failed: %w", err)
		}
	}

	if publish && deps.PublisherFactory != nil {
		if pub := deps.PublisherFactory(cfg); pub != nil {
			number, err := pub.OpenOrUpdate(ctx, cfg.ForgeOwner, cfg.ForgeRepo, outcome.ResolvedBase, branch, message)
			if err != nil {
				log.Error(ctx, "failed to publish pull request", err, nil)
				return fmt.Errorf("publish failed: %w", err)
			}
			log.Info(ctx, "pull request published", map[string]interface{}{"number": number})
		} else {
			log.Warn(ctx, "--publish requested but no forge token configured", nil)
		}
	}

	return nil
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// reconcileResult is the JSON shape printed to stdout after a reconcile.
type reconcileResult struct {
	Branch          string `json:"branch"`
	Base            string `json:"base"`
	Action          string `json:"action"`
	HasDiffWithBase bool   `json:"has_diff_with_base"`
}

// writeOutcomeJSON prints outcome as a single JSON line, the CLI's only
// stdout contract.
func writeOutcomeJSON(w io.Writer, branch string, outcome domain.ReconcileOutcome) error {
	enc := json.NewEncoder(w)
	return enc.Encode(reconcileResult{
		Branch:          branch,
		Base:            outcome.ResolvedBase,
		Action:          outcome.Action.String(),
		HasDiffWithBase: outcome.HasDiffWithBase,
	})
}

// writeWarningf writes a warning message to the given writer. Best-effort:
// errors are intentionally ignored since there is no recovery action if
// stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		return
	}
}
