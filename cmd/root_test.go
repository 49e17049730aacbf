package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/branchkeeper/internal/domain"
)

// Test mocks for dependency injection testing.

type mockLogger struct{}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]interface{})          {}
func (m *mockLogger) Warn(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Error(_ context.Context, _ string, _ error, _ map[string]interface{}) {}

// mockVcsDriver implements domain.VcsDriver, satisfying only what a given
// test needs; every other method panics if called unexpectedly.
type mockVcsDriver struct {
	domain.VcsDriver
	pushRefspec string
	pushForce   bool
	pushErr     error
}

func (m *mockVcsDriver) Push(_ context.Context, refspec string, force bool) error {
	m.pushRefspec = refspec
	m.pushForce = force
	return m.pushErr
}

// mockReconciler implements domain.Reconciler for testing.
type mockReconciler struct {
	outcome domain.ReconcileOutcome
	err     error
	gotReq  domain.ReconcileRequest
}

func (m *mockReconciler) CreateOrUpdateBranch(_ context.Context, req domain.ReconcileRequest) (domain.ReconcileOutcome, error) {
	m.gotReq = req
	return m.outcome, m.err
}

// mockPublisher implements Publisher for testing.
type mockPublisher struct {
	number  int
	err     error
	gotBase string
	gotHead string
}

func (m *mockPublisher) OpenOrUpdate(_ context.Context, _, _, base, head, _ string) (int, error) {
	m.gotBase = base
	m.gotHead = head
	return m.number, m.err
}

// mockRecorder implements OutcomeRecorder for testing.
type mockRecorder struct {
	err       error
	recorded  bool
	gotBase   string
	gotBranch string
}

func (m *mockRecorder) Record(_ context.Context, base, branch string, _ domain.ReconcileOutcome) error {
	m.recorded = true
	m.gotBase = base
	m.gotBranch = branch
	return m.err
}

func resetFlags() {
	message, base, branch = "", "", ""
	signoff, doPush, publish, verbose = false, false, false, false
}

func TestNewRootCmd_Structure(t *testing.T) {
	resetFlags()
	SetDefaultDependencies(&Dependencies{})
	cmd := NewRootCmd()

	require.NotNil(t, cmd)
	assert.Equal(t, "branchkeeper", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.True(t, cmd.SilenceUsage)

	reconcileCmd, _, err := cmd.Find([]string{"reconcile"})
	require.NoError(t, err)
	require.NotNil(t, reconcileCmd)
	assert.Equal(t, "reconcile [path]", reconcileCmd.Use)

	branchFlag := reconcileCmd.Flags().Lookup("branch")
	require.NotNil(t, branchFlag)

	messageFlag := reconcileCmd.Flags().Lookup("message")
	require.NotNil(t, messageFlag)
	assert.Equal(t, "m", messageFlag.Shorthand)

	baseFlag := reconcileCmd.Flags().Lookup("base")
	require.NotNil(t, baseFlag)
	assert.Equal(t, "b", baseFlag.Shorthand)
}

func TestRootCmd_NilDependencies(t *testing.T) {
	resetFlags()
	cmd := NewRootCmdWithDeps(nil)
	cmd.SetArgs([]string{"reconcile", "--branch", "auto/update", "."})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependencies not configured")
}

func TestRootCmd_MissingBranchFlag(t *testing.T) {
	resetFlags()
	deps := &Dependencies{}
	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"reconcile", "."})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--branch is required")
}

func TestRootCmd_ConfigLoadError(t *testing.T) {
	resetFlags()
	deps := &Dependencies{
		LoggerFactory: func() Logger { return &mockLogger{} },
		ConfigLoader: func() (*AppConfig, error) {
			return nil, errors.New("failed to load config")
		},
		Stderr: io.Discard,
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"reconcile", "--branch", "auto/update", "."})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestRootCmd_VcsDriverError(t *testing.T) {
	resetFlags()
	deps := &Dependencies{
		LoggerFactory:    func() Logger { return &mockLogger{} },
		ConfigLoader:     func() (*AppConfig, error) { return &AppConfig{}, nil },
		VcsDriverFactory: func(_ string) (domain.VcsDriver, error) { return nil, errors.New("not a repo") },
		Stderr:           io.Discard,
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"reconcile", "--branch", "auto/update", "/tmp/not-a-repo"})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a git repository")
}

func TestRootCmd_PreconditionViolationIsWrapped(t *testing.T) {
	resetFlags()
	reconciler := &mockReconciler{err: domain.ErrDetachedHead}
	deps := &Dependencies{
		LoggerFactory:    func() Logger { return &mockLogger{} },
		ConfigLoader:     func() (*AppConfig, error) { return &AppConfig{}, nil },
		VcsDriverFactory: func(_ string) (domain.VcsDriver, error) { return &mockVcsDriver{}, nil },
		ReconcilerFactory: func(_ domain.VcsDriver, _ *AppConfig) domain.Reconciler {
			return reconciler
		},
		Stderr: io.Discard,
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"reconcile", "--branch", "auto/update", "."})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "precondition violation")
}

func TestRootCmd_Success_WritesOutcomeJSON(t *testing.T) {
	resetFlags()
	reconciler := &mockReconciler{
		outcome: domain.ReconcileOutcome{Action: domain.ActionCreated, HasDiffWithBase: true, ResolvedBase: "main"},
	}
	var stdout bytes.Buffer
	deps := &Dependencies{
		LoggerFactory:    func() Logger { return &mockLogger{} },
		ConfigLoader:     func() (*AppConfig, error) { return &AppConfig{}, nil },
		VcsDriverFactory: func(_ string) (domain.VcsDriver, error) { return &mockVcsDriver{}, nil },
		ReconcilerFactory: func(_ domain.VcsDriver, _ *AppConfig) domain.Reconciler {
			return reconciler
		},
		Stdout: &stdout,
		Stderr: io.Discard,
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"reconcile", "-m", "automated update", "-b", "main", "--branch", "auto/update", "."})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.JSONEq(t, `{"branch":"auto/update","base":"main","action":"created","has_diff_with_base":true}`, stdout.String())
	assert.Equal(t, "automated update", reconciler.gotReq.CommitMessage)
	assert.Equal(t, "main", reconciler.gotReq.BaseName)
	assert.Equal(t, "auto/update", reconciler.gotReq.BranchName)
}

func TestRootCmd_ActionNone_SkipsPushAndPublish(t *testing.T) {
	resetFlags()
	reconciler := &mockReconciler{outcome: domain.ReconcileOutcome{Action: domain.ActionNone, ResolvedBase: "main"}}
	driver := &mockVcsDriver{}
	publisher := &mockPublisher{}
	deps := &Dependencies{
		LoggerFactory:    func() Logger { return &mockLogger{} },
		ConfigLoader:     func() (*AppConfig, error) { return &AppConfig{}, nil },
		VcsDriverFactory: func(_ string) (domain.VcsDriver, error) { return driver, nil },
		ReconcilerFactory: func(_ domain.VcsDriver, _ *AppConfig) domain.Reconciler {
			return reconciler
		},
		PublisherFactory: func(_ *AppConfig) Publisher { return publisher },
		Stdout:           io.Discard,
		Stderr:           io.Discard,
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"reconcile", "--branch", "auto/update", "--push", "--publish", "."})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Empty(t, driver.pushRefspec)
	assert.Equal(t, "", publisher.gotHead)
}

func TestRootCmd_Push_ForcesRefspec(t *testing.T) {
	resetFlags()
	reconciler := &mockReconciler{outcome: domain.ReconcileOutcome{Action: domain.ActionCreated, ResolvedBase: "main"}}
	driver := &mockVcsDriver{}
	deps := &Dependencies{
		LoggerFactory:    func() Logger { return &mockLogger{} },
		ConfigLoader:     func() (*AppConfig, error) { return &AppConfig{}, nil },
		VcsDriverFactory: func(_ string) (domain.VcsDriver, error) { return driver, nil },
		ReconcilerFactory: func(_ domain.VcsDriver, _ *AppConfig) domain.Reconciler {
			return reconciler
		},
		Stdout: io.Discard,
		Stderr: io.Discard,
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"reconcile", "--branch", "auto/update", "--push", "."})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, "refs/heads/auto/update:refs/heads/auto/update", driver.pushRefspec)
	assert.True(t, driver.pushForce)
}

func TestRootCmd_Publish_UsesResolvedBase(t *testing.T) {
	resetFlags()
	reconciler := &mockReconciler{
		outcome: domain.ReconcileOutcome{Action: domain.ActionCreated, ResolvedBase: "main"},
	}
	publisher := &mockPublisher{number: 7}
	deps := &Dependencies{
		LoggerFactory:    func() Logger { return &mockLogger{} },
		ConfigLoader:     func() (*AppConfig, error) { return &AppConfig{}, nil },
		VcsDriverFactory: func(_ string) (domain.VcsDriver, error) { return &mockVcsDriver{}, nil },
		ReconcilerFactory: func(_ domain.VcsDriver, _ *AppConfig) domain.Reconciler {
			return reconciler
		},
		PublisherFactory: func(_ *AppConfig) Publisher { return publisher },
		Stdout:           io.Discard,
		Stderr:           io.Discard,
	}

	// Note: --base is deliberately omitted here; the PR base must still
	// resolve to "main" via the outcome, not fall back to the PR branch.
	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"reconcile", "--branch", "auto/update", "--publish", "."})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, "main", publisher.gotBase)
	assert.Equal(t, "auto/update", publisher.gotHead)
}

func TestRootCmd_RecorderFailureIsNonFatal(t *testing.T) {
	resetFlags()
	reconciler := &mockReconciler{outcome: domain.ReconcileOutcome{Action: domain.ActionNone, ResolvedBase: "main"}}
	deps := &Dependencies{
		LoggerFactory:    func() Logger { return &mockLogger{} },
		ConfigLoader:     func() (*AppConfig, error) { return &AppConfig{}, nil },
		VcsDriverFactory: func(_ string) (domain.VcsDriver, error) { return &mockVcsDriver{}, nil },
		ReconcilerFactory: func(_ domain.VcsDriver, _ *AppConfig) domain.Reconciler {
			return reconciler
		},
		RecorderFactory: func(_ *AppConfig) (OutcomeRecorder, error) {
			return nil, errors.New("clickhouse unreachable")
		},
		Stdout: io.Discard,
		Stderr: io.Discard,
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"reconcile", "--branch", "auto/update", "."})

	err := cmd.Execute()

	require.NoError(t, err)
}

func TestRootCmd_RecorderRecordsResolvedBase(t *testing.T) {
	resetFlags()
	reconciler := &mockReconciler{outcome: domain.ReconcileOutcome{Action: domain.ActionNone, ResolvedBase: "develop"}}
	recorder := &mockRecorder{}
	deps := &Dependencies{
		LoggerFactory:    func() Logger { return &mockLogger{} },
		ConfigLoader:     func() (*AppConfig, error) { return &AppConfig{}, nil },
		VcsDriverFactory: func(_ string) (domain.VcsDriver, error) { return &mockVcsDriver{}, nil },
		ReconcilerFactory: func(_ domain.VcsDriver, _ *AppConfig) domain.Reconciler {
			return reconciler
		},
		RecorderFactory: func(_ *AppConfig) (OutcomeRecorder, error) { return recorder, nil },
		Stdout:          io.Discard,
		Stderr:          io.Discard,
	}

	cmd := NewRootCmdWithDeps(deps)
	cmd.SetArgs([]string{"reconcile", "--branch", "auto/update", "."})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.True(t, recorder.recorded)
	assert.Equal(t, "develop", recorder.gotBase)
	assert.Equal(t, "auto/update", recorder.gotBranch)
}
