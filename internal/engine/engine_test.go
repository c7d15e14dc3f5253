package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevehiehn/skewer/internal/artifact"
	"github.com/stevehiehn/skewer/internal/await"
	"github.com/stevehiehn/skewer/internal/diag"
	skerrors "github.com/stevehiehn/skewer/internal/errors"
	"github.com/stevehiehn/skewer/internal/log"
	"github.com/stevehiehn/skewer/internal/model"
	"github.com/stevehiehn/skewer/internal/probe"
	"github.com/stevehiehn/skewer/internal/runner"
	"github.com/stevehiehn/skewer/internal/runner/runnertest"
)

const example = `
title: Engine test
sites:
  east:
    platform: kubernetes
    namespace: east
    env:
      KUBECONFIG: ~/.kube/config-east
  west:
    platform: podman
    env:
      SKUPPER_PLATFORM: podman
steps:
  - title: Say hello
    commands:
      east:
        - run: echo hello east
        - run: echo readme only
          apply: readme
        - run: echo test only
          apply: test
      west:
        - run: echo hello ~/west
  - title: Deploy
    commands:
      east:
        - run: kubectl create deployment backend
        - await: deployment/backend
  - standard: cleaning_up
`

type okHTTP struct{}

func (okHTTP) Get(context.Context, string, probe.Options) error { return nil }

func loadModel(t *testing.T, yaml string) *model.Model {
	t.Helper()
	m, err := model.Load(log.IntoContext(context.Background(), log.Discard()), []byte(yaml), nil)
	require.NoError(t, err)
	return m
}

func makeCtx(t *testing.T) *RunContext {
	t.Helper()
	return &RunContext{RunID: "test-run", WorkDir: t.TempDir()}
}

func newEngine(exec runner.Executor, mode Mode, out *bytes.Buffer) *Engine {
	color.NoColor = true
	p := await.New(exec, okHTTP{})
	p.Timeout = 200 * time.Millisecond
	p.Interval = 10 * time.Millisecond
	return New(Options{
		Mode:     mode,
		Executor: exec,
		Poller:   p,
		Dumper:   diag.New(exec, nil),
		Logger:   log.Discard(),
		Out:      out,
		In:       strings.NewReader(""),
	})
}

func failOn(prefix string) func(string, runner.Options) runnertest.Response {
	return func(cmd string, _ runner.Options) runnertest.Response {
		if strings.HasPrefix(cmd, prefix) {
			return runnertest.Response{ExitCode: 1}
		}
		return runnertest.Response{}
	}
}

func TestExecuteRunsStepsInOrder(t *testing.T) {
	exec := &runnertest.Executor{}
	rc := makeCtx(t)

	result, err := newEngine(exec, ModeRun, &bytes.Buffer{}).Execute(context.Background(), loadModel(t, example), rc)
	require.NoError(t, err)
	assert.True(t, result.Success)

	assert.Equal(t, []string{
		"kubectl config set-context --current --namespace east",
		"echo hello east",
		"echo test only",
		"echo hello " + rc.WorkDir + "/west",
		"kubectl config set-context --current --namespace east",
		"kubectl create deployment backend",
		"kubectl get deployment/backend",
		"kubectl wait --for condition=available --timeout 200ms deployment/backend",
		"kubectl config set-context --current --namespace east",
		"skupper delete",
		"skupper delete",
	}, exec.Commands())

	require.Len(t, result.Steps, 3)
	assert.Equal(t, StatusSuccess, result.Steps[0].Status)
	assert.Equal(t, []string{"east", "west"}, result.Steps[0].Sites)
	assert.Equal(t, StatusCleanup, result.Steps[2].Status)
}

func TestExecuteUsesSiteContext(t *testing.T) {
	exec := &runnertest.Executor{}
	rc := makeCtx(t)

	_, err := newEngine(exec, ModeRun, &bytes.Buffer{}).Execute(context.Background(), loadModel(t, example), rc)
	require.NoError(t, err)

	calls := exec.Calls()
	assert.Contains(t, calls[1].Options.Env, "KUBECONFIG="+rc.WorkDir+"/.kube/config-east")
	assert.True(t, calls[1].Options.Check)
	assert.Contains(t, calls[3].Options.Env, "SKUPPER_PLATFORM=podman")
	assert.NotContains(t, calls[3].Options.Env, "KUBECONFIG="+rc.WorkDir+"/.kube/config-east")
}

func TestReadmeCommandsNeverExecute(t *testing.T) {
	exec := &runnertest.Executor{}

	_, err := newEngine(exec, ModeRun, &bytes.Buffer{}).Execute(context.Background(), loadModel(t, example), makeCtx(t))
	require.NoError(t, err)
	assert.Zero(t, exec.Count("echo readme only"))
}

func TestFailureAbortsAndCleansUpOnce(t *testing.T) {
	exec := &runnertest.Executor{Handler: failOn("echo hello east")}

	result, err := newEngine(exec, ModeRun, &bytes.Buffer{}).Execute(context.Background(), loadModel(t, example), makeCtx(t))
	require.Error(t, err)
	assert.True(t, skerrors.IsCommandFailed(err))

	var re *skerrors.RunError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "east", re.Site)
	assert.Equal(t, "Step 1: Say hello", re.Step)

	assert.Zero(t, exec.Count("echo hello /"))
	assert.Zero(t, exec.Count("kubectl create deployment"))
	assert.Equal(t, 2, exec.Count("skupper delete"))

	assert.False(t, result.Success)
	assert.Equal(t, "Step 1: Say hello", result.FailedStep)
	require.Len(t, result.Steps, 3)
	assert.Equal(t, StatusFailed, result.Steps[0].Status)
	assert.Equal(t, StatusSkipped, result.Steps[1].Status)
	assert.Equal(t, StatusCleanup, result.Steps[2].Status)
	require.Len(t, result.Errors, 1)
}

func TestCleanupFailuresDoNotMaskError(t *testing.T) {
	exec := &runnertest.Executor{Handler: func(cmd string, opts runner.Options) runnertest.Response {
		if cmd == "kubectl create deployment backend" || cmd == "skupper delete" {
			return runnertest.Response{ExitCode: 2}
		}
		return runnertest.Response{}
	}}

	_, err := newEngine(exec, ModeRun, &bytes.Buffer{}).Execute(context.Background(), loadModel(t, example), makeCtx(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kubectl create deployment backend")
	assert.Equal(t, 2, exec.Count("skupper delete"))
}

func TestTimeoutAbortsRun(t *testing.T) {
	exec := &runnertest.Executor{Handler: failOn("kubectl get deployment/backend")}

	result, err := newEngine(exec, ModeRun, &bytes.Buffer{}).Execute(context.Background(), loadModel(t, example), makeCtx(t))
	require.Error(t, err)
	assert.True(t, skerrors.IsTimeout(err))
	assert.Equal(t, "Step 2: Deploy", result.FailedStep)
	assert.Equal(t, 2, exec.Count("skupper delete"))
}

func TestDebugDumpBeforeCleanup(t *testing.T) {
	exec := &runnertest.Executor{Handler: failOn("echo hello east")}
	var out bytes.Buffer
	rc := makeCtx(t)
	rc.Debug = true

	_, err := newEngine(exec, ModeRun, &out).Execute(context.Background(), loadModel(t, example), rc)
	require.Error(t, err)
	assert.Contains(t, out.String(), "TROUBLE!")

	commands := exec.Commands()
	dump, cleanup := -1, -1
	for i, c := range commands {
		if c == "skupper status" && dump < 0 {
			dump = i
		}
		if c == "skupper delete" && cleanup < 0 {
			cleanup = i
		}
	}
	require.GreaterOrEqual(t, dump, 0)
	assert.Less(t, dump, cleanup)
}

func TestNoDebugDumpWithoutFlag(t *testing.T) {
	exec := &runnertest.Executor{Handler: failOn("echo hello east")}
	var out bytes.Buffer

	_, err := newEngine(exec, ModeRun, &out).Execute(context.Background(), loadModel(t, example), makeCtx(t))
	require.Error(t, err)
	assert.NotContains(t, out.String(), "TROUBLE!")
	assert.Zero(t, exec.Count("skupper status"))
}

func TestDryRunMode(t *testing.T) {
	var out bytes.Buffer
	exec := runner.DryRun{Out: &out}

	result, err := newEngine(exec, ModeDryRun, &out).Execute(context.Background(), loadModel(t, example), makeCtx(t))
	require.NoError(t, err)
	assert.Equal(t, StatusDryRun, result.Steps[0].Status)

	text := out.String()
	assert.Contains(t, text, "Would run: echo hello east")
	assert.Contains(t, text, "Would wait for deployment/backend to become available")
	assert.NotContains(t, text, "echo readme only")
}

func TestResultWrittenToStore(t *testing.T) {
	rc := makeCtx(t)
	store, err := artifact.New(rc.RunID, rc.WorkDir)
	require.NoError(t, err)

	e := newEngine(&runnertest.Executor{}, ModeRun, &bytes.Buffer{})
	e.store = store

	_, err = e.Execute(context.Background(), loadModel(t, example), rc)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(rc.WorkDir, "runs", rc.RunID, "result.json"))
	require.NoError(t, err)
	var result Result
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "test-run", result.RunID)
	assert.True(t, result.Success)
	assert.Len(t, result.Steps, 3)
}

func TestWithoutCleanupStep(t *testing.T) {
	exec := &runnertest.Executor{Handler: failOn("echo one")}
	m := loadModel(t, `
title: No cleanup
sites:
  west:
    platform: podman
    env:
      SKUPPER_PLATFORM: podman
steps:
  - title: One
    commands:
      west:
        - run: echo one
`)

	result, err := newEngine(exec, ModeRun, &bytes.Buffer{}).Execute(context.Background(), m, makeCtx(t))
	require.Error(t, err)
	assert.Len(t, result.Steps, 1)
	assert.Equal(t, []string{"echo one"}, exec.Commands())
}

func TestDemoPause(t *testing.T) {
	exec := &runnertest.Executor{Handler: func(cmd string, _ runner.Options) runnertest.Response {
		switch {
		case strings.Contains(cmd, "{.data.admin}"):
			return runnertest.Response{Stdout: base64.StdEncoding.EncodeToString([]byte("pw"))}
		case strings.Contains(cmd, "ingress[0].ip"):
			return runnertest.Response{Stdout: "10.0.0.1"}
		case strings.Contains(cmd, "ingress}"):
			return runnertest.Response{Stdout: "[{}]"}
		case strings.Contains(cmd, "{.spec.type}"):
			return runnertest.Response{Stdout: "LoadBalancer"}
		}
		return runnertest.Response{}
	}}
	var out bytes.Buffer
	e := newEngine(exec, ModeRun, &out)
	e.in = strings.NewReader("no\nyes\n")
	rc := makeCtx(t)
	rc.Demo = true

	_, err := e.Execute(context.Background(), loadModel(t, example), rc)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Demo time!")
	assert.Contains(t, text, "  east: export KUBECONFIG="+rc.WorkDir+"/.kube/config-east")
	assert.NotContains(t, text, "  west:")
	assert.Contains(t, text, "Frontend URL:     http://10.0.0.1:8080/")
	assert.Contains(t, text, "Console URL:      https://10.0.0.1:8010/")
	assert.Contains(t, text, "Console password: pw")
	assert.Equal(t, 2, strings.Count(text, "Are you done (yes)? "))
	assert.Equal(t, 2, exec.Count("skupper delete"))
}

func TestDemoPauseNoWait(t *testing.T) {
	exec := &runnertest.Executor{Handler: func(cmd string, _ runner.Options) runnertest.Response {
		switch {
		case strings.Contains(cmd, "{.data.admin}"):
			return runnertest.Response{Stdout: base64.StdEncoding.EncodeToString([]byte("pw"))}
		case strings.Contains(cmd, "ingress"):
			return runnertest.Response{Stdout: "10.0.0.1"}
		case cmd == "kubectl get service/frontend":
			return runnertest.Response{ExitCode: 1}
		}
		return runnertest.Response{}
	}}
	var out bytes.Buffer
	rc := makeCtx(t)
	rc.Demo = true
	rc.DemoNoWait = true

	_, err := newEngine(exec, ModeRun, &out).Execute(context.Background(), loadModel(t, example), rc)
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Frontend URL")
	assert.NotContains(t, out.String(), "Are you done")
}
