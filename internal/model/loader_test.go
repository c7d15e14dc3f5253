package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skerrors "github.com/stevehiehn/skewer/internal/errors"
	"github.com/stevehiehn/skewer/internal/log"
)

func testContext() context.Context {
	return log.IntoContext(context.Background(), log.Discard())
}

const fullExample = `
title: Skupper Hello World
subtitle: A minimal HTTP application deployed across Kubernetes clusters
github_actions_url: https://github.com/skupperproject/skupper-example-hello-world/actions/workflows/main.yaml
overview: |
  This example is a very simple multi-service HTTP application.
sites:
  west:
    title: West
    platform: kubernetes
    namespace: west
    env:
      KUBECONFIG: ~/.kube/config-west
  east:
    platform: kubernetes
    namespace: east
    env:
      KUBECONFIG: ~/.kube/config-east
steps:
  - standard: configure_separate_console_sessions
  - title: Deploy the frontend and backend
    preamble: |
      Use kubectl create deployment.
    commands:
      west:
        - run: kubectl create deployment frontend --image quay.io/skupper/hello-world-frontend
          output: deployment.apps/frontend created
      east:
        - run: kubectl create deployment backend --image quay.io/skupper/hello-world-backend --replicas 3
        - await: deployment/backend
          apply: test
  - standard: cleaning_up
`

func TestLoadFullExample(t *testing.T) {
	m, err := Load(testContext(), []byte(fullExample), nil)
	require.NoError(t, err)

	assert.Equal(t, "Skupper Hello World", m.Title)
	assert.Equal(t, StandardPrerequisites, m.Prerequisites)
	assert.Equal(t, StandardNextSteps, m.NextSteps)

	sites := m.SiteList()
	require.Len(t, sites, 2)
	assert.Equal(t, "west", sites[0].Name)
	assert.Equal(t, "east", sites[1].Name)
	assert.Equal(t, "West", sites[0].DisplayTitle())
	assert.Equal(t, "East", sites[1].DisplayTitle())

	require.Len(t, m.Steps, 3)
	assert.Equal(t, "Configure separate console sessions", m.Steps[0].Title)
	assert.Equal(t, 2, m.Steps[1].Number)
	assert.True(t, m.Steps[2].IsCleanup())
	assert.Same(t, m.Steps[2], m.CleanupStep())

	deploy := m.Steps[1].CommandList()
	require.Len(t, deploy, 2)
	assert.Equal(t, "west", deploy[0].Site)
	run, ok := deploy[0].Commands[0].Run()
	require.True(t, ok)
	assert.Equal(t, "deployment.apps/frontend created", run.Output)

	await := deploy[1].Commands[1]
	assert.Equal(t, ApplyTest, await.Apply)
	require.Len(t, await.Actions, 1)
	ar, ok := await.Actions[0].(AwaitResource)
	require.True(t, ok)
	assert.Equal(t, KindDeployment, ar.Resources[0].Kind)
	assert.Equal(t, "backend", ar.Resources[0].Name)

	require.NoError(t, Check(m))
}

func TestLoadKeepsSiteDeclarationOrder(t *testing.T) {
	m, err := Decode([]byte(`
title: t
sites:
  zulu: {platform: podman, env: {SKUPPER_PLATFORM: podman}}
  alpha: {platform: podman, env: {SKUPPER_PLATFORM: podman}}
  mike: {platform: podman, env: {SKUPPER_PLATFORM: podman}}
steps: []
`))
	require.NoError(t, err)

	var names []string
	for _, s := range m.SiteList() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, names)
}

func TestLoadAppliesKubeconfigsBeforeResolution(t *testing.T) {
	m, err := Load(testContext(), []byte(fullExample), []string{"/tmp/a", "/tmp/b"})
	require.NoError(t, err)

	west, _ := m.Site("west")
	east, _ := m.Site("east")
	assert.Equal(t, "/tmp/a", west.Kubeconfig())
	assert.Equal(t, "/tmp/b", east.Kubeconfig())

	cmds, ok := m.Steps[0].Commands.Get("east")
	require.True(t, ok)
	run, _ := cmds[0].Run()
	assert.Equal(t, "export KUBECONFIG=/tmp/b", run.Script)
}

func TestLoadPartialKubeconfigs(t *testing.T) {
	m, err := Load(testContext(), []byte(fullExample), []string{"/tmp/a"})
	require.NoError(t, err)

	east, _ := m.Site("east")
	assert.Equal(t, "~/.kube/config-east", east.Kubeconfig())
}

func TestLoadRejectsUnknownCommandField(t *testing.T) {
	_, err := Decode([]byte(`
title: t
sites:
  east: {platform: kubernetes, namespace: east, env: {KUBECONFIG: x}}
steps:
  - title: s
    commands:
      east:
        - run: echo hi
          bogus: 1
`))
	require.Error(t, err)
	assert.True(t, skerrors.IsValidation(err))
	assert.Contains(t, err.Error(), "bogus")
}

func TestLoadRejectsOutputWithoutRun(t *testing.T) {
	_, err := Decode([]byte(`
title: t
sites:
  east: {platform: kubernetes, namespace: east, env: {KUBECONFIG: x}}
steps:
  - title: s
    commands:
      east:
        - output: hello
`))
	require.Error(t, err)
	assert.True(t, skerrors.IsValidation(err))
}

func TestLoadRejectsIllegalApply(t *testing.T) {
	_, err := Decode([]byte(`
title: t
sites:
  east: {platform: kubernetes, namespace: east, env: {KUBECONFIG: x}}
steps:
  - title: s
    commands:
      east:
        - run: echo hi
          apply: sometimes
`))
	require.Error(t, err)
	assert.True(t, skerrors.IsValidation(err))
}

func TestLoadRejectsMalformedResource(t *testing.T) {
	_, err := Decode([]byte(`
title: t
sites:
  east: {platform: kubernetes, namespace: east, env: {KUBECONFIG: x}}
steps:
  - title: s
    commands:
      east:
        - await: backend
`))
	require.Error(t, err)
}

func TestLoadRejectsUnknownStandardStep(t *testing.T) {
	_, err := Load(testContext(), []byte(`
title: t
sites:
  east: {platform: kubernetes, namespace: east, env: {KUBECONFIG: x}}
steps:
  - standard: no_such_step
`), nil)
	require.Error(t, err)
	assert.True(t, skerrors.IsValidation(err))
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	_, err := Decode([]byte(`:::not valid yaml[[[`))
	assert.Error(t, err)
}

func TestDecodeCommandKinds(t *testing.T) {
	m, err := Decode([]byte(`
title: t
sites:
  east: {platform: kubernetes, namespace: east, env: {KUBECONFIG: x}}
steps:
  - title: s
    commands:
      east:
        - run: kubectl expose deployment/backend --port 8080
          await_external_ip: service/backend
          await_http_ok: [service/frontend, "http://{}:8080/"]
          await_console_ok: true
`))
	require.NoError(t, err)

	cmds, _ := m.Steps[0].Commands.Get("east")
	require.Len(t, cmds, 1)
	actions := cmds[0].Actions
	require.Len(t, actions, 4)
	assert.IsType(t, Run{}, actions[0])
	assert.Equal(t, AwaitExternalIP{Services: []Resource{{Kind: KindService, Group: "service", Name: "backend"}}}, actions[1])
	assert.Equal(t, AwaitHTTPOK{Service: MustParseResource("service/frontend"), URLTemplate: "http://{}:8080/"}, actions[2])
	assert.Equal(t, AwaitConsoleOK{}, actions[3])
}

func TestLoadFileSetsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullExample), 0o644))

	m, err := LoadFile(testContext(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, m.File)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(testContext(), filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
