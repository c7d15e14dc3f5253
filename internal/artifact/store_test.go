package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesRunDir(t *testing.T) {
	dir := t.TempDir()
	store, err := New("run-123", dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "runs", "run-123"), store.BaseDir)
	info, err := os.Stat(store.BaseDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreate(t *testing.T) {
	store, err := New("run-456", t.TempDir())
	require.NoError(t, err)

	f, err := store.Create("minikube-tunnel-output")
	require.NoError(t, err)
	_, err = f.WriteString("tunnel up")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(store.Path("minikube-tunnel-output"))
	require.NoError(t, err)
	assert.Equal(t, "tunnel up", string(data))
}

func TestWriteResult(t *testing.T) {
	store, err := New("run-789", t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.WriteResult(map[string]string{"status": "ok"}))

	data, err := os.ReadFile(store.Path("result.json"))
	require.NoError(t, err)
	var obj map[string]string
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Equal(t, "ok", obj["status"])
}
