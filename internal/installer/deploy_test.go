package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeploy_MissingSource(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "agent")

	err := Deploy(filepath.Join(t.TempDir(), "does-not-exist"), dst)
	require.ErrorIs(t, err, ErrSourceNotFound)
	require.NoDirExists(t, dst)
}

func TestDeploy_SourceIsFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	err := Deploy(src, filepath.Join(t.TempDir(), "agent"))
	require.ErrorIs(t, err, ErrSourceNotFound)
}

func TestDeploy_ReplacesWholeTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "agent"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "agent", "loop.py"), []byte("new loop"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "requirements.txt"), []byte("requests\n"), 0644))

	dst := filepath.Join(t.TempDir(), "installed")
	require.NoError(t, os.MkdirAll(filepath.Join(dst, "agent"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "agent", "stale.py"), []byte("old"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "agent", "loop.py"), []byte("old loop"), 0644))

	require.NoError(t, Deploy(src, dst))

	require.NoFileExists(t, filepath.Join(dst, "agent", "stale.py"), "stale files must not survive a deploy")

	got, err := os.ReadFile(filepath.Join(dst, "agent", "loop.py"))
	require.NoError(t, err)
	require.Equal(t, "new loop", string(got))
	require.FileExists(t, filepath.Join(dst, "requirements.txt"))
}

func TestDeploy_IsRepeatable(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.py"), []byte("x"), 0644))
	dst := filepath.Join(t.TempDir(), "installed")

	require.NoError(t, Deploy(src, dst))
	require.NoError(t, Deploy(src, dst))
	require.FileExists(t, filepath.Join(dst, "main.py"))
}
