package util_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghostlogic/agent-installer/util"
)

type testConfig struct {
	SomeMap   map[string]string
	SomeArray []string
	SomeField int
}

func sampleConfig() *testConfig {
	return &testConfig{
		SomeMap:   map[string]string{"key1": "value1", "key2": "value2"},
		SomeArray: []string{"value1", "value2"},
		SomeField: 99,
	}
}

func TestWriteJsonReadJsonRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testconfig.json")
	written := sampleConfig()

	require.NoError(t, util.WriteJson(context.Background(), path, written))

	read, err := util.ReadJson(path, &testConfig{})
	require.NoError(t, err)
	require.Equal(t, written, read.(*testConfig))
}

func TestWriteJsonCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "testconfig.json")

	require.NoError(t, util.WriteJson(context.Background(), path, sampleConfig()))
	require.FileExists(t, path)
}

func TestWriteJsonWithRestrictedPermission(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	path := filepath.Join(t.TempDir(), "secrets", "config.json")
	require.NoError(t, util.WriteJsonWithRestrictedPermission(context.Background(), path, sampleConfig()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestWriteJsonLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	require.NoError(t, util.WriteJson(context.Background(), path, sampleConfig()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "config.json", entries[0].Name())
}

func TestWriteJsonCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "config.json")
	err := util.WriteJson(ctx, path, sampleConfig())
	require.Error(t, err)
	require.NoFileExists(t, path)
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "deep.txt"), []byte("deep"), 0600))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, util.CopyDir(src, dst))

	got, err := os.ReadFile(filepath.Join(dst, "nested", "deep.txt"))
	require.NoError(t, err)
	require.Equal(t, "deep", string(got))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dst, "nested", "deep.txt"))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestCopyDirSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs extra privileges on windows")
	}

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "target.txt"), []byte("x"), 0644))
	require.NoError(t, os.Symlink("target.txt", filepath.Join(src, "link.txt")))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, util.CopyDir(src, dst))

	link, err := os.Readlink(filepath.Join(dst, "link.txt"))
	require.NoError(t, err)
	require.Equal(t, "target.txt", link)
}

func TestRemoveIfExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "inner"), 0755))

	require.NoError(t, util.RemoveIfExists(dir))
	require.NoDirExists(t, dir)

	// removing again is not an error
	require.NoError(t, util.RemoveIfExists(dir))
}

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.False(t, util.FileExists(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.True(t, util.FileExists(path))
}
