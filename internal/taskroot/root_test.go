package taskroot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot(t *testing.T) *Root {
	t.Helper()
	root, err := Init(t.TempDir(), "build the widget", DefaultOptions())
	require.NoError(t, err)
	return root
}

func TestInitCreatesTaskRoot(t *testing.T) {
	dir := t.TempDir()
	root, err := Init(dir, "build the widget", DefaultOptions())
	require.NoError(t, err)

	for _, path := range []string{
		root.SpecPath(),
		root.ConfigPath(),
		root.StatePath(),
	} {
		_, err := os.Stat(path)
		assert.NoError(t, err, "expected %s to exist", path)
	}
	info, err := os.Stat(root.EvidenceDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	st, err := root.LoadState()
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st.Status)
	assert.Equal(t, 0, st.Iteration)
	assert.Equal(t, 0, st.Attempts)
	assert.False(t, st.CreatedAt.IsZero())
}

func TestInitRefusesExistingRoot(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(dir, "first", DefaultOptions())
	require.NoError(t, err)

	_, err = Init(dir, "second", DefaultOptions())
	require.Error(t, err)
}

func TestInitRejectsEmptySpec(t *testing.T) {
	_, err := Init(t.TempDir(), "   \n", DefaultOptions())
	require.Error(t, err)
}

func TestOpenRoundTripsOptions(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.MaxIterations = 7
	opts.MaxAttempts = 2
	opts.TimeoutPerIteration = Duration(90 * time.Second)
	opts.PromiseText = "SHIPPED"
	opts.Worker.Command = "my-agent"
	opts.Worker.Args = []string{"--quiet"}

	_, err := Init(dir, "spec body", opts)
	require.NoError(t, err)

	root, err := Open(dir)
	require.NoError(t, err)
	got := root.Options()
	assert.Equal(t, 7, got.MaxIterations)
	assert.Equal(t, 2, got.MaxAttempts)
	assert.Equal(t, Duration(90*time.Second), got.TimeoutPerIteration)
	assert.Equal(t, "SHIPPED", got.PromiseText)
	assert.Equal(t, "my-agent", got.Worker.Command)
	assert.Equal(t, []string{"--quiet"}, got.Worker.Args)
}

func TestOpenMissingRoot(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestOpenMalformedConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(dir, "spec body", DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(":\tnot yaml"), 0644))

	_, err = Open(dir)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestReadSpec(t *testing.T) {
	root := newRoot(t)
	spec, err := root.ReadSpec()
	require.NoError(t, err)
	assert.Equal(t, "build the widget", spec)
}

func TestReadSpecRejectsEmptied(t *testing.T) {
	root := newRoot(t)
	require.NoError(t, os.WriteFile(root.SpecPath(), []byte("  \n"), 0644))
	_, err := root.ReadSpec()
	require.Error(t, err)
}
