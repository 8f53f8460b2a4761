package dumpconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-perf/perfdata/perffile"
	"github.com/go-perf/perfdata/perffile/dumpconfig"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseDefaults(t *testing.T) {
	cfg, err := dumpconfig.Parse([]byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, dumpconfig.OrderTime, cfg.Order)
	require.Equal(t, 4096, cfg.JitdumpBufferSize)
	require.False(t, cfg.Verbose)
	require.Equal(t, perffile.RecordsTimeOrder, cfg.Order.Perffile())
}

func TestParseExplicit(t *testing.T) {
	cfg, err := dumpconfig.Parse([]byte(`
order: causal
verbose: true
jitdump_buffer_size: 8192
`))
	require.NoError(t, err)
	require.Equal(t, dumpconfig.OrderCausal, cfg.Order)
	require.True(t, cfg.Verbose)
	require.Equal(t, 8192, cfg.JitdumpBufferSize)
	require.Equal(t, perffile.RecordsCausalOrder, cfg.Order.Perffile())
}

func TestParseInvalidOrder(t *testing.T) {
	_, err := dumpconfig.Parse([]byte(`order: backwards`))
	require.Error(t, err)
}

func TestParseBufferTooSmall(t *testing.T) {
	_, err := dumpconfig.Parse([]byte(`jitdump_buffer_size: 8`))
	require.Error(t, err)
}

func TestParseUnknownField(t *testing.T) {
	_, err := dumpconfig.Parse([]byte(`orderr: time`))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, "order: file\n")
	cfg, err := dumpconfig.Load(path)
	require.NoError(t, err)
	require.Equal(t, dumpconfig.OrderFile, cfg.Order)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := dumpconfig.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := dumpconfig.Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, dumpconfig.OrderTime, cfg.Order)
}
