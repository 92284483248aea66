package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosanlab/go-trgen/capability"
	"github.com/cosanlab/go-trgen/line"
	"github.com/cosanlab/go-trgen/logger"
	"github.com/cosanlab/go-trgen/trgen"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultFileConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
host: 10.0.0.2
port: 5000
timeout: 250ms
close_timeout: 0s
pulse_duration_us: 500
memory_length_encoding: pow2
log:
  backend: zap
  level: debug
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.2", cfg.Host)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, trgen.DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, time.Duration(0), cfg.CloseTimeout)
	assert.Equal(t, uint32(500), cfg.PulseDurationUs)
	assert.Equal(t, "zap", cfg.Log.Backend)

	l, err := cfg.newLogger()
	require.NoError(t, err)
	assert.Equal(t, logger.DebugLevel, l.Level())

	connCfg, err := cfg.connectionConfig(l)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:5000", connCfg.Addr())
	assert.Equal(t, 250*time.Millisecond, connCfg.Timeout())
	assert.Equal(t, capability.PowerOfTwo, connCfg.MemoryLengthDecoder())
	assert.Equal(t, uint32(500), connCfg.PulseDuration())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "port: [1"))
	assert.Error(t, err)

	cfg := defaultFileConfig()
	cfg.Log.Backend = "syslog"
	_, err = cfg.newLogger()
	assert.Error(t, err)

	cfg = defaultFileConfig()
	cfg.MemoryLengthEncoding = "log10"
	_, err = cfg.connectionConfig(logger.NewNop())
	assert.Error(t, err)
}

func TestParseLines(t *testing.T) {
	ids, err := parseLines([]string{"0", "18", "255"})
	require.NoError(t, err)
	assert.Equal(t, []line.ID{0, 18, 255}, ids)

	_, err = parseLines([]string{"256"})
	assert.Error(t, err)
	_, err = parseLines([]string{"x"})
	assert.Error(t, err)
}
