package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	l, err := ParseLogLevel("warn")
	require.NoError(t, err)
	require.Equal(t, WARN, l)

	l, err = ParseLogLevel("")
	require.NoError(t, err)
	require.Equal(t, INFO, l)

	_, err = ParseLogLevel("loud")
	require.Error(t, err)
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nav.log")
	cfg := DefaultConfig()
	cfg.Level = "DEBUG"
	cfg.EnableFile = true
	cfg.FilePath = path
	cfg.DisableColor = true
	require.NoError(t, InitLogger(cfg))
	defer func() {
		CloseLogger()
		require.NoError(t, InitLogger(&Config{Level: "ERROR", DisableColor: true}))
	}()

	Info("tile %v built", 7)
	CloseLogger()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "tile 7 built")
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	require.Error(t, InitLogger(&Config{Level: "verbose"}))
}
