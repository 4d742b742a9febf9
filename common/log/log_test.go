package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultIsNop(t *testing.T) {
	assert.NotNil(t, L())
	L().Info("dropped")
}

func TestInitRotatingFile(t *testing.T) {
	defer Set(nil)
	file := filepath.Join(t.TempDir(), "nav.log")
	l, err := Init(Config{Level: "debug", File: file, MaxSize: 1})
	require.NoError(t, err)
	l.Debug("tile rebuilt", zap.Int("tx", 1))
	_ = l.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tile rebuilt")
}

func TestInitBadLevel(t *testing.T) {
	_, err := Init(Config{Level: "loud"})
	assert.Error(t, err)
}
