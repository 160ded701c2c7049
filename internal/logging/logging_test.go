package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/carnet-digital/carnet/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "auth.log")
	l, cleanup, err := New(config.Logger{Level: "debug", Format: "json", Output: "file", OutputFile: path})
	require.NoError(t, err)

	l.WithField("email", "juan@cuc.cr").Debug("login")
	cleanup()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "login", entry["msg"])
	assert.Equal(t, "juan@cuc.cr", entry["email"])
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestInitRejectsBadSettings(t *testing.T) {
	tests := []config.Logger{
		{Level: "loud"},
		{Format: "xml"},
		{Output: "syslog"},
		{Output: "file"},
	}
	for _, c := range tests {
		_, err := Init(logrus.New(), c)
		assert.Error(t, err, "%+v", c)
	}
}

func TestInitDefaults(t *testing.T) {
	l := logrus.New()
	cleanup, err := Init(l, config.Logger{Output: "discard"})
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}
