package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zsiec/codescan/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.LoggingConfig
		wantErr bool
		check   func(t *testing.T, logger *logrus.Logger)
	}{
		{
			name:   "json format stdout",
			config: &config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
			check: func(t *testing.T, logger *logrus.Logger) {
				assert.Equal(t, logrus.InfoLevel, logger.Level)
				assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
				assert.Equal(t, os.Stdout, logger.Out)
			},
		},
		{
			name:   "text format stderr",
			config: &config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"},
			check: func(t *testing.T, logger *logrus.Logger) {
				assert.Equal(t, logrus.DebugLevel, logger.Level)
				assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
			},
		},
		{
			name:    "invalid level",
			config:  &config.LoggingConfig{Level: "loud", Format: "text", Output: "stderr"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, logger)
		})
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "codescan.log")
	logger, err := New(&config.LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     path,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	require.NoError(t, err)

	logger.Info("code detected")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "code detected")
}

func TestWithComponent(t *testing.T) {
	base, hook := test.NewNullLogger()

	l := WithSession(WithComponent(base, "scanner"), "sess-1")
	l.WithError(errors.New("permission denied")).Warn("camera failed")

	require.Len(t, hook.Entries, 1)
	e := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, e.Level)
	assert.Equal(t, "scanner", e.Data["component"])
	assert.Equal(t, "codescan", e.Data["service"])
	assert.Equal(t, "sess-1", e.Data["session_id"])
	assert.NotEmpty(t, e.Data["version"])
	assert.EqualError(t, e.Data[logrus.ErrorKey].(error), "permission denied")
}

func TestAdapterChainingIsImmutable(t *testing.T) {
	base, hook := test.NewNullLogger()
	root := NewLogrusAdapter(logrus.NewEntry(base))

	a := root.WithField("a", 1)
	_ = a.WithFields(map[string]interface{}{"b": 2})
	a.Infof("tick %d", 3)

	e := hook.LastEntry()
	assert.Equal(t, "tick 3", e.Message)
	assert.Equal(t, 1, e.Data["a"])
	assert.NotContains(t, e.Data, "b")
}

func TestNullLogger(t *testing.T) {
	var l Logger = NewNullLogger()
	assert.NotPanics(t, func() {
		l.WithField("k", "v").WithError(errors.New("x")).Errorf("%d", 1)
		l.Log(logrus.ErrorLevel, "x")
	})
	assert.Equal(t, l, OrNull(nil))
	assert.Equal(t, l.WithField("a", 1), OrNull(l))
}
