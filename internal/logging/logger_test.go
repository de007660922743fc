package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, INFO, ParseLevel("???"), "Неизвестный уровень трактуется как INFO")
}

func TestWriterLogger_Threshold(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("generator", &buf, WARN)

	logger.Info("не должно попасть")
	logger.Warn("лимит попыток %d", 7)

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [generator] лимит попыток 7")
}

func TestDefaultLogger_SilentWhenUnset(t *testing.T) {
	SetDefaultLogger(nil)
	// Не должно паниковать без инициализации
	Info("тишина")
	Error("тишина %v", 1)

	var buf bytes.Buffer
	SetDefaultLogger(NewWriterLogger("test", &buf, TRACE))
	defer SetDefaultLogger(nil)

	Debug("привет")
	assert.Contains(t, buf.String(), "привет")
}

func TestLoggerManager_FileLoggers(t *testing.T) {
	prev := LogsDir
	LogsDir = t.TempDir()
	defer func() { LogsDir = prev }()

	lm := NewLoggerManager()
	first, err := lm.GetLogger("storage")
	require.NoError(t, err)

	second, err := lm.GetLogger("storage")
	require.NoError(t, err)
	assert.Same(t, first, second, "Повторный запрос должен возвращать тот же логгер")

	lm.Register("api", NewWriterLogger("api", &bytes.Buffer{}, INFO))
	assert.Equal(t, []string{"api", "storage"}, lm.ListComponents())

	require.NoError(t, lm.SetLogLevel("storage", ERROR, ERROR))
	assert.Error(t, lm.SetLogLevel("missing", INFO, INFO))

	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}
