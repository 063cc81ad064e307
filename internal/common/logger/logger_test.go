package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestMapToZapFields_SortedAndErrorsNamed(t *testing.T) {
	fields := mapToZapFields(map[string]interface{}{
		"renderId": "abc",
		"error":    errors.New("boom"),
		"age":      30,
	})

	assert.Len(t, fields, 3)
	assert.Equal(t, "age", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
	assert.Equal(t, zapcore.ErrorType, fields[1].Type)
	assert.Equal(t, "renderId", fields[2].Key)

	assert.Nil(t, mapToZapFields(nil))
}

func TestLoggers_DoNotPanic(t *testing.T) {
	loggers := []Logger{
		NewNoOpLogger(),
		NewTestLogger(t),
		NewStructured("debug", "console", "stderr"),
	}
	for _, l := range loggers {
		assert.NotPanics(t, func() {
			l.WithFields(map[string]interface{}{"component": "test"}).
				WithError(errors.New("x")).
				Info("hello", map[string]interface{}{"k": "v"})
		})
	}
}
