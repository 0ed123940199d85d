package zap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/hashcache"
)

func TestZapLoggerLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("d", nil)
	l.Info("i", hashcache.Fields{"cache": "users"})
	l.Warn("w", hashcache.Fields{"err": errors.New("down"), "op": "HGET"})
	l.Error("critical cache has not been built", hashcache.Fields{"key": "k"})

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	require.Equal(t, zapcore.DebugLevel, entries[0].Level)
	require.Equal(t, zapcore.ErrorLevel, entries[3].Level)

	warn := entries[2].ContextMap()
	require.Equal(t, "down", warn["err"])
	require.Equal(t, "HGET", warn["op"])
	require.Equal(t, "hashcache", warn["component"])
	require.Equal(t, "users", entries[1].ContextMap()["cache"])
}
