package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type syncCounter struct {
	zapcore.Core
	syncs int
}

func (c *syncCounter) Sync() error {
	c.syncs++
	return c.Core.Sync()
}

func TestExitCodeLogsAndFlushes(t *testing.T) {
	obs, logs := observer.New(zapcore.InfoLevel)
	core := &syncCounter{Core: obs}
	log := zap.New(core)

	assert.Equal(t, 0, exitCode(log, nil))
	assert.Equal(t, 0, logs.Len())
	assert.Equal(t, 1, core.syncs)

	assert.Equal(t, 1, exitCode(log, errors.New("listen tcp :8080: address already in use")))
	entries := logs.FilterMessage("server stopped").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	}
	assert.Equal(t, 2, core.syncs)
}
