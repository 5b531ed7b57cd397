package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLoggerIsSingleton(t *testing.T) {
	first := GetLogger()
	second := GetLogger()
	assert.NotNil(t, first)
	assert.Same(t, first, second)
}

func TestInitLoggerConsoleOnly(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "info"
	cfg.Logging.TimeFormat = "15:04:05"

	logger := InitLogger(cfg)
	assert.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())
}
