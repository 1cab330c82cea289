// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the zap logger shared by the pipeline stages.
package logging

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// New returns a sugared logger for cfg. Console output goes to stderr so
// rendered knowledge on stdout stays clean; JSON output uses zap's
// production encoder. debug forces the debug level.
func New(cfg types.LogConfig, debug bool) (*zap.SugaredLogger, error) {
	return NewWithWriter(cfg, debug, os.Stderr)
}

// NewWithWriter is New writing to w.
func NewWithWriter(cfg types.LogConfig, debug bool, w io.Writer) (*zap.SugaredLogger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		level = zapcore.DebugLevel
	}

	var enc zapcore.Encoder
	if cfg.JSON {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		ec.EncodeCaller = nil
		enc = zapcore.NewConsoleEncoder(ec)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core).Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return level, errors.WithHint(errors.Wrapf(err, "log level %q", s), "use debug, info, warn or error")
	}
	return level, nil
}
