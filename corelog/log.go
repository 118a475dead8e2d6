// Package corelog configures and wraps github.com/rockbears/log, the teacher's
// own context-scoped structured logger (sdk/log, package cdslog). The full
// cdslog also wires graylog/syslog hooks via logrus; that shipping-destination
// concern is part of the out-of-scope "process startup ... and logging plumbing"
// collaborator (spec §1) and is not reproduced here — only level setup and field
// redaction, which the engine's own call sites depend on, are kept. Conf.Format
// is read from the config but not applied: the output format is the logger's
// default.
package corelog

import (
	"context"

	"github.com/rockbears/log"
	"github.com/sirupsen/logrus"
)

// Conf is the logging configuration surface read from the process config.
type Conf struct {
	Level  string // "debug", "info", "warning", "error"
	Format string // "text" or "json"
}

// sensitiveFields lists the field names that must never appear unredacted in a
// log entry: access keys, JWTs, OAuth secrets (spec §7 Logging).
var sensitiveFields = []string{"accessKey", "name", "token", "jwt", "clientSecret", "authorization"}

// Initialize sets the process log level and registers redaction for sensitive
// fields, modeled on cdslog.Initialize's conf.SkipTextFields loop.
func Initialize(ctx context.Context, conf Conf) {
	switch conf.Level {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "warning":
		logrus.SetLevel(logrus.WarnLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
	for _, f := range sensitiveFields {
		log.Skip(log.Field(f), "***")
	}
}

// Debug, Info, Warn and Error forward to rockbears/log, kept as named wrappers so
// call sites in this repository import corelog rather than the log library
// directly (the level where we'd swap loggers again, per the teacher's own
// sdk/log indirection over logrus).
func Debug(ctx context.Context, format string, args ...interface{}) { log.Debug(ctx, format, args...) }
func Info(ctx context.Context, format string, args ...interface{})  { log.Info(ctx, format, args...) }
func Warn(ctx context.Context, format string, args ...interface{})  { log.Warn(ctx, format, args...) }
func Error(ctx context.Context, format string, args ...interface{}) { log.Error(ctx, format, args...) }
