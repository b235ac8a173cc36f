// Package nlog - cryptic worker logger: per-worker log file, console echo,
// and Sentry exception capture
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const flushTimeout = 2 * time.Second

var (
	mu       sync.RWMutex
	log      *zap.SugaredLogger
	ussentry bool
)

func init() {
	log = console().Sugar()
}

func console() *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zapcore.InfoLevel,
	)
	return zap.New(core)
}

// Setup (re)initializes the package-level logger for the given worker:
// console at info level plus, when dir is non-empty and "/"-terminated,
// a <dir><role>.log file at debug level. A non-empty dsn enables Sentry.
func Setup(dir, role, dsn, release string) error {
	cores := []zapcore.Core{console().Core()}

	if dir != "" && strings.HasSuffix(dir, "/") {
		f, err := os.OpenFile(dir+role+".log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrapf(err, "open log file for %q", role)
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(f),
			zapcore.DebugLevel,
		))
	}

	if dsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:        dsn,
			Release:    release,
			ServerName: "cryptic-" + role,
		})
		if err != nil {
			return errors.Wrap(err, "sentry init")
		}
	}

	mu.Lock()
	log = zap.New(zapcore.NewTee(cores...)).Sugar()
	ussentry = dsn != ""
	mu.Unlock()
	return nil
}

func get() *zap.SugaredLogger {
	mu.RLock()
	l := log
	mu.RUnlock()
	return l
}

func Infoln(args ...any)                  { get().Info(args...) }
func Infof(format string, args ...any)    { get().Infof(format, args...) }
func Debugln(args ...any)                 { get().Debug(args...) }
func Debugf(format string, args ...any)   { get().Debugf(format, args...) }
func Warningln(args ...any)               { get().Warn(args...) }
func Warningf(format string, args ...any) { get().Warnf(format, args...) }
func Errorln(args ...any)                 { get().Error(args...) }
func Errorf(format string, args ...any)   { get().Errorf(format, args...) }

func InfoDepth(depth int, args ...any) {
	get().WithOptions(zap.AddCallerSkip(depth + 1)).Info(args...)
}

func ErrorDepth(depth int, args ...any) {
	get().WithOptions(zap.AddCallerSkip(depth + 1)).Error(args...)
}

// CaptureException reports err to Sentry (when configured) with the given
// alternating key/value context, and always logs it locally.
func CaptureException(err error, keyvals ...any) {
	if usingSentry() {
		sentry.WithScope(func(scope *sentry.Scope) {
			for i := 0; i+1 < len(keyvals); i += 2 {
				scope.SetExtra(fmt.Sprint(keyvals[i]), keyvals[i+1])
			}
			sentry.CaptureException(err)
		})
	}
	get().Errorw(err.Error(), keyvals...)
}

func usingSentry() bool {
	mu.RLock()
	u := ussentry
	mu.RUnlock()
	return u
}

// Flush drains buffered log output and pending Sentry events. Called on
// process teardown.
func Flush() {
	_ = get().Sync()
	if usingSentry() {
		sentry.Flush(flushTimeout)
	}
}
