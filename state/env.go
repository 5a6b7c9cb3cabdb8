// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"epr/config"
	"epr/storage"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg   *config.Config
	Rpt   *config.Report
	Log   *zap.Logger
	Store *storage.Store

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// OpenStore opens progress and settings database described by configuration,
// subsequent calls return the same store.
func (e *LocalEnv) OpenStore() (*storage.Store, error) {
	if e.Store != nil {
		return e.Store, nil
	}
	if e.Cfg == nil {
		return nil, errNoConfig
	}
	s, err := storage.Open(&e.Cfg.Storage, e.Cfg.Reader.Defaults, e.Log)
	if err != nil {
		return nil, err
	}
	e.Store = s
	return s, nil
}

// Close releases resources held by environment.
func (e *LocalEnv) Close() (err error) {
	if e.Store != nil {
		// closing checkpoints WAL, copy is complete only afterwards
		err = multierr.Append(err, e.Store.Close())
		e.Store = nil
		if e.Rpt != nil && e.Cfg.Storage.Path != storage.MemoryPath {
			err = multierr.Append(err, e.Rpt.StoreCopy("reader.db", e.Cfg.Storage.Path))
		}
	}
	return err
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
