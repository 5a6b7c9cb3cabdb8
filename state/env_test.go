package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"epr/config"
)

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	if ctx == nil {
		t.Fatal("ContextWithEnv() returned nil")
	}

	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}

	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
}

func TestEnvFromContext(t *testing.T) {
	t.Run("valid context", func(t *testing.T) {
		ctx := ContextWithEnv(context.Background())
		env := EnvFromContext(ctx)

		if env == nil {
			t.Error("Expected non-nil environment")
		}
	})

	t.Run("panic on missing env", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic when env not in context")
			}
		}()

		EnvFromContext(context.Background())
	})
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))

	time.Sleep(10 * time.Millisecond)
	uptime := env.Uptime()

	if uptime < 10*time.Millisecond {
		t.Errorf("Uptime() = %v, expected at least 10ms", uptime)
	}
	if uptime > 1*time.Second {
		t.Errorf("Uptime() = %v, unexpectedly large", uptime)
	}
}

func TestLocalEnv_RedirectStdLog(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		env := &LocalEnv{
			Log: zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))),
		}

		env.RedirectStdLog()
		if env.restoreStdLog == nil {
			t.Error("Expected restoreStdLog to be set")
		}

		env.RestoreStdLog()
	})

	t.Run("without logger", func(t *testing.T) {
		env := &LocalEnv{}

		env.RedirectStdLog()
		if env.restoreStdLog != nil {
			t.Error("Expected restoreStdLog to remain nil")
		}
		env.RestoreStdLog()
	})
}

func TestLocalEnv_OpenStore(t *testing.T) {
	t.Run("no config", func(t *testing.T) {
		env := &LocalEnv{}
		if _, err := env.OpenStore(); err == nil {
			t.Fatal("expected error without configuration")
		}
	})

	t.Run("open and close", func(t *testing.T) {
		cfg, err := config.LoadConfiguration("")
		if err != nil {
			t.Fatalf("LoadConfiguration: %v", err)
		}
		cfg.Storage.Path = filepath.Join(t.TempDir(), "reader.db")

		env := &LocalEnv{Cfg: cfg, Log: zaptest.NewLogger(t)}
		s1, err := env.OpenStore()
		if err != nil {
			t.Fatalf("OpenStore: %v", err)
		}
		s2, err := env.OpenStore()
		if err != nil {
			t.Fatalf("OpenStore second call: %v", err)
		}
		if s1 != s2 {
			t.Error("OpenStore should return the same store")
		}
		if err := env.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if env.Store != nil {
			t.Error("Store should be released by Close")
		}
		if err := env.Close(); err != nil {
			t.Fatalf("second Close: %v", err)
		}
	})
}
