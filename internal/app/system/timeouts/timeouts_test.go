package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second, Upload: 2 * time.Minute})

	if Short() != 7*time.Second {
		t.Errorf("Short() = %v", Short())
	}
	if Upload() != 2*time.Minute {
		t.Errorf("Upload() = %v", Upload())
	}
	if Medium() != DefaultMedium {
		t.Errorf("Medium() = %v, want default", Medium())
	}

	Reset()
	if Current() != defaults {
		t.Errorf("Reset() left %+v", Current())
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("TIMEOUT_LONG", "45s")
	t.Setenv("TIMEOUT_PING", "bogus")
	t.Setenv("TIMEOUT_UPLOAD", "-1s")

	if n := ConfigureFromEnv(); n != 1 {
		t.Errorf("ConfigureFromEnv() = %d, want 1", n)
	}
	if Long() != 45*time.Second {
		t.Errorf("Long() = %v", Long())
	}
	if Ping() != DefaultPing || Upload() != DefaultUpload {
		t.Error("invalid values should be ignored")
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test")
	<-ctx.Done()
	cancel()
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v", ctx.Err())
	}
}
