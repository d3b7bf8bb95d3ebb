package imagesweep

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRecoverPanic_LogsOnceAndCallsHook(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	calls := 0
	cfg := &Config{
		Logger:  slog.New(slog.NewTextHandler(&buf, nil)),
		OnPanic: func(tag string, r any) { calls++ },
	}

	err := func() (err error) {
		defer cfg.recoverPanic("persist", &err)
		panic("boom")
	}()

	if err == nil || !strings.Contains(err.Error(), "panic in persist: boom") {
		t.Errorf("err = %v, want panic error", err)
	}
	if calls != 1 {
		t.Errorf("OnPanic called %d times, want 1", calls)
	}
	if n := strings.Count(buf.String(), "recovered panic"); n != 1 {
		t.Errorf("panic logged %d times, want 1:\n%s", n, buf.String())
	}
}
