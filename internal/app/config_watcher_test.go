package app

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/splitmind/broker/internal/policy"
)

func TestConfigWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broker.yaml")
	if err := os.WriteFile(path, []byte("heartbeat_timeout_seconds: 90\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	pol := policy.New(policy.DefaultConfig())
	logger := log.New(io.Discard, "", 0)
	w := NewConfigWatcher(path, pol, logger, WithConfigPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	if err := os.WriteFile(path, []byte("heartbeat_timeout_seconds: 45\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		if pol.HeartbeatTimeout() == 45*time.Second {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("heartbeat timeout = %s, want 45s after reload", pol.HeartbeatTimeout())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	w.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestConfigWatcherEmptyPathIsNoop(t *testing.T) {
	pol := policy.New(policy.DefaultConfig())
	logger := log.New(io.Discard, "", 0)
	w := NewConfigWatcher("", pol, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start with empty path should return immediately")
	}
	cancel()
	w.Stop()
}
