package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "contend.yaml", "policy:\n  kind: round-robin\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c Config) { reloaded <- c }, nil)
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	// An invalid write is skipped.
	require.NoError(t, os.WriteFile(path, []byte("policy:\n  kind: bogus\n"), 0644))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("policy:\n  kind: random\n  seed: 9\n"), 0644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Policy.Kind == PolicyRandom {
				assert.Equal(t, uint64(9), cfg.Policy.Seed)
				cancel()
				assert.ErrorIs(t, <-done, context.Canceled)
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}
