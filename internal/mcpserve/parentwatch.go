package mcpserve

import (
	"context"
	"os"
	"time"

	"turnstile/internal/logging"
)

// WatchParent polls for parent process death in a background goroutine and
// calls cancel when the parent PID changes. An editor or agent host that
// crashes without closing the transport would otherwise leave the stdio
// server running forever.
//
// It must not read from stdin: the MCP StdioTransport owns stdin, and
// stealing bytes here would corrupt the JSON-RPC stream.
func WatchParent(ctx context.Context, cancel context.CancelFunc) {
	ppid := os.Getppid()
	logger := logging.New("mcp")
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				if os.Getppid() != ppid {
					logger.Warn("parent process died, shutting down", "was_pid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
