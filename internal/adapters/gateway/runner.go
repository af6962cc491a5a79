// Package gateway drives the external reasoning CLI. Three adapters share
// one process-execution core: a one-shot adapter, a session adapter that
// captures and replays the engine's session handle, and an interactive
// adapter that keeps a single process alive on stdio.
package gateway

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/logging"
)

// Config holds gateway adapter configuration.
type Config struct {
	Command string
	Timeout time.Duration
	WorkDir string
}

// DefaultTimeout bounds a single engine call when none is configured.
const DefaultTimeout = 5 * time.Minute

// runner provides common CLI execution for the gateway adapters.
type runner struct {
	cfg    Config
	logger *logging.Logger
}

func newRunner(cfg Config, logger *logging.Logger) *runner {
	if cfg.Command == "" {
		cfg.Command = "claude"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &runner{cfg: cfg, logger: logger}
}

// run executes one engine invocation and returns stdout.
func (r *runner) run(ctx context.Context, args []string, optTimeout time.Duration) (string, error) {
	timeout := optTimeout
	if timeout == 0 {
		timeout = r.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmdPath := r.cfg.Command
	// Handle multi-word commands (e.g. a wrapper script with flags)
	cmdParts := strings.Fields(cmdPath)
	if len(cmdParts) > 1 {
		cmdPath = cmdParts[0]
		args = append(cmdParts[1:], args...)
	}

	// #nosec G204 -- command path and args come from validated config
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	if r.cfg.WorkDir != "" {
		cmd.Dir = r.cfg.WorkDir
	}
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("gateway: executing command",
		"path", cmdPath,
		"args", summarizeArgs(args),
		"timeout", timeout,
	)
	start := time.Now()

	err := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		r.logger.Error("gateway: command timeout",
			"path", cmdPath,
			"duration", duration,
			"timeout", timeout,
		)
		return "", core.ErrGateway(core.CodeEngineTimeout,
			fmt.Sprintf("reasoning engine timed out after %v", timeout))
	}

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", core.ErrGateway(core.CodeEngineNotFound,
				fmt.Sprintf("reasoning engine CLI not found: %s", cmdPath))
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.logger.Error("gateway: command failed",
				"path", cmdPath,
				"exit_code", exitErr.ExitCode(),
				"duration", duration,
				"stderr", truncate(stderr.String(), 2000),
			)
			return "", classifyFailure(exitErr.ExitCode(), stderr.String(), stdout.String())
		}
		return "", core.ErrGateway(core.CodeEngineFailed, "executing reasoning engine").WithCause(err)
	}

	out := stdout.String()
	if strings.TrimSpace(out) == "" {
		return "", core.ErrGateway(core.CodeEmptyResponse, "reasoning engine returned an empty response")
	}

	r.logger.Debug("gateway: command completed",
		"duration", duration,
		"stdout_length", len(out),
	)
	return out, nil
}

// rateLimitKeywords mark an engine failure as rate-limit shaped. Matched
// case-insensitively against the combined error text.
var rateLimitKeywords = []string{
	"rate limit",
	"rate_limit",
	"token limit",
	"tokens limit",
	"quota",
	"too many requests",
	"429",
	"limit exceeded",
	"capacity",
}

// IsRateLimited reports whether text looks like a rate-limit failure.
func IsRateLimited(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range rateLimitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// classifyFailure converts a non-zero exit into a domain error.
func classifyFailure(exitCode int, stderr, stdout string) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = strings.TrimSpace(stdout)
	}
	if msg == "" {
		msg = "(no error message captured)"
	}
	if IsRateLimited(msg) {
		return core.ErrRateLimit(msg)
	}
	return core.ErrGateway(core.CodeEngineFailed,
		fmt.Sprintf("reasoning engine failed with exit code %d: %s", exitCode, truncate(msg, 500)))
}

// summarizeArgs keeps logs readable when a prompt argument is large.
func summarizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = truncate(a, 120)
	}
	return out
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... [truncated]"
}

// checkAvailable verifies the engine CLI is on PATH.
func (r *runner) checkAvailable() error {
	cmdParts := strings.Fields(r.cfg.Command)
	if _, err := exec.LookPath(cmdParts[0]); err != nil {
		return core.ErrGateway(core.CodeEngineNotFound,
			fmt.Sprintf("reasoning engine CLI not found: %s", cmdParts[0]))
	}
	return nil
}

// drainLines reads from r until it closes, sending lines to ch.
func drainLines(src io.Reader, ch chan<- string, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		ch <- scanner.Text()
	}
	close(ch)
}
