package gateway

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/logging"
)

// endMarker terminates every interactive response. It is appended to each
// prompt as an instruction and stripped from the engine's reply; response
// completion cannot otherwise be detected on a byte stream.
const endMarker = "<<<END_RESPONSE>>>"

// Interactive keeps one engine process alive on stdin/stdout for the whole
// adapter lifetime. The process holds the conversational state, so the
// session in requests and responses carries only the attachment binding.
type Interactive struct {
	*runner

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   chan string
	started bool

	// attachment currently loaded in the live process
	attachment string
}

// NewInteractive creates an interactive gateway adapter. The process is
// started lazily on the first Send.
func NewInteractive(cfg Config, logger *logging.Logger) *Interactive {
	return &Interactive{runner: newRunner(cfg, logger)}
}

// start launches the persistent process and its reader goroutine.
func (g *Interactive) start() error {
	if g.started {
		return nil
	}
	if err := g.checkAvailable(); err != nil {
		return err
	}

	cmdParts := strings.Fields(g.cfg.Command)
	// #nosec G204 -- command path comes from validated config
	cmd := exec.Command(cmdParts[0], cmdParts[1:]...)
	if g.cfg.WorkDir != "" {
		cmd.Dir = g.cfg.WorkDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return core.ErrGateway(core.CodeEngineFailed, "opening stdin pipe").WithCause(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return core.ErrGateway(core.CodeEngineFailed, "opening stdout pipe").WithCause(err)
	}

	if err := cmd.Start(); err != nil {
		return core.ErrGateway(core.CodeEngineNotFound,
			fmt.Sprintf("starting reasoning engine: %v", err))
	}

	lines := make(chan string, 256)
	var wg sync.WaitGroup
	wg.Add(1)
	go drainLines(stdout, lines, &wg)

	g.cmd = cmd
	g.stdin = stdin
	g.lines = lines
	g.started = true
	g.logger.Info("gateway: interactive process started", "pid", cmd.Process.Pid)
	return nil
}

// Send writes one prompt to the live process and collects the response up
// to the end marker.
func (g *Interactive) Send(ctx context.Context, req core.GatewayRequest) (*core.GatewayResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.start(); err != nil {
		return nil, err
	}

	// A new attachment invalidates the loaded context: restart the process.
	if req.AttachmentPath != "" && g.attachment != "" &&
		normalizeAttachment(req.AttachmentPath) != g.attachment {
		if err := g.restart(); err != nil {
			return nil, err
		}
	}

	prompt := fullPrompt(req)
	if req.AttachmentPath != "" && g.attachment == "" {
		prompt = fmt.Sprintf("Read the document at %s before answering.\n\n%s", req.AttachmentPath, prompt)
		g.attachment = normalizeAttachment(req.AttachmentPath)
	}
	prompt += "\n\nEnd your response with the exact marker " + endMarker

	if _, err := io.WriteString(g.stdin, prompt+"\n"); err != nil {
		return nil, core.ErrGateway(core.CodeEngineFailed, "writing prompt to engine").WithCause(err)
	}

	text, err := g.collect(ctx, req.Timeout)
	if err != nil {
		return nil, err
	}
	return &core.GatewayResponse{
		Text:    text,
		Session: core.Session{ID: "interactive", AttachmentPath: req.AttachmentPath},
	}, nil
}

// collect reads stdout lines until the end marker, a timeout, or EOF.
func (g *Interactive) collect(ctx context.Context, optTimeout time.Duration) (string, error) {
	timeout := optTimeout
	if timeout == 0 {
		timeout = g.cfg.Timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", core.ErrGateway(core.CodeEngineFailed, "context cancelled").WithCause(ctx.Err())
		case <-timer.C:
			return "", core.ErrGateway(core.CodeEngineTimeout,
				fmt.Sprintf("reasoning engine timed out after %v", timeout))
		case line, ok := <-g.lines:
			if !ok {
				return "", core.ErrGateway(core.CodeEngineFailed, "reasoning engine closed its output")
			}
			if idx := strings.Index(line, endMarker); idx != -1 {
				sb.WriteString(line[:idx])
				text := strings.TrimSpace(sb.String())
				if text == "" {
					return "", core.ErrGateway(core.CodeEmptyResponse, "reasoning engine returned an empty response")
				}
				if IsRateLimited(text) {
					return "", core.ErrRateLimit(text)
				}
				return text, nil
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
}

// Usage sends the usage command through the live process.
func (g *Interactive) Usage(ctx context.Context) (*core.UsageReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.start(); err != nil {
		return nil, err
	}
	if _, err := io.WriteString(g.stdin, "/usage\n"); err != nil {
		return nil, core.ErrGateway(core.CodeEngineFailed, "writing usage command").WithCause(err)
	}

	// Usage output has no marker; give the engine a short window to reply.
	deadline := time.After(10 * time.Second)
	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			raw := sb.String()
			return &core.UsageReport{Raw: raw, ResetAfter: ParseResetHint(raw)}, nil
		case line, ok := <-g.lines:
			if !ok {
				raw := sb.String()
				return &core.UsageReport{Raw: raw, ResetAfter: ParseResetHint(raw)}, nil
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
}

// restart tears the process down and starts a fresh one.
func (g *Interactive) restart() error {
	g.closeLocked()
	g.attachment = ""
	return g.start()
}

// Close shuts the persistent process down.
func (g *Interactive) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closeLocked()
	return nil
}

func (g *Interactive) closeLocked() {
	if !g.started {
		return
	}
	_, _ = io.WriteString(g.stdin, "/exit\n")
	_ = g.stdin.Close()

	done := make(chan struct{})
	go func() {
		_ = g.cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = g.cmd.Process.Kill()
		<-done
	}
	g.started = false
	g.cmd = nil
	g.stdin = nil
	g.lines = nil
}
