package gateway

import (
	"context"
	"fmt"
	"os"

	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/logging"
)

// OneShot invokes the engine once per call. Every call with an attachment
// pays the full attachment cost, so the session adapter is preferred for
// multi-module stages.
type OneShot struct {
	*runner
}

// NewOneShot creates a one-shot gateway adapter.
func NewOneShot(cfg Config, logger *logging.Logger) *OneShot {
	return &OneShot{runner: newRunner(cfg, logger)}
}

// Send executes one engine call. The returned session is always zero: the
// one-shot adapter has no conversational state.
func (g *OneShot) Send(ctx context.Context, req core.GatewayRequest) (*core.GatewayResponse, error) {
	args, err := buildPromptArgs(req)
	if err != nil {
		return nil, err
	}
	out, err := g.run(ctx, args, req.Timeout)
	if err != nil {
		return nil, err
	}
	return &core.GatewayResponse{Text: out}, nil
}

// Usage queries the engine's quota state.
func (g *OneShot) Usage(ctx context.Context) (*core.UsageReport, error) {
	return queryUsage(ctx, g.runner)
}

// SessionAdapter reuses the engine's session handle across calls so a
// document attachment is loaded into context once per stage. The first
// call against a new attachment requests a structured envelope to capture
// the session id; later calls resume it. The session travels in the
// request and response, never inside the adapter.
type SessionAdapter struct {
	*runner
}

// NewSession creates a session-aware gateway adapter.
func NewSession(cfg Config, logger *logging.Logger) *SessionAdapter {
	return &SessionAdapter{runner: newRunner(cfg, logger)}
}

// Send executes one engine call, establishing or resuming a session.
func (g *SessionAdapter) Send(ctx context.Context, req core.GatewayRequest) (*core.GatewayResponse, error) {
	if sameAttachment(req.Session, req.AttachmentPath) {
		return g.resume(ctx, req)
	}
	return g.establish(ctx, req)
}

// establish starts a new session: the attachment is passed to the engine
// and the session id is captured from the JSON envelope.
func (g *SessionAdapter) establish(ctx context.Context, req core.GatewayRequest) (*core.GatewayResponse, error) {
	args, err := buildPromptArgs(req)
	if err != nil {
		return nil, err
	}
	args = append(args, "--output-format", "json")

	out, err := g.run(ctx, args, req.Timeout)
	if err != nil {
		return nil, err
	}

	sessionID, text, err := parseSessionWrapper(out)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("gateway: session established", "session_id", sessionID)

	return &core.GatewayResponse{
		Text: text,
		Session: core.Session{
			ID:             sessionID,
			AttachmentPath: req.AttachmentPath,
		},
	}, nil
}

// resume continues an existing session without resending the attachment.
func (g *SessionAdapter) resume(ctx context.Context, req core.GatewayRequest) (*core.GatewayResponse, error) {
	args := []string{"-p", fullPrompt(req), "--resume", req.Session.ID}

	out, err := g.run(ctx, args, req.Timeout)
	if err != nil {
		return nil, err
	}
	return &core.GatewayResponse{Text: out, Session: req.Session}, nil
}

// Usage queries the engine's quota state.
func (g *SessionAdapter) Usage(ctx context.Context) (*core.UsageReport, error) {
	return queryUsage(ctx, g.runner)
}

// buildPromptArgs constructs the argument list for a prompted call,
// validating the attachment first.
func buildPromptArgs(req core.GatewayRequest) ([]string, error) {
	args := []string{"-p", fullPrompt(req)}
	if req.AttachmentPath != "" {
		if _, err := os.Stat(req.AttachmentPath); err != nil {
			return nil, core.ErrGateway(core.CodeEngineFailed,
				fmt.Sprintf("attachment not found: %s", req.AttachmentPath))
		}
		args = append(args, req.AttachmentPath)
	}
	return args, nil
}

// fullPrompt prepends the system instructions to the user prompt. The
// engine CLI takes one prompt argument, so both travel together.
func fullPrompt(req core.GatewayRequest) string {
	if req.System == "" {
		return req.Prompt
	}
	return req.System + "\n\n" + req.Prompt
}

// queryUsage asks the engine for its quota state and parses reset hints.
func queryUsage(ctx context.Context, r *runner) (*core.UsageReport, error) {
	out, err := r.run(ctx, []string{"-p", "/usage"}, 0)
	if err != nil {
		return nil, err
	}
	return &core.UsageReport{
		Raw:        out,
		ResetAfter: ParseResetHint(out),
	}, nil
}
