package gateway

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

// sessionWrapper is the structured envelope the engine emits with
// --output-format json on the session-establishing call.
type sessionWrapper struct {
	SessionID string `json:"session_id"`
	Result    string `json:"result"`
	Content   string `json:"content"`
	Message   string `json:"message"`
}

// parseSessionWrapper extracts the session id and response text from the
// JSON envelope. Engines occasionally leak control characters into the
// envelope, which break strict JSON parsing, so those are stripped first.
// The response text comes from result, falling back to content then
// message; an envelope with none of them falls back to the raw output.
func parseSessionWrapper(raw string) (sessionID, text string, err error) {
	cleaned := stripControlChars(raw)

	span := cleaned
	if start := strings.Index(cleaned, "{"); start != -1 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			span = cleaned[start : end+1]
		}
	}

	var w sessionWrapper
	if jsonErr := json.Unmarshal([]byte(span), &w); jsonErr != nil {
		return "", "", core.ErrGateway(core.CodeParseFailed,
			"session envelope is not valid JSON").WithCause(jsonErr)
	}

	text = w.Result
	if text == "" {
		text = w.Content
	}
	if text == "" {
		text = w.Message
	}
	if text == "" {
		text = raw
	}
	return w.SessionID, text, nil
}

// stripControlChars removes C0 control characters except tab, LF and CR.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// normalizeAttachment canonicalizes an attachment path for comparison:
// absolute, cleaned, case-folded. Two calls target the same session only
// when their normalized attachments match.
func normalizeAttachment(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return strings.ToLower(filepath.Clean(abs))
}

// sameAttachment reports whether an existing session can serve a request
// for the given attachment.
func sameAttachment(s core.Session, attachmentPath string) bool {
	if s.IsZero() {
		return false
	}
	return normalizeAttachment(s.AttachmentPath) == normalizeAttachment(attachmentPath)
}
