package gateway

import (
	"fmt"

	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/logging"
)

// New creates the gateway adapter for the configured mode.
func New(mode string, cfg Config, logger *logging.Logger) (core.Gateway, error) {
	switch mode {
	case "oneshot":
		return NewOneShot(cfg, logger), nil
	case "", "session":
		return NewSession(cfg, logger), nil
	case "interactive":
		return NewInteractive(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown gateway mode %q", mode)
	}
}
