// Package auth is the credential collaborator: it reads the GitHub
// token once at startup and hands it out through an opaque accessor.
package auth

import (
	"errors"
	"os"
	"strings"

	"github.com/hubview/hubview/pkg/config"
)

// ErrNoToken is the fatal startup failure for a missing credential.
var ErrNoToken = errors.New("no GitHub token configured (set GITHUB_TOKEN or GITHUB_TOKEN_FILE)")

// Static holds a token fixed for the process lifetime.
type Static struct {
	token string
}

// Load resolves the token from config: the literal value wins, then
// the token file.
func Load(cfg config.Auth) (*Static, error) {
	if cfg.Token != "" {
		return &Static{token: cfg.Token}, nil
	}
	if cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		token := strings.TrimSpace(string(raw))
		if token != "" {
			return &Static{token: token}, nil
		}
	}
	return nil, ErrNoToken
}

func (s *Static) CurrentToken() string { return s.token }
