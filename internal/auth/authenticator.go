// Package auth handles account registration, login and session tokens.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/tabsplit/internal/models"
)

// Authenticator resolves credentials to a user.
type Authenticator interface {
	Register(ctx context.Context, email, displayName, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// Session is a signed bearer token handed to a logged-in user.
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// Login authenticates the user and issues a session for them.
func Login(ctx context.Context, a Authenticator, tokens *JWTManager, email, password string) (*Session, error) {
	user, err := a.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return IssueSession(tokens, user)
}

// IssueSession signs a token for an already authenticated user.
func IssueSession(tokens *JWTManager, user *models.User) (*Session, error) {
	token, expiresAt, err := tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session for %s: %w", user.ID, err)
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
