package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// Authorization errors
var (
	// ErrUserCancelled means the user closed or declined the consent step.
	ErrUserCancelled = errors.New("authorization cancelled by user")
	// ErrAuthorizationRejected means Google refused to issue a token.
	ErrAuthorizationRejected = errors.New("authorization rejected")
	ErrClientIDMissing       = errors.New("google client id is not configured")
)

// TokenResult is what a successful authorization yields
type TokenResult struct {
	AccessToken string
	// ExpiresIn is the token lifetime in seconds
	ExpiresIn int64
}

// Callback carries the query parameters of the OAuth redirect
type Callback struct {
	Code  string
	Error string
	// Description is the optional error_description parameter
	Description string
}

// GoogleConfig configures a GoogleAuthorizer
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint overrides google.Endpoint (tests)
	Endpoint *oauth2.Endpoint
}

// GoogleAuthorizer runs the authorization-code exchange for the gmail.send scope
type GoogleAuthorizer struct {
	oauth *oauth2.Config
	now   func() time.Time
}

// NewGoogleAuthorizer creates a new GoogleAuthorizer
func NewGoogleAuthorizer(cfg GoogleConfig) (*GoogleAuthorizer, error) {
	if cfg.ClientID == "" {
		return nil, ErrClientIDMissing
	}
	endpoint := google.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	return &GoogleAuthorizer{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{gmail.GmailSendScope},
		},
		now: time.Now,
	}, nil
}

// AuthCodeURL returns the consent page URL carrying state
func (a *GoogleAuthorizer) AuthCodeURL(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Complete resolves a redirect callback into a token or a typed error.
func (a *GoogleAuthorizer) Complete(ctx context.Context, cb Callback) (TokenResult, error) {
	switch {
	case cb.Error == "access_denied":
		return TokenResult{}, ErrUserCancelled
	case cb.Error != "":
		if cb.Description != "" {
			return TokenResult{}, fmt.Errorf("%w: %s: %s", ErrAuthorizationRejected, cb.Error, cb.Description)
		}
		return TokenResult{}, fmt.Errorf("%w: %s", ErrAuthorizationRejected, cb.Error)
	case cb.Code == "":
		return TokenResult{}, fmt.Errorf("%w: callback carried no code", ErrAuthorizationRejected)
	}

	tok, err := a.oauth.Exchange(ctx, cb.Code)
	if err != nil {
		if ctx.Err() != nil {
			return TokenResult{}, fmt.Errorf("%w: %v", ErrUserCancelled, ctx.Err())
		}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode != "" {
			return TokenResult{}, fmt.Errorf("%w: %s", ErrAuthorizationRejected, re.ErrorCode)
		}
		return TokenResult{}, fmt.Errorf("%w: %v", ErrAuthorizationRejected, err)
	}

	return a.result(tok), nil
}

func (a *GoogleAuthorizer) result(tok *oauth2.Token) TokenResult {
	expiresIn := tok.ExpiresIn
	if expiresIn == 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(tok.Expiry.Sub(a.now()).Seconds())
	}
	return TokenResult{AccessToken: tok.AccessToken, ExpiresIn: expiresIn}
}
