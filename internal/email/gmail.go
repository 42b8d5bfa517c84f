package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GmailConfig holds the configuration for the Gmail transport.
type GmailConfig struct {
	// Endpoint overrides the Gmail API base URL (used by tests and proxies).
	Endpoint string
	// HTTPClient is the base client the bearer token is layered on.
	HTTPClient *http.Client
}

// GmailTransport implements Transport using the Gmail API
// users.messages.send call. Each Send authenticates with the token it is
// given, so a token lapsing mid-run only fails the sends after it.
type GmailTransport struct {
	endpoint   string
	httpClient *http.Client
}

// NewGmailTransport creates a new GmailTransport.
func NewGmailTransport(cfg GmailConfig) *GmailTransport {
	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &GmailTransport{
		endpoint:   endpoint,
		httpClient: cfg.HTTPClient,
	}
}

// Send posts raw to the authenticated user's mailbox.
func (g *GmailTransport) Send(ctx context.Context, raw string, accessToken string) error {
	svc, err := g.service(ctx, accessToken)
	if err != nil {
		return &TransportError{Message: fmt.Sprintf("%s: %v", genericFailure, err)}
	}

	_, err = svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return classify(err)
	}
	return nil
}

func (g *GmailTransport) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	clientCtx := ctx
	if g.httpClient != nil {
		clientCtx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(clientCtx, ts))}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	return gmail.NewService(ctx, opts...)
}

// classify turns a Gmail client error into a TransportError, preferring the
// message from the structured error body.
func classify(err error) *TransportError {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return &TransportError{StatusCode: apiErr.Code, Message: apiErr.Message}
		}
		return &TransportError{
			StatusCode: apiErr.Code,
			Message:    fmt.Sprintf("%s (HTTP %d)", genericFailure, apiErr.Code),
		}
	}
	return &TransportError{Message: fmt.Sprintf("%s: %v", genericFailure, err)}
}
