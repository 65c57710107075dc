// Package auth builds the authenticated HTTP client used by the YouTube
// repository.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scope grants read/write access to broadcasts and videos.
const Scope = "https://www.googleapis.com/auth/youtube.force-ssl"

const (
	MethodServiceAccount = "service_account"
	MethodOAuth          = "oauth"
)

// Options selects the credential source.
type Options struct {
	Method string

	// ServiceAccountFile is the JSON key used by MethodServiceAccount.
	ServiceAccountFile string

	// OAuthCredentialsFile holds the OAuth client ("installed" or "web")
	// and OAuthTokenFile a previously issued token with a refresh token.
	OAuthCredentialsFile string
	OAuthTokenFile       string
}

// NewHTTPClient returns a client that attaches credentials to every request.
// Tokens are refreshed in memory; nothing is written back to disk.
func NewHTTPClient(ctx context.Context, opts Options) (*http.Client, error) {
	switch opts.Method {
	case MethodServiceAccount:
		return serviceAccountClient(ctx, opts.ServiceAccountFile)
	case MethodOAuth:
		return oauthClient(ctx, opts.OAuthCredentialsFile, opts.OAuthTokenFile)
	default:
		return nil, fmt.Errorf("auth: unknown method %q (use %q or %q)", opts.Method, MethodServiceAccount, MethodOAuth)
	}
}

func serviceAccountClient(ctx context.Context, path string) (*http.Client, error) {
	if path == "" {
		return nil, errors.New("auth: service_account_file is not set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("auth: read service account key: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, Scope)
	if err != nil {
		return nil, fmt.Errorf("auth: parse service account key: %w", err)
	}
	return conf.Client(ctx), nil
}

func oauthClient(ctx context.Context, credentialsPath, tokenPath string) (*http.Client, error) {
	if credentialsPath == "" || tokenPath == "" {
		return nil, errors.New("auth: oauth_credentials_file and oauth_token_file must both be set")
	}
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("auth: read oauth credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(data, Scope)
	if err != nil {
		return nil, fmt.Errorf("auth: parse oauth credentials: %w", err)
	}

	tok, err := loadToken(tokenPath)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, tok)), nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("auth: read oauth token (obtain one with an external consent flow first): %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("auth: parse oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("auth: oauth token has neither access nor refresh token")
	}
	return &tok, nil
}
