// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package devicecode implements the OAuth device authorization grant. The
application requests a short user code, shows the user where to enter it, and
polls the token endpoint until the user finishes authenticating on another
device. The resulting credential is bound to the authenticated user and serves
later requests from its cache, falling back to the refresh token grant.
*/
package devicecode

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/pkg/browser"

	"github.com/AzureAD/azure-auth-library-for-go/auth/cache"
	"github.com/AzureAD/azure-auth-library-for-go/auth/environments"
	"github.com/AzureAD/azure-auth-library-for-go/auth/errors"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/adal"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/base"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/comm"
	"github.com/AzureAD/azure-auth-library-for-go/auth/logger"
)

// Token is the result of one token acquisition.
type Token = adal.Token

// Result carries the user code details the user needs to complete the flow.
type Result = adal.DeviceCodeResult

// Options configures the Client's behavior.
type Options struct {
	Environment environments.Environment
	Audience    environments.TokenAudience
	Resource    string
	Accessor    cache.ExportReplace
	Logger      *logger.Logger
	HTTPClient  comm.HTTPClient

	// Prompt is called with the user code details. The default prints the
	// message from the identity provider to Output.
	Prompt func(ctx context.Context, r Result) error
	// Output receives the default prompt message. Defaults to os.Stderr.
	Output io.Writer
	// OpenBrowser opens the verification URL in the system browser after the
	// prompt runs.
	OpenBrowser bool
}

// Option is an optional argument to New().
type Option func(o *Options)

// WithEnvironment sets the cloud environment to authenticate against.
func WithEnvironment(env environments.Environment) Option {
	return func(o *Options) {
		o.Environment = env
	}
}

// WithAudience selects the token audience, e.g. environments.AudienceGraph.
func WithAudience(audience environments.TokenAudience) Option {
	return func(o *Options) {
		o.Audience = audience
	}
}

// WithResource sets an explicit audience URI, overriding the environment's.
func WithResource(resource string) Option {
	return func(o *Options) {
		o.Resource = resource
	}
}

// WithAccessor provides an external cache persistence accessor.
func WithAccessor(accessor cache.ExportReplace) Option {
	return func(o *Options) {
		o.Accessor = accessor
	}
}

// WithLogger sets the logging configuration for this credential.
func WithLogger(log *logger.Logger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}

// WithHTTPClient allows for a custom HTTP client to be set.
func WithHTTPClient(httpClient comm.HTTPClient) Option {
	return func(o *Options) {
		o.HTTPClient = httpClient
	}
}

// WithPrompt replaces the default user code display. Returning an error
// cancels the flow before any polling starts.
func WithPrompt(prompt func(ctx context.Context, r Result) error) Option {
	return func(o *Options) {
		o.Prompt = prompt
	}
}

// WithOutput redirects the default prompt message.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// WithBrowser opens the verification URL in the system browser once the user
// code has been displayed.
func WithBrowser() Option {
	return func(o *Options) {
		o.OpenBrowser = true
	}
}

type tokener interface {
	DeviceCode(ctx context.Context, cfg adal.OAuthConfig, appID, resource string) (adal.DeviceCodeResult, error)
	WaitForToken(ctx context.Context, cfg adal.OAuthConfig, dcr adal.DeviceCodeResult) (adal.Token, error)
	Refresh(ctx context.Context, cfg adal.OAuthConfig, appID, refreshToken, resource string) (adal.Token, error)
}

// Client is a credential for a user who authenticates on a second device.
// Call Authenticate once to run the interactive flow; GetToken then serves the
// cached token and silently refreshes it when it expires.
type Client struct {
	base base.Client

	token   tokener
	prompt  func(ctx context.Context, r Result) error
	browse  bool
	refresh string
}

// New is the constructor for Client. clientID is the application requesting
// tokens on the user's behalf.
func New(clientID, tenantID string, options ...Option) (*Client, error) {
	if clientID == "" {
		return nil, stderrors.New("clientID can't be empty string")
	}

	opts := Options{
		Environment: environments.PublicCloud,
		Audience:    environments.AudienceResourceManager,
		HTTPClient:  comm.DefaultClient,
		Output:      os.Stderr,
	}
	for _, o := range options {
		o(&opts)
	}
	if opts.Prompt == nil {
		out := opts.Output
		opts.Prompt = func(ctx context.Context, r Result) error {
			_, err := fmt.Fprintln(out, r.Message)
			return err
		}
	}

	cfg, err := adal.NewOAuthConfig(opts.Environment.ActiveDirectoryEndpoint, tenantID)
	if err != nil {
		return nil, err
	}

	res := opts.Resource
	if res == "" {
		res = opts.Environment.Resource(opts.Audience)
	}

	return &Client{
		base:   base.New(clientID, "", res, cfg, opts.Accessor, opts.Logger),
		token:  adal.New(opts.HTTPClient),
		prompt: opts.Prompt,
		browse: opts.OpenBrowser,
	}, nil
}

// UserID returns the identity the credential is bound to, once the user has
// completed the device flow.
func (c *Client) UserID() string {
	return c.base.UserID
}

// Authenticate runs the interactive flow: it requests a user code, displays
// it, and polls until the user completes authentication or ctx is done. On
// success the credential is bound to the authenticated user and the token is
// cached for GetToken.
func (c *Client) Authenticate(ctx context.Context) (Token, error) {
	dcr, err := c.token.DeviceCode(ctx, c.base.Config, c.base.ClientID, c.base.Resource)
	if err != nil {
		return Token{}, err
	}
	if err := c.prompt(ctx, dcr); err != nil {
		return Token{}, err
	}
	if c.browse {
		if err := browser.OpenURL(dcr.VerificationURL); err != nil {
			c.base.Log.Log(logger.Warn, "could not open browser", "url", dcr.VerificationURL, "error", err)
		}
	}

	token, err := c.token.WaitForToken(ctx, c.base.Config, dcr)
	if err != nil {
		return Token{}, err
	}

	c.base.UserID = token.UserID
	c.refresh = token.RefreshToken
	c.base.WriteToCache(ctx, token)
	return token, nil
}

// GetToken returns a token for the configured resource, from the cache when a
// usable entry exists for the authenticated user. On an ordinary miss it
// redeems the refresh token instead of prompting the user again. A critical
// cache error propagates unchanged without a live attempt.
func (c *Client) GetToken(ctx context.Context) (Token, error) {
	token, err := c.base.ReadFromCache(ctx)
	if err == nil {
		return token, nil
	}
	if errors.IsCritical(err) {
		return Token{}, err
	}
	if c.refresh == "" {
		return Token{}, stderrors.New("no token in cache and no refresh token, call Authenticate first")
	}
	c.base.Log.Log(logger.Debug, "token cache miss, redeeming refresh token", "user", c.base.UserID, "resource", c.base.Resource)

	token, err = c.token.Refresh(ctx, c.base.Config, c.base.ClientID, c.refresh, c.base.Resource)
	if err != nil {
		return Token{}, err
	}
	if token.RefreshToken != "" {
		c.refresh = token.RefreshToken
	}
	c.base.WriteToCache(ctx, token)
	return token, nil
}
