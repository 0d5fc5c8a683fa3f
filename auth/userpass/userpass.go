// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package userpass provides a credential that authenticates a user with their
username and password (the resource owner password grant). This flow is NOT
recommended: it only works for work/school accounts without MFA, and it puts
the user's password in the application's hands. Prefer the device code flow.
*/
package userpass

import (
	"context"
	stderrors "errors"

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

// Options configures the Client's behavior.
type Options struct {
	Environment environments.Environment
	Audience    environments.TokenAudience
	Resource    string
	Accessor    cache.ExportReplace
	Logger      *logger.Logger
	HTTPClient  comm.HTTPClient
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

type tokener interface {
	UsernamePassword(ctx context.Context, cfg adal.OAuthConfig, appID, user, pass, resource string) (adal.Token, error)
}

// Client is a credential for a user identified by username and password.
type Client struct {
	base base.Client

	username string
	password string
	token    tokener
}

// New is the constructor for Client. clientID is the application requesting
// tokens on the user's behalf and tenantID the user's directory.
func New(clientID, tenantID, username, password string, options ...Option) (Client, error) {
	if clientID == "" {
		return Client{}, stderrors.New("clientID can't be empty string")
	}
	if username == "" || password == "" {
		return Client{}, stderrors.New("username and password can't be empty strings")
	}

	opts := Options{
		Environment: environments.PublicCloud,
		Audience:    environments.AudienceResourceManager,
		HTTPClient:  comm.DefaultClient,
	}
	for _, o := range options {
		o(&opts)
	}

	cfg, err := adal.NewOAuthConfig(opts.Environment.ActiveDirectoryEndpoint, tenantID)
	if err != nil {
		return Client{}, err
	}

	res := opts.Resource
	if res == "" {
		res = opts.Environment.Resource(opts.Audience)
	}

	return Client{
		base:     base.New(clientID, username, res, cfg, opts.Accessor, opts.Logger),
		username: username,
		password: password,
		token:    adal.New(opts.HTTPClient),
	}, nil
}

// GetToken returns a token for the configured resource, from the cache when a
// usable entry exists for this user, otherwise via the password grant. The
// critical cache tier propagates unchanged without a live attempt.
func (c Client) GetToken(ctx context.Context) (Token, error) {
	token, err := c.base.ReadFromCache(ctx)
	if err == nil {
		return token, nil
	}
	if errors.IsCritical(err) {
		return Token{}, err
	}
	c.base.Log.Log(logger.Debug, "token cache miss, acquiring from authority", "user", c.base.UserID, "resource", c.base.Resource)

	token, err = c.token.UsernamePassword(ctx, c.base.Config, c.base.ClientID, c.username, c.password, c.base.Resource)
	if err != nil {
		return Token{}, err
	}
	c.base.WriteToCache(ctx, token)
	return token, nil
}
