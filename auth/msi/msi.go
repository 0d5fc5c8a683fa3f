// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package msi authenticates with the managed identity assigned to the Azure
resource the code runs on. Tokens come from the local identity extension
endpoint, so no secret is ever configured. Every GetToken call goes to the
extension; the extension does its own caching, so this credential does none.
*/
package msi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/AzureAD/azure-auth-library-for-go/auth/environments"
	"github.com/AzureAD/azure-auth-library-for-go/auth/errors"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/adal"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/comm"
	"github.com/AzureAD/azure-auth-library-for-go/auth/logger"
)

// Token is the result of one token acquisition.
type Token = adal.Token

// DefaultPort is the port the managed identity extension listens on.
const DefaultPort = 50342

const apiVersion = "1.0"

// Options configures the Client's behavior.
type Options struct {
	Environment environments.Environment
	Audience    environments.TokenAudience
	Resource    string
	Logger      *logger.Logger
	HTTPClient  comm.HTTPClient

	// Port is the local port of the identity extension. Defaults to DefaultPort.
	Port int
	// Endpoint replaces the whole token endpoint URL, for hosts where the
	// extension is not on localhost. Overrides Port.
	Endpoint string
}

// Option is an optional argument to New().
type Option func(o *Options)

// WithEnvironment sets the cloud environment the resource audience is
// resolved from.
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

// WithPort points the credential at an identity extension listening on a
// non-default local port.
func WithPort(port int) Option {
	return func(o *Options) {
		o.Port = port
	}
}

// WithEndpoint replaces the token endpoint URL entirely.
func WithEndpoint(endpoint string) Option {
	return func(o *Options) {
		o.Endpoint = endpoint
	}
}

// Client is a credential for the managed identity of the hosting resource.
type Client struct {
	resource string
	endpoint string
	client   comm.HTTPClient
	log      *logger.Logger
}

// New is the constructor for Client.
func New(options ...Option) (Client, error) {
	opts := Options{
		Environment: environments.PublicCloud,
		Audience:    environments.AudienceResourceManager,
		HTTPClient:  comm.DefaultClient,
		Port:        DefaultPort,
	}
	for _, o := range options {
		o(&opts)
	}
	if opts.Port <= 0 || opts.Port > 65535 {
		return Client{}, fmt.Errorf("port %d is outside the valid range", opts.Port)
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("http://localhost:%d/oauth2/token", opts.Port)
	}
	if _, err := url.Parse(endpoint); err != nil {
		return Client{}, fmt.Errorf("could not parse endpoint(%s): %w", endpoint, err)
	}

	res := opts.Resource
	if res == "" {
		res = opts.Environment.Resource(opts.Audience)
	}

	return Client{
		resource: res,
		endpoint: endpoint,
		client:   opts.HTTPClient,
		log:      opts.Logger,
	}, nil
}

// GetToken requests a token from the identity extension. The extension's
// response is returned unchanged; there is no retry and no local cache.
func (c Client) GetToken(ctx context.Context) (Token, error) {
	qv := url.Values{
		"resource": []string{c.resource},
	}
	enc := qv.Encode()

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return Token{}, err
	}
	req := &http.Request{
		Method: http.MethodPost,
		URL:    u,
		Header: http.Header{
			"Content-Type":   []string{"application/x-www-form-urlencoded; charset=utf-8"},
			"Content-Length": []string{strconv.Itoa(len(enc))},
			"Metadata":       []string{"true"},
		},
		Body: io.NopCloser(strings.NewReader(enc)),
	}
	req = req.WithContext(ctx)

	c.log.Log(logger.Debug, "requesting managed identity token", "resource", c.resource)
	reply, err := c.client.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("managed identity request error: %w", err)
	}
	defer reply.Body.Close()

	data, err := io.ReadAll(reply.Body)
	if err != nil {
		return Token{}, fmt.Errorf("could not read the body of an HTTP Response: %w", err)
	}
	if reply.StatusCode < 200 || reply.StatusCode > 299 {
		return Token{}, errors.CallErr{
			Req:  req,
			Resp: reply,
			Body: data,
			Err:  fmt.Errorf("http call(%s)(%s) error: reply status code was %d:\n%s", u.String(), req.Method, reply.StatusCode, string(data)),
		}
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return Token{}, fmt.Errorf("json decode error: %w\nraw message was: %s", err, string(data))
	}
	return token, nil
}
