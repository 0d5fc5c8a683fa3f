// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package serviceprincipal provides a credential for applications that
authenticate as themselves with a client secret or a certificate. These run on
servers and are capable of keeping an application secret.

Token retrieval is cache aware: GetToken returns a cached token when one is
usable, repairs the cache when an entry has gone stale, and otherwise delegates
to the client credentials grant.
*/
package serviceprincipal

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	stderrors "errors"
	"fmt"

	"github.com/AzureAD/azure-auth-library-for-go/auth/cache"
	"github.com/AzureAD/azure-auth-library-for-go/auth/environments"
	"github.com/AzureAD/azure-auth-library-for-go/auth/errors"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/adal"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/base"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/comm"
	"github.com/AzureAD/azure-auth-library-for-go/auth/logger"
	"golang.org/x/crypto/pkcs12"
)

// Token is the result of one token acquisition.
type Token = adal.Token

// Credential represents the secret material of a service principal. This can
// be either a secret or cert/key.
type Credential struct {
	secret string

	cert *x509.Certificate
	key  crypto.PrivateKey
}

// NewCredFromSecret creates a Credential from a secret.
func NewCredFromSecret(secret string) (Credential, error) {
	if secret == "" {
		return Credential{}, stderrors.New("secret can't be empty string")
	}
	return Credential{secret: secret}, nil
}

// NewCredFromCert creates a Credential from an x509.Certificate and its
// private key.
func NewCredFromCert(cert *x509.Certificate, key crypto.PrivateKey) Credential {
	return Credential{cert: cert, key: key}
}

// CertFromPEM converts PEM data holding a public certificate and a PKCS8
// encoded private key into the values for NewCredFromCert.
func CertFromPEM(pemData []byte) (*x509.Certificate, crypto.PrivateKey, error) {
	var cert *x509.Certificate
	var priv crypto.PrivateKey
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		switch block.Type {
		case "CERTIFICATE":
			c, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("block labelled 'CERTIFICATE' could not be parsed by x509: %w", err)
			}
			if cert == nil {
				cert = c
			}
		case "PRIVATE KEY":
			if priv != nil {
				return nil, nil, fmt.Errorf("found multiple blocks labelled 'PRIVATE KEY'")
			}
			k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("could not decode private key: %w", err)
			}
			priv = k
		}
		pemData = rest
	}

	if cert == nil {
		return nil, nil, fmt.Errorf("no certificate found")
	}
	if priv == nil {
		return nil, nil, fmt.Errorf("no private key found")
	}
	return cert, priv, nil
}

// CertFromPKCS12 converts a PKCS#12 bundle (.pfx/.p12) into the values for
// NewCredFromCert.
func CertFromPKCS12(pfxData []byte, password string) (*x509.Certificate, crypto.PrivateKey, error) {
	key, cert, err := pkcs12.Decode(pfxData, password)
	if err != nil {
		return nil, nil, fmt.Errorf("could not decode PKCS#12 data: %w", err)
	}
	return cert, key, nil
}

func (c Credential) toADAL() *adal.Credential {
	return &adal.Credential{Secret: c.secret, Cert: c.cert, Key: c.key}
}

// Options are optional settings for New(). These options are set using various
// functions returning Option calls.
type Options struct {
	// Environment selects the cloud's endpoints. The default is the public cloud.
	Environment environments.Environment

	// Audience selects the token audience when Resource is not set explicitly.
	Audience environments.TokenAudience

	// Resource overrides the audience URI entirely.
	Resource string

	// Accessor controls external cache persistence. By default there is none.
	Accessor cache.ExportReplace

	// Logger receives the credential's structured log output. Default is silent.
	Logger *logger.Logger

	// HTTPClient is the transport for all calls. Default is a shared client.
	HTTPClient comm.HTTPClient
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

// WithAccessor provides a cache accessor that will read and write to some
// externally managed cache that may or may not be shared with other processes.
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

// tokener is the live-acquisition surface of the wrapped token library,
// defined so tests can count and fake the calls.
type tokener interface {
	ClientCredentials(ctx context.Context, cfg adal.OAuthConfig, appID string, cred *adal.Credential, resource string) (adal.Token, error)
}

// Client is a credential for a service principal. A new Client should be
// created per application/tenant pair; it is immutable after New.
type Client struct {
	base  base.Client
	cred  *adal.Credential
	token tokener
}

// New is the constructor for Client. clientID is the application id of the
// service principal and tenantID the directory it lives in.
func New(clientID, tenantID string, cred Credential, options ...Option) (Client, error) {
	if clientID == "" {
		return Client{}, stderrors.New("clientID can't be empty string")
	}
	if tenantID == "" {
		return Client{}, stderrors.New("tenantID can't be empty string")
	}
	if cred.secret == "" && (cred.cert == nil || cred.key == nil) {
		return Client{}, stderrors.New("cred holds no secret material")
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
		base:  base.New(clientID, "", res, cfg, opts.Accessor, opts.Logger),
		cred:  cred.toADAL(),
		token: adal.New(opts.HTTPClient),
	}, nil
}

// Resource returns the audience URI the credential requests tokens for.
func (c Client) Resource() string {
	return c.base.Resource
}

// GetToken returns a token for the configured resource. The cache is consulted
// first; an ordinary miss triggers cache repair and then a live client
// credentials call whose result is returned verbatim. A critical cache error
// is propagated unchanged without attempting live acquisition, since the cache
// state is suspect.
func (c Client) GetToken(ctx context.Context) (Token, error) {
	token, err := c.base.ReadFromCache(ctx)
	if err == nil {
		return token, nil
	}
	if errors.IsCritical(err) {
		return Token{}, err
	}
	c.base.Log.Log(logger.Debug, "token cache miss, acquiring from authority", "clientID", c.base.ClientID, "resource", c.base.Resource)

	token, err = c.token.ClientCredentials(ctx, c.base.Config, c.base.ClientID, c.cred, c.base.Resource)
	if err != nil {
		return Token{}, err
	}
	c.base.WriteToCache(ctx, token)
	return token, nil
}
