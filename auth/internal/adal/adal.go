// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package adal wraps the REST calls that acquire OAuth tokens from Azure Active
Directory: client credentials (secret or certificate assertion), resource owner
password, refresh token, and the two-step device code flow including its
polling loop. Credential packages delegate live acquisition here and layer
caching on top.
*/
package adal

import (
	"context"
	"crypto"

	/* #nosec */
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/AzureAD/azure-auth-library-for-go/auth/errors"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/comm"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	grantType        = "grant_type"
	deviceCode       = "device_code"
	clientID         = "client_id"
	clientSecret     = "client_secret"
	resource         = "resource"
	username         = "username"
	password         = "password"
	refreshTokenName = "refresh_token"
)

// Grant type values for the token endpoint.
const (
	grantClientCredential = "client_credentials"
	grantPassword         = "password"
	grantDeviceCode       = "device_code"
	grantRefreshToken     = "refresh_token"
	grantClientAssertion  = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
)

// Server error codes the device code poll reacts to.
const (
	errAuthorizationPending = "authorization_pending"
	errSlowDown             = "slow_down"
)

// OAuthConfig holds the endpoints used to authenticate against one tenant of
// an authority.
type OAuthConfig struct {
	AuthorityEndpoint  url.URL
	TokenEndpoint      url.URL
	DeviceCodeEndpoint url.URL
}

// NewOAuthConfig derives the token and device code endpoints from an Active
// Directory endpoint and a tenant. An empty tenant means the "common" tenant.
func NewOAuthConfig(activeDirectoryEndpoint, tenant string) (OAuthConfig, error) {
	if activeDirectoryEndpoint == "" {
		return OAuthConfig{}, stderrors.New("activeDirectoryEndpoint cannot be empty")
	}
	if tenant == "" {
		tenant = "common"
	}
	base, err := url.Parse(activeDirectoryEndpoint)
	if err != nil {
		return OAuthConfig{}, fmt.Errorf("active directory endpoint(%s) does not parse as a URL: %w", activeDirectoryEndpoint, err)
	}
	authority, err := base.Parse(tenant + "/")
	if err != nil {
		return OAuthConfig{}, err
	}
	tokenEndpoint, err := authority.Parse("oauth2/token")
	if err != nil {
		return OAuthConfig{}, err
	}
	deviceCodeEndpoint, err := authority.Parse("oauth2/devicecode")
	if err != nil {
		return OAuthConfig{}, err
	}
	return OAuthConfig{
		AuthorityEndpoint:  *authority,
		TokenEndpoint:      *tokenEndpoint,
		DeviceCodeEndpoint: *deviceCodeEndpoint,
	}, nil
}

// Credential is the secret material of a service principal: either a shared
// secret or a certificate and private key used to sign JWT assertions.
type Credential struct {
	// Secret contains the credential secret if we are doing auth by secret.
	Secret string

	// Cert is the public x509 certificate if we are doing auth by assertion.
	Cert *x509.Certificate
	// Key is the private key for signing if we are doing auth by assertion.
	Key crypto.PrivateKey

	// mu protects the cached assertion below.
	mu        sync.Mutex
	assertion string
	expires   time.Time
}

// JWT gets the signed jwt assertion when the credential is certificate based.
func (c *Credential) JWT(tokenEndpoint, appID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expires.After(time.Now()) && c.assertion != "" {
		return c.assertion, nil
	}
	expires := time.Now().Add(5 * time.Minute)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"aud": tokenEndpoint,
		"exp": strconv.FormatInt(expires.Unix(), 10),
		"iss": appID,
		"jti": uuid.New().String(),
		"nbf": strconv.FormatInt(time.Now().Unix(), 10),
		"sub": appID,
	})
	token.Header = map[string]interface{}{
		"alg": "RS256",
		"typ": "JWT",
		"x5t": base64.StdEncoding.EncodeToString(thumbprint(c.Cert)),
	}

	var err error
	c.assertion, err = token.SignedString(c.Key)
	if err != nil {
		return "", fmt.Errorf("unable to sign a JWT token using private key: %w", err)
	}
	c.expires = expires
	return c.assertion, nil
}

// thumbprint runs the asn1.Der bytes through sha1 for use in the x5t parameter of JWT.
// https://tools.ietf.org/html/rfc7517#section-4.8
func thumbprint(cert *x509.Certificate) []byte {
	/* #nosec */
	a := sha1.Sum(cert.Raw)
	return a[:]
}

type urlFormCaller interface {
	URLFormCall(ctx context.Context, endpoint string, qv url.Values, resp interface{}) error
}

// Client represents the REST calls to get tokens from the authority.
type Client struct {
	// Comm provides the HTTP transport client.
	Comm urlFormCaller
}

// New creates a Client over the given HTTP client.
func New(httpClient comm.HTTPClient) *Client {
	return &Client{Comm: comm.New(httpClient)}
}

// TokenError is an OAuth protocol error the token endpoint returned alongside
// a non-2xx status code.
type TokenError struct {
	// Code is the OAuth error code, e.g. "invalid_client" or "authorization_pending".
	Code string
	// Description is the server's human readable elaboration.
	Description string

	err error
}

func (e *TokenError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *TokenError) Unwrap() error {
	return e.err
}

// asTokenError converts a transport failure into a *TokenError when the
// response body carried an OAuth error payload. Other errors pass unchanged.
func asTokenError(err error) error {
	var callErr errors.CallErr
	if !stderrors.As(err, &callErr) || len(callErr.Body) == 0 {
		return err
	}
	base := OAuthResponseBase{}
	if jerr := json.Unmarshal(callErr.Body, &base); jerr != nil || base.Error == "" {
		return err
	}
	return &TokenError{Code: base.Error, Description: base.ErrorDescription, err: err}
}

// ClientCredentials uses a service principal's secret material to get a token
// for resource.
func (c *Client) ClientCredentials(ctx context.Context, cfg OAuthConfig, appID string, cred *Credential, res string) (Token, error) {
	qv := url.Values{}
	qv.Set(grantType, grantClientCredential)
	qv.Set(clientID, appID)
	qv.Set(resource, res)
	if cred.Secret != "" {
		qv.Set(clientSecret, cred.Secret)
	} else {
		assertion, err := cred.JWT(cfg.TokenEndpoint.String(), appID)
		if err != nil {
			return Token{}, err
		}
		qv.Set("client_assertion_type", grantClientAssertion)
		qv.Set("client_assertion", assertion)
	}
	return c.doToken(ctx, cfg, qv)
}

// UsernamePassword uses the resource owner password grant to get a token for
// resource on behalf of a user.
func (c *Client) UsernamePassword(ctx context.Context, cfg OAuthConfig, appID, user, pass, res string) (Token, error) {
	qv := url.Values{}
	qv.Set(grantType, grantPassword)
	qv.Set(clientID, appID)
	qv.Set(username, user)
	qv.Set(password, pass)
	qv.Set(resource, res)
	return c.doToken(ctx, cfg, qv)
}

// Refresh exchanges a refresh token for a new access token for resource.
func (c *Client) Refresh(ctx context.Context, cfg OAuthConfig, appID, refreshToken, res string) (Token, error) {
	qv := url.Values{}
	qv.Set(grantType, grantRefreshToken)
	qv.Set(clientID, appID)
	qv.Set(refreshTokenName, refreshToken)
	qv.Set(resource, res)
	return c.doToken(ctx, cfg, qv)
}

// DeviceCode requests a user code from the device code endpoint. The result
// must be shown to the user, then redeemed with WaitForToken.
func (c *Client) DeviceCode(ctx context.Context, cfg OAuthConfig, appID, res string) (DeviceCodeResult, error) {
	qv := url.Values{}
	qv.Set(clientID, appID)
	qv.Set(resource, res)

	resp := deviceCodeResponse{}
	if err := c.Comm.URLFormCall(ctx, cfg.DeviceCodeEndpoint.String(), qv, &resp); err != nil {
		return DeviceCodeResult{}, asTokenError(err)
	}
	if resp.Error != "" {
		return DeviceCodeResult{}, fmt.Errorf("%s: %s", resp.Error, resp.ErrorDescription)
	}
	return resp.toResult(appID, res), nil
}

// intervalAddition is added to the polling interval when the server reports a
// slow down error.
const intervalAddition = 5

// WaitForToken polls the token endpoint until the user completes the device
// flow out of band, the code expires, or ctx is done. Backoff follows the
// server's interval and slow_down hints; all other failures surface unchanged.
func (c *Client) WaitForToken(ctx context.Context, cfg OAuthConfig, dcr DeviceCodeResult) (Token, error) {
	qv := url.Values{}
	qv.Set(grantType, grantDeviceCode)
	qv.Set(deviceCode, dcr.DeviceCode)
	qv.Set(clientID, dcr.ClientID)
	qv.Set(resource, dcr.Resource)

	interval := dcr.Interval
	if interval <= 0 {
		interval = intervalAddition
	}

	for time.Now().UTC().Before(dcr.ExpiresOn) {
		token, err := c.doToken(ctx, cfg, qv)
		if err == nil {
			return token, nil
		}

		var terr *TokenError
		switch {
		case stderrors.As(err, &terr) && terr.Code == errAuthorizationPending:
			// keep polling
		case stderrors.As(err, &terr) && terr.Code == errSlowDown:
			interval += intervalAddition
		default:
			return Token{}, err
		}

		select {
		case <-ctx.Done():
			return Token{}, ctx.Err()
		case <-time.After(time.Duration(interval) * time.Second):
		}
	}
	return Token{}, stderrors.New("device code expired before the user authenticated")
}

func (c *Client) doToken(ctx context.Context, cfg OAuthConfig, qv url.Values) (Token, error) {
	payload := tokenResponsePayload{}
	if err := c.Comm.URLFormCall(ctx, cfg.TokenEndpoint.String(), qv, &payload); err != nil {
		return Token{}, asTokenError(err)
	}
	return newToken(payload)
}
