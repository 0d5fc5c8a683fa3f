// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package adal

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OAuthResponseBase is embedded in all response types to catch protocol errors
// the server reports in an otherwise well-formed reply.
type OAuthResponseBase struct {
	Error            string `json:"error"`
	SubError         string `json:"suberror"`
	ErrorDescription string `json:"error_description"`
	CorrelationID    string `json:"correlation_id"`
}

// UnixTime unmarshals a unix timestamp the token endpoint sends as either a
// JSON number or a quoted string.
type UnixTime struct {
	T time.Time
}

func (u *UnixTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("unix timestamp(%s) did not parse as an integer: %w", s, err)
	}
	u.T = time.Unix(i, 0).UTC()
	return nil
}

func (u UnixTime) MarshalJSON() ([]byte, error) {
	if u.T.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(strconv.FormatInt(u.T.Unix(), 10)), nil
}

// durationSeconds unmarshals a duration the token endpoint sends in seconds,
// as either a JSON number or a quoted string.
type durationSeconds struct {
	D time.Duration
}

func (d *durationSeconds) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration(%s) did not parse as an integer: %w", s, err)
	}
	d.D = time.Duration(i) * time.Second
	return nil
}

// tokenResponsePayload is the wire form of a token endpoint reply.
type tokenResponsePayload struct {
	OAuthResponseBase

	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	Resource     string          `json:"resource"`
	ExpiresIn    durationSeconds `json:"expires_in"`
	ExpiresOn    UnixTime        `json:"expires_on"`
	NotBefore    UnixTime        `json:"not_before"`
	IDToken      string          `json:"id_token"`
}

// UserInfo holds the user fields decoded from an id_token. ID tokens aren't
// returned for app-only flows, in which case UserInfo is the zero value.
type UserInfo struct {
	PreferredUsername string `json:"preferred_username,omitempty"`
	UPN               string `json:"upn,omitempty"`
	Email             string `json:"email,omitempty"`
	Oid               string `json:"oid,omitempty"`
	Subject           string `json:"sub,omitempty"`
	TenantID          string `json:"tid,omitempty"`
}

// ID returns the best available unique identifier for the user.
func (u UserInfo) ID() string {
	switch {
	case u.UPN != "":
		return u.UPN
	case u.PreferredUsername != "":
		return u.PreferredUsername
	case u.Email != "":
		return u.Email
	case u.Oid != "":
		return u.Oid
	}
	return u.Subject
}

// newUserInfo decodes the claims segment of an id_token JWT. The token's
// signature is not validated; it was received over TLS from the authority.
func newUserInfo(idToken string) (UserInfo, error) {
	parts := strings.Split(idToken, ".")
	if len(parts) < 2 {
		return UserInfo{}, errors.New("id token returned from server is invalid")
	}
	decoded, err := decodeJWTSegment(parts[1])
	if err != nil {
		return UserInfo{}, err
	}
	info := UserInfo{}
	if err := json.Unmarshal(decoded, &info); err != nil {
		return UserInfo{}, err
	}
	return info, nil
}

// decodeJWTSegment decodes a JWT segment into bytes representing a JSON object.
func decodeJWTSegment(data string) ([]byte, error) {
	if i := len(data) % 4; i != 0 {
		data += strings.Repeat("=", 4-i)
	}
	return base64.URLEncoding.DecodeString(data)
}

// Token is the artifact returned to callers by every acquisition flow. It is
// short lived and not persisted by this layer beyond the token cache.
type Token struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	TokenType    string   `json:"token_type"`
	Resource     string   `json:"resource"`
	UserID       string   `json:"user_id,omitempty"`
	ExpiresOn    UnixTime `json:"expires_on"`
}

// IsZero indicates if the Token is the zero value.
func (t Token) IsZero() bool {
	return t == Token{}
}

// Expired reports whether the token's expiry has passed, with a small window
// of slack so a token about to expire is treated as stale.
func (t Token) Expired() bool {
	return t.WillExpireIn(2 * time.Minute)
}

// WillExpireIn reports whether the token expires within duration d.
func (t Token) WillExpireIn(d time.Duration) bool {
	return !t.ExpiresOn.T.After(time.Now().Add(d))
}

// newToken converts a token endpoint payload to a Token, surfacing protocol
// errors the server embedded in the payload.
func newToken(payload tokenResponsePayload) (Token, error) {
	if payload.Error != "" {
		return Token{}, fmt.Errorf("%s: %s", payload.Error, payload.ErrorDescription)
	}
	if payload.AccessToken == "" {
		// Access token is required in a token response.
		return Token{}, errors.New("response is missing access_token")
	}

	expiresOn := payload.ExpiresOn
	if expiresOn.T.IsZero() && payload.ExpiresIn.D > 0 {
		expiresOn.T = time.Now().Add(payload.ExpiresIn.D).UTC()
	}

	// ID tokens aren't always returned, which is not a reportable error
	// condition, so the decode error is ignored.
	user, _ := newUserInfo(payload.IDToken)

	return Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    payload.TokenType,
		Resource:     payload.Resource,
		UserID:       user.ID(),
		ExpiresOn:    expiresOn,
	}, nil
}

// DeviceCodeResult stores the response from the device code endpoint.
type DeviceCodeResult struct {
	// UserCode is the code the user needs to provide at the verification URL.
	UserCode string
	// DeviceCode is the code used in the access token request.
	DeviceCode string
	// VerificationURL is the URL where the user can authenticate.
	VerificationURL string
	// ExpiresOn is when the device code stops being redeemable.
	ExpiresOn time.Time
	// Interval is the interval at which the token endpoint should be polled.
	Interval int
	// Message is the full text which should be displayed to the user.
	Message string
	// ClientID is the id of the application requesting the token.
	ClientID string
	// Resource is the audience the eventual token is requested for.
	Resource string
}

// deviceCodeResponse is the wire form of a device code endpoint reply.
type deviceCodeResponse struct {
	OAuthResponseBase

	UserCode        string          `json:"user_code"`
	DeviceCode      string          `json:"device_code"`
	VerificationURL string          `json:"verification_url"`
	ExpiresIn       durationSeconds `json:"expires_in"`
	Interval        int             `json:"interval"`
	Message         string          `json:"message"`
}

func (d deviceCodeResponse) toResult(clientID, resource string) DeviceCodeResult {
	return DeviceCodeResult{
		UserCode:        d.UserCode,
		DeviceCode:      d.DeviceCode,
		VerificationURL: d.VerificationURL,
		ExpiresOn:       time.Now().UTC().Add(d.ExpiresIn.D),
		Interval:        d.Interval,
		Message:         d.Message,
		ClientID:        clientID,
		Resource:        resource,
	}
}
