// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package adal

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

func TestUnixTimeUnmarshal(t *testing.T) {
	tests := []struct {
		desc string
		json string
		err  bool
		want int64
	}{
		{desc: "number", json: `1735689600`, want: 1735689600},
		{desc: "quoted string", json: `"1735689600"`, want: 1735689600},
		{desc: "empty string is a zero time", json: `""`},
		{desc: "null is a zero time", json: `null`},
		{desc: "garbage", json: `"soon"`, err: true},
	}
	for _, test := range tests {
		var u UnixTime
		err := json.Unmarshal([]byte(test.json), &u)
		switch {
		case err == nil && test.err:
			t.Errorf("TestUnixTimeUnmarshal(%s): got err == nil, want err != nil", test.desc)
			continue
		case err != nil && !test.err:
			t.Errorf("TestUnixTimeUnmarshal(%s): got err == %v, want err == nil", test.desc, err)
			continue
		case err != nil:
			continue
		}
		if test.want == 0 {
			if !u.T.IsZero() {
				t.Errorf("TestUnixTimeUnmarshal(%s): got %v, want the zero time", test.desc, u.T)
			}
			continue
		}
		if u.T.Unix() != test.want {
			t.Errorf("TestUnixTimeUnmarshal(%s): got %d, want %d", test.desc, u.T.Unix(), test.want)
		}
	}
}

func TestUnixTimeMarshal(t *testing.T) {
	b, err := json.Marshal(UnixTime{T: time.Unix(1735689600, 0)})
	if err != nil {
		t.Fatalf("TestUnixTimeMarshal: got err == %v, want err == nil", err)
	}
	if string(b) != "1735689600" {
		t.Errorf("TestUnixTimeMarshal: got %s, want 1735689600", b)
	}

	b, err = json.Marshal(UnixTime{})
	if err != nil {
		t.Fatalf("TestUnixTimeMarshal: zero value: got err == %v, want err == nil", err)
	}
	if string(b) != `""` {
		t.Errorf("TestUnixTimeMarshal: zero value: got %s, want \"\"", b)
	}
}

func TestTokenExpired(t *testing.T) {
	tests := []struct {
		desc    string
		expires time.Duration
		want    bool
	}{
		{desc: "well in the future", expires: time.Hour, want: false},
		{desc: "inside the staleness window", expires: time.Minute, want: true},
		{desc: "in the past", expires: -time.Hour, want: true},
	}
	for _, test := range tests {
		tok := Token{ExpiresOn: UnixTime{T: time.Now().Add(test.expires)}}
		if got := tok.Expired(); got != test.want {
			t.Errorf("TestTokenExpired(%s): got %v, want %v", test.desc, got, test.want)
		}
	}
}

// idToken builds an unsigned JWT carrying the given claims object.
func idToken(t *testing.T, claims interface{}) string {
	t.Helper()
	b, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("could not marshal claims: %v", err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(b) + "."
}

func TestNewToken(t *testing.T) {
	now := time.Now()
	tests := []struct {
		desc    string
		payload tokenResponsePayload
		err     bool
		check   func(t *testing.T, tok Token)
	}{
		{
			desc: "protocol error in the payload",
			payload: tokenResponsePayload{
				OAuthResponseBase: OAuthResponseBase{Error: "interaction_required", ErrorDescription: "MFA"},
			},
			err: true,
		},
		{
			desc:    "missing access token",
			payload: tokenResponsePayload{TokenType: "Bearer"},
			err:     true,
		},
		{
			desc: "expires_on honored",
			payload: tokenResponsePayload{
				AccessToken: "at",
				ExpiresOn:   UnixTime{T: now.Add(time.Hour)},
			},
			check: func(t *testing.T, tok Token) {
				if !tok.ExpiresOn.T.Equal(now.Add(time.Hour)) {
					t.Errorf("got expiry %v, want %v", tok.ExpiresOn.T, now.Add(time.Hour))
				}
			},
		},
		{
			desc: "expires_in fallback when expires_on is absent",
			payload: tokenResponsePayload{
				AccessToken: "at",
				ExpiresIn:   durationSeconds{D: time.Hour},
			},
			check: func(t *testing.T, tok Token) {
				if tok.WillExpireIn(50 * time.Minute) {
					t.Errorf("got expiry %v, want roughly an hour out", tok.ExpiresOn.T)
				}
			},
		},
	}
	for _, test := range tests {
		tok, err := newToken(test.payload)
		switch {
		case err == nil && test.err:
			t.Errorf("TestNewToken(%s): got err == nil, want err != nil", test.desc)
			continue
		case err != nil && !test.err:
			t.Errorf("TestNewToken(%s): got err == %v, want err == nil", test.desc, err)
			continue
		case err != nil:
			continue
		}
		test.check(t, tok)
	}
}

func TestNewTokenUserID(t *testing.T) {
	payload := tokenResponsePayload{
		AccessToken: "at",
		ExpiresOn:   UnixTime{T: time.Now().Add(time.Hour)},
		IDToken: idToken(t, map[string]string{
			"upn":                "user@contoso.com",
			"preferred_username": "other@contoso.com",
			"oid":                "object-id",
		}),
	}
	tok, err := newToken(payload)
	if err != nil {
		t.Fatalf("TestNewTokenUserID: got err == %v, want err == nil", err)
	}
	if tok.UserID != "user@contoso.com" {
		t.Errorf("TestNewTokenUserID: got user %q, want the upn claim", tok.UserID)
	}
}

func TestUserInfoID(t *testing.T) {
	tests := []struct {
		desc string
		info UserInfo
		want string
	}{
		{desc: "upn wins", info: UserInfo{UPN: "upn", PreferredUsername: "pref", Email: "mail", Oid: "oid", Subject: "sub"}, want: "upn"},
		{desc: "then preferred_username", info: UserInfo{PreferredUsername: "pref", Email: "mail", Oid: "oid", Subject: "sub"}, want: "pref"},
		{desc: "then email", info: UserInfo{Email: "mail", Oid: "oid", Subject: "sub"}, want: "mail"},
		{desc: "then oid", info: UserInfo{Oid: "oid", Subject: "sub"}, want: "oid"},
		{desc: "subject is the last resort", info: UserInfo{Subject: "sub"}, want: "sub"},
	}
	for _, test := range tests {
		if got := test.info.ID(); got != test.want {
			t.Errorf("TestUserInfoID(%s): got %q, want %q", test.desc, got, test.want)
		}
	}
}

func TestNewUserInfoRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "no-dots", "a.!!!.c"} {
		if _, err := newUserInfo(bad); err == nil {
			t.Errorf("TestNewUserInfoRejectsGarbage(%q): got err == nil, want err != nil", bad)
		}
	}
}
