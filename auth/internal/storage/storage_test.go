// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kylelemons/godebug/pretty"

	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/adal"
)

func testToken(resource string, expires time.Duration) adal.Token {
	return adal.Token{
		AccessToken: "at-" + resource,
		TokenType:   "Bearer",
		Resource:    resource,
		ExpiresOn:   adal.UnixTime{T: time.Now().Add(expires)},
	}
}

func TestReadWrite(t *testing.T) {
	m := New()

	entry := Entry{
		ClientID:  "client",
		Resource:  "https://management.core.windows.net/",
		Authority: "https://login.microsoftonline.com/tenant",
		Token:     testToken("https://management.core.windows.net/", time.Hour),
	}
	if err := m.Write(entry); err != nil {
		t.Fatalf("TestReadWrite: Write(): got err == %v, want err == nil", err)
	}

	got, err := m.Read(entry.ClientID, "", entry.Resource, entry.Authority)
	if err != nil {
		t.Fatalf("TestReadWrite: Read(): got err == %v, want err == nil", err)
	}
	if diff := pretty.Compare(entry.Token, got); diff != "" {
		t.Errorf("TestReadWrite: -want/+got:\n%s", diff)
	}
}

func TestReadMisses(t *testing.T) {
	m := New()

	stale := Entry{
		ClientID:  "client",
		Resource:  "resource",
		Authority: "authority",
		Token:     testToken("resource", -time.Hour),
	}
	if err := m.Write(stale); err != nil {
		t.Fatalf("TestReadMisses: Write(): got err == %v, want err == nil", err)
	}

	tests := []struct {
		desc     string
		clientID string
		resource string
		want     error
	}{
		{desc: "no entry for the identity", clientID: "other", resource: "resource", want: ErrNotFound},
		{desc: "no entry for the resource", clientID: "client", resource: "other", want: ErrNotFound},
		{desc: "entry expired", clientID: "client", resource: "resource", want: ErrExpired},
	}
	for _, test := range tests {
		_, err := m.Read(test.clientID, "", test.resource, "authority")
		if !errors.Is(err, test.want) {
			t.Errorf("TestReadMisses(%s): got err == %v, want err == %v", test.desc, err, test.want)
		}
	}
}

func TestReadExpirySlack(t *testing.T) {
	m := New()

	// expires inside the staleness window, so a read must not return it
	entry := Entry{
		ClientID:  "client",
		Resource:  "resource",
		Authority: "authority",
		Token:     testToken("resource", time.Minute),
	}
	if err := m.Write(entry); err != nil {
		t.Fatalf("TestReadExpirySlack: Write(): got err == %v, want err == nil", err)
	}
	if _, err := m.Read("client", "", "resource", "authority"); !errors.Is(err, ErrExpired) {
		t.Errorf("TestReadExpirySlack: got err == %v, want err == ErrExpired", err)
	}
}

func TestQuery(t *testing.T) {
	m := New()

	entries := []Entry{
		{ClientID: "client", UserID: "user", Resource: "res1", Authority: "authority", Token: testToken("res1", time.Hour)},
		{ClientID: "client", UserID: "user", Resource: "res2", Authority: "authority", Token: testToken("res2", time.Hour)},
		{ClientID: "client", UserID: "other", Resource: "res1", Authority: "authority", Token: testToken("res1", time.Hour)},
		{ClientID: "other", Resource: "res1", Authority: "authority", Token: testToken("res1", time.Hour)},
	}
	for _, e := range entries {
		if err := m.Write(e); err != nil {
			t.Fatalf("TestQuery: Write(): got err == %v, want err == nil", err)
		}
	}

	tests := []struct {
		desc     string
		clientID string
		userID   string
		want     int
	}{
		{desc: "all entries of a client", clientID: "client", want: 3},
		{desc: "narrowed by user", clientID: "client", userID: "user", want: 2},
		{desc: "unknown client", clientID: "missing", want: 0},
	}
	for _, test := range tests {
		got, err := m.Query(test.clientID, test.userID)
		if err != nil {
			t.Fatalf("TestQuery(%s): got err == %v, want err == nil", test.desc, err)
		}
		if len(got) != test.want {
			t.Errorf("TestQuery(%s): got %d entries, want %d", test.desc, len(got), test.want)
		}
	}
}

func TestRemove(t *testing.T) {
	m := New()

	entry := Entry{ClientID: "client", Resource: "resource", Authority: "authority", Token: testToken("resource", time.Hour)}
	if err := m.Write(entry); err != nil {
		t.Fatalf("TestRemove: Write(): got err == %v, want err == nil", err)
	}

	if err := m.Remove([]Entry{entry}); err != nil {
		t.Fatalf("TestRemove: Remove(): got err == %v, want err == nil", err)
	}
	if _, err := m.Read("client", "", "resource", "authority"); !errors.Is(err, ErrNotFound) {
		t.Errorf("TestRemove: Read() after Remove(): got err == %v, want err == ErrNotFound", err)
	}

	err := m.Remove([]Entry{entry})
	if err == nil {
		t.Fatal("TestRemove: Remove() of absent entry: got err == nil, want err != nil")
	}
	if !strings.Contains(err.Error(), "not in cache") {
		t.Errorf("TestRemove: Remove() of absent entry: got %q, want message naming the missing entry", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	m := New()

	entry := Entry{ClientID: "client", UserID: "user", Resource: "resource", Authority: "authority", Token: testToken("resource", time.Hour)}
	if err := m.Write(entry); err != nil {
		t.Fatalf("TestMarshalRoundTrip: Write(): got err == %v, want err == nil", err)
	}

	b, err := m.Marshal()
	if err != nil {
		t.Fatalf("TestMarshalRoundTrip: Marshal(): got err == %v, want err == nil", err)
	}

	restored := New()
	if err := restored.Unmarshal(b); err != nil {
		t.Fatalf("TestMarshalRoundTrip: Unmarshal(): got err == %v, want err == nil", err)
	}
	got, err := restored.Read("client", "user", "resource", "authority")
	if err != nil {
		t.Fatalf("TestMarshalRoundTrip: Read() after Unmarshal(): got err == %v, want err == nil", err)
	}
	if got.AccessToken != entry.Token.AccessToken {
		t.Errorf("TestMarshalRoundTrip: got access token %q, want %q", got.AccessToken, entry.Token.AccessToken)
	}
}

func TestUnmarshalEmpty(t *testing.T) {
	m := New()
	if err := m.Unmarshal([]byte(`{}`)); err != nil {
		t.Fatalf("TestUnmarshalEmpty: got err == %v, want err == nil", err)
	}
	if _, err := m.Read("client", "", "resource", "authority"); !errors.Is(err, ErrNotFound) {
		t.Errorf("TestUnmarshalEmpty: got err == %v, want err == ErrNotFound", err)
	}
}
