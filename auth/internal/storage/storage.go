// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package storage holds cached tokens keyed by client identity, user and
// resource. It can be augmented with third-party persistence via the exported
// cache interfaces: upper packages call Marshal() to take the entire in-memory
// representation and write it out, and Unmarshal() to replace the in-memory
// state with what was persisted.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/adal"
)

// keySeparator is used in creating the keys of the cache.
const keySeparator = "-"

// Ordinary cache miss errors. Both mean the caller should repair the cache and
// fall through to live acquisition; neither is the critical tier.
var (
	ErrNotFound = errors.New("access token not found")
	ErrExpired  = errors.New("access token expired")
)

// Entry is a single cached token record.
type Entry struct {
	ClientID  string     `json:"client_id"`
	UserID    string     `json:"user_id,omitempty"`
	Resource  string     `json:"resource"`
	Authority string     `json:"authority"`
	Token     adal.Token `json:"token"`
}

// Key uniquely identifies the entry within the cache.
func (e Entry) Key() string {
	return strings.Join([]string{e.ClientID, e.UserID, e.Resource, e.Authority}, keySeparator)
}

// contract is the serialized form of the cache shared with persistence layers.
type contract struct {
	Entries map[string]Entry `json:"entries"`
}

func newContract() *contract {
	return &contract{Entries: map[string]Entry{}}
}

// Manager is an in-memory token cache. Entries are written on successful live
// acquisitions and removed by the repair path once they go stale.
type Manager struct {
	mu       sync.RWMutex
	contract *contract
}

// New is the constructor for Manager.
func New() *Manager {
	return &Manager{contract: newContract()}
}

// Read returns the cached token for the given identity and resource.
// It fails with ErrNotFound when no entry exists and ErrExpired when the entry
// exists but its token is no longer usable.
func (m *Manager) Read(clientID, userID, resource, authority string) (adal.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.contract.Entries[Entry{ClientID: clientID, UserID: userID, Resource: resource, Authority: authority}.Key()]
	if !ok {
		return adal.Token{}, ErrNotFound
	}
	if entry.Token.Expired() {
		return adal.Token{}, ErrExpired
	}
	return entry.Token, nil
}

// Write stores entry, replacing any previous entry with the same key.
func (m *Manager) Write(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contract.Entries[entry.Key()] = entry
	return nil
}

// Query returns all entries for the client identity. userID narrows the match
// when non-empty. A nil slice with a nil error means nothing matched.
func (m *Manager) Query(clientID, userID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Entry
	for _, entry := range m.contract.Entries {
		if entry.ClientID != clientID {
			continue
		}
		if userID != "" && entry.UserID != userID {
			continue
		}
		matches = append(matches, entry)
	}
	return matches, nil
}

// Remove deletes the given entries. Removing an entry that is not in the cache
// is a failure: it means the cache changed underneath the caller, which the
// repair path must surface rather than paper over.
func (m *Manager) Remove(entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range entries {
		key := entry.Key()
		if _, ok := m.contract.Entries[key]; !ok {
			return fmt.Errorf("entry for client %s not in cache", entry.ClientID)
		}
		delete(m.contract.Entries, key)
	}
	return nil
}

// Marshal implements cache.Marshaler.
func (m *Manager) Marshal() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(m.contract)
}

// Unmarshal implements cache.Unmarshaler.
func (m *Manager) Unmarshal(b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := newContract()
	if err := json.Unmarshal(b, c); err != nil {
		return err
	}
	if c.Entries == nil {
		c.Entries = map[string]Entry{}
	}
	m.contract = c
	return nil
}
