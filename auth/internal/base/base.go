// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package base contains a "Base" client used by the external credential
// packages. Base holds the shared attributes of a credential (identity,
// resource, cache handle) and the cache-aware retrieval calls layered on top
// of the wrapped token library.
package base

import (
	"context"
	"fmt"

	"github.com/AzureAD/azure-auth-library-for-go/auth/cache"
	"github.com/AzureAD/azure-auth-library-for-go/auth/errors"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/adal"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/storage"
	"github.com/AzureAD/azure-auth-library-for-go/auth/logger"
)

// Manager provides the internal token cache. It is an interface to allow
// faking the cache in tests. In all production use it is a *storage.Manager.
type Manager interface {
	Read(clientID, userID, resource, authority string) (adal.Token, error)
	Write(entry storage.Entry) error
	Query(clientID, userID string) ([]storage.Entry, error)
	Remove(entries []storage.Entry) error
}

// Client is the shared core of every credential. A credential embeds a Client
// and supplies its own live-acquisition call.
type Client struct {
	// ClientID is the application id tokens are requested for.
	ClientID string
	// UserID scopes cache entries when the flow is on behalf of a user.
	UserID string
	// Resource is the token audience URI.
	Resource string
	// Config holds the endpoints of the authority/tenant pair.
	Config adal.OAuthConfig

	Manager  Manager // *storage.Manager or a fake in tests
	Accessor cache.ExportReplace
	Log      *logger.Logger
}

// New constructs the shared client core. accessor and log may be nil.
func New(clientID, userID, resource string, cfg adal.OAuthConfig, accessor cache.ExportReplace, log *logger.Logger) Client {
	return Client{
		ClientID: clientID,
		UserID:   userID,
		Resource: resource,
		Config:   cfg,
		Manager:  storage.New(),
		Accessor: accessor,
		Log:      log,
	}
}

func (b Client) authority() string {
	return b.Config.AuthorityEndpoint.String()
}

// ReadFromCache attempts a cache lookup scoped to the credential's identity.
// On an ordinary miss it repairs the cache (removing this identity's stale
// entries) and then re-signals the original miss error: repair is a side
// effect, not a recovery. A failure inside repair escalates to the critical
// tier and is returned instead; callers must check errors.IsCritical before
// falling through to live acquisition.
func (b Client) ReadFromCache(ctx context.Context) (adal.Token, error) {
	if b.Accessor != nil {
		if s, ok := b.Manager.(cache.Serializer); ok {
			if err := b.Accessor.Replace(ctx, s); err != nil {
				b.Log.Log(logger.Warn, "could not replace token cache from external storage", "error", err)
			}
		}
	}

	token, err := b.Manager.Read(b.ClientID, b.UserID, b.Resource, b.authority())
	if err == nil {
		b.Log.Log(logger.Debug, "token cache hit", "clientID", b.ClientID, "resource", b.Resource)
		return token, nil
	}

	if rerr := b.repair(); rerr != nil {
		return adal.Token{}, rerr
	}
	return adal.Token{}, err
}

// repair removes the stale cache entries for this credential's identity.
// Nothing matching is a no-op success. A failing query or removal escalates to
// the critical tier so a cache pathology is never mistaken for a normal auth
// failure.
func (b Client) repair() error {
	entries, err := b.Manager.Query(b.ClientID, b.UserID)
	if err != nil {
		return errors.NewCacheError(fmt.Errorf("could not query tokens of client %s for removal: %w", b.ClientID, err))
	}
	if len(entries) == 0 {
		return nil
	}
	if err := b.Manager.Remove(entries); err != nil {
		return errors.NewCacheError(fmt.Errorf("could not remove stale tokens of client %s: %w", b.ClientID, err))
	}
	b.Log.Log(logger.Debug, "removed stale token cache entries", "clientID", b.ClientID, "count", len(entries))
	return nil
}

// WriteToCache stores a freshly acquired token so the next retrieval hits the
// cache. Persistence problems are logged, not returned: the token in hand is
// valid regardless.
func (b Client) WriteToCache(ctx context.Context, token adal.Token) {
	entry := storage.Entry{
		ClientID:  b.ClientID,
		UserID:    b.UserID,
		Resource:  b.Resource,
		Authority: b.authority(),
		Token:     token,
	}
	if err := b.Manager.Write(entry); err != nil {
		b.Log.Log(logger.Warn, "could not write token to cache", "clientID", b.ClientID, "error", err)
		return
	}

	if b.Accessor != nil {
		if s, ok := b.Manager.(cache.Serializer); ok {
			if err := b.Accessor.Export(ctx, s); err != nil {
				b.Log.Log(logger.Warn, "could not export token cache to external storage", "error", err)
			}
		}
	}
}
