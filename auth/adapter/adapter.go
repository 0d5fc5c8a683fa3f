// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package adapter exposes this library's credentials as
// azcore.TokenCredential values so they plug into the Azure SDK's
// resource-management clients.
package adapter

import (
	"context"
	"errors"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/adal"
)

// TokenProvider is the acquisition surface every credential in this library
// implements.
type TokenProvider interface {
	GetToken(ctx context.Context) (adal.Token, error)
}

// Credential adapts a TokenProvider to azcore.TokenCredential. The provider
// is already bound to a resource, so the scopes in the SDK's token request are
// checked against it rather than used for acquisition.
type Credential struct {
	provider TokenProvider
	resource string
}

// New wraps provider for use with Azure SDK clients. resource is the audience
// the provider was configured with; leave it empty to skip scope checking.
func New(provider TokenProvider, resource string) (Credential, error) {
	if provider == nil {
		return Credential{}, errors.New("provider can't be nil")
	}
	return Credential{provider: provider, resource: resource}, nil
}

// GetToken implements azcore.TokenCredential.
func (c Credential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	if c.resource != "" {
		for _, scope := range opts.Scopes {
			if !matches(c.resource, scope) {
				return azcore.AccessToken{}, errors.New("credential is bound to resource " + c.resource + ", can't satisfy scope " + scope)
			}
		}
	}

	token, err := c.provider.GetToken(ctx)
	if err != nil {
		return azcore.AccessToken{}, err
	}
	return azcore.AccessToken{
		Token:     token.AccessToken,
		ExpiresOn: token.ExpiresOn.T,
	}, nil
}

// matches reports whether an SDK scope belongs to the bound resource. Scopes
// are the resource URI plus a suffix like "/.default".
func matches(resource, scope string) bool {
	r := strings.TrimSuffix(strings.ToLower(resource), "/")
	s := strings.ToLower(scope)
	return s == r || strings.HasPrefix(s, r+"/")
}
