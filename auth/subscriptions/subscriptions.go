// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package subscriptions enumerates the tenants and subscriptions a credential
// can see, the usual first step after authenticating: discover what the
// principal is allowed to manage.
package subscriptions

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
)

// Subscription describes one subscription visible to the credential.
type Subscription struct {
	ID          string
	DisplayName string
	TenantID    string
	State       string
}

// Tenant describes one directory the credential can authenticate against.
type Tenant struct {
	ID string
}

// Options configures the Client's behavior.
type Options struct {
	// ClientOptions is passed through to the ARM clients, e.g. to target a
	// sovereign cloud.
	ClientOptions *arm.ClientOptions
}

// Option is an optional argument to New().
type Option func(o *Options)

// WithClientOptions passes ARM client options through to the SDK clients.
func WithClientOptions(opts *arm.ClientOptions) Option {
	return func(o *Options) {
		o.ClientOptions = opts
	}
}

// Client lists tenants and subscriptions using Azure Resource Manager.
type Client struct {
	subs    *armsubscriptions.Client
	tenants *armsubscriptions.TenantsClient
}

// New is the constructor for Client. cred is typically an adapter.Credential
// wrapping one of this library's credentials.
func New(cred azcore.TokenCredential, options ...Option) (*Client, error) {
	opts := Options{}
	for _, o := range options {
		o(&opts)
	}

	factory, err := armsubscriptions.NewClientFactory(cred, opts.ClientOptions)
	if err != nil {
		return nil, fmt.Errorf("could not create subscriptions client: %w", err)
	}
	return &Client{
		subs:    factory.NewClient(),
		tenants: factory.NewTenantsClient(),
	}, nil
}

// List returns every subscription the credential can see.
func (c *Client) List(ctx context.Context) ([]Subscription, error) {
	var out []Subscription
	pager := c.subs.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not list subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			s := Subscription{
				ID:          deref(sub.SubscriptionID),
				DisplayName: deref(sub.DisplayName),
				TenantID:    deref(sub.TenantID),
			}
			if sub.State != nil {
				s.State = string(*sub.State)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// Find returns the subscription with the given display name.
func (c *Client) Find(ctx context.Context, displayName string) (Subscription, error) {
	subs, err := c.List(ctx)
	if err != nil {
		return Subscription{}, err
	}
	for _, s := range subs {
		if strings.EqualFold(s.DisplayName, displayName) {
			return s, nil
		}
	}
	return Subscription{}, fmt.Errorf("subscription with name %q not found", displayName)
}

// ListTenants returns every tenant the credential can authenticate against.
func (c *Client) ListTenants(ctx context.Context) ([]Tenant, error) {
	var out []Tenant
	pager := c.tenants.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not list tenants: %w", err)
		}
		for _, t := range page.Value {
			out = append(out, Tenant{ID: deref(t.TenantID)})
		}
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
