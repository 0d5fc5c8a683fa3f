// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package file builds a service principal credential from an SDK auth file, the
JSON descriptor written by "az ad sp create-for-rbac --sdk-auth". The file
names the principal, its secret and the cloud endpoints; the package resolves
those endpoints to a known environment when possible and delegates token
acquisition to the serviceprincipal package.
*/
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/AzureAD/azure-auth-library-for-go/auth/cache"
	"github.com/AzureAD/azure-auth-library-for-go/auth/environments"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/adal"
	"github.com/AzureAD/azure-auth-library-for-go/auth/internal/comm"
	"github.com/AzureAD/azure-auth-library-for-go/auth/logger"
	"github.com/AzureAD/azure-auth-library-for-go/auth/serviceprincipal"
)

// Token is the result of one token acquisition.
type Token = adal.Token

// LocationEnvVar names the environment variable holding the default auth file
// path.
const LocationEnvVar = "AZURE_AUTH_LOCATION"

// SubscriptionEnvVar is the environment variable the loaded subscription ID is
// exported to by default.
const SubscriptionEnvVar = "AZURE_SUBSCRIPTION_ID"

// Settings is the parsed content of an SDK auth file.
type Settings struct {
	ClientID                       string `json:"clientId"`
	ClientSecret                   string `json:"clientSecret"`
	SubscriptionID                 string `json:"subscriptionId"`
	TenantID                       string `json:"tenantId"`
	ActiveDirectoryEndpoint        string `json:"activeDirectoryEndpointUrl"`
	ResourceManagerEndpoint        string `json:"resourceManagerEndpointUrl"`
	ActiveDirectoryGraphResourceID string `json:"activeDirectoryGraphResourceId"`
	SQLManagementEndpoint          string `json:"sqlManagementEndpointUrl"`
	GalleryEndpoint                string `json:"galleryEndpointUrl"`
	ManagementEndpoint             string `json:"managementEndpointUrl"`
}

// validate checks the seven fields a usable auth file must carry, reporting
// the first one missing by its JSON name.
func (s Settings) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"clientId", s.ClientID},
		{"clientSecret", s.ClientSecret},
		{"subscriptionId", s.SubscriptionID},
		{"tenantId", s.TenantID},
		{"activeDirectoryEndpointUrl", s.ActiveDirectoryEndpoint},
		{"resourceManagerEndpointUrl", s.ResourceManagerEndpoint},
		{"activeDirectoryGraphResourceId", s.ActiveDirectoryGraphResourceID},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("auth file is missing required field %q", f.name)
		}
	}
	return nil
}

// Environment resolves the cloud the file's endpoints belong to. When the
// resource manager endpoint matches a known environment that environment is
// returned; otherwise one is synthesized from the file's own endpoint fields.
func (s Settings) Environment() environments.Environment {
	if env, ok := environments.MatchManagementEndpoint(s.ResourceManagerEndpoint); ok {
		return env
	}
	management := s.ManagementEndpoint
	if management == "" {
		management = s.ResourceManagerEndpoint
	}
	return environments.Environment{
		Name:                           "AzureFromAuthFile",
		ActiveDirectoryEndpoint:        s.ActiveDirectoryEndpoint,
		ResourceManagerEndpoint:        s.ResourceManagerEndpoint,
		ActiveDirectoryGraphResourceID: s.ActiveDirectoryGraphResourceID,
		ManagementEndpoint:             management,
		SQLManagementEndpoint:          s.SQLManagementEndpoint,
	}
}

// Load reads and validates the auth file at path. An empty path falls back to
// $AZURE_AUTH_LOCATION.
func Load(path string) (Settings, error) {
	if path == "" {
		path = os.Getenv(LocationEnvVar)
	}
	if path == "" {
		return Settings{}, fmt.Errorf("no auth file path given and %s is not set", LocationEnvVar)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("could not read auth file %s: %w", path, err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("auth file %s is not valid JSON: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Options configures NewClient's behavior.
type Options struct {
	Audience   environments.TokenAudience
	Resource   string
	Accessor   cache.ExportReplace
	Logger     *logger.Logger
	HTTPClient comm.HTTPClient

	// SubscriptionVar names the environment variable the file's subscription
	// ID is exported to. Defaults to SubscriptionEnvVar.
	SubscriptionVar string
}

// Option is an optional argument to NewClient().
type Option func(o *Options)

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

// WithAccessor provides an external cache persistence accessor.
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

// WithSubscriptionVar changes the environment variable the subscription ID is
// exported to. An empty name disables the export.
func WithSubscriptionVar(name string) Option {
	return func(o *Options) {
		o.SubscriptionVar = name
	}
}

// Client is a service principal credential configured from an auth file.
type Client struct {
	serviceprincipal.Client

	// Settings is the file content the credential was built from.
	Settings Settings
}

// NewClient builds a serviceprincipal.Client from the auth file at path (or
// $AZURE_AUTH_LOCATION when path is empty) and exports the file's subscription
// ID to the configured environment variable.
func NewClient(path string, options ...Option) (Client, error) {
	settings, err := Load(path)
	if err != nil {
		return Client{}, err
	}

	opts := Options{
		Audience:        environments.AudienceResourceManager,
		HTTPClient:      comm.DefaultClient,
		SubscriptionVar: SubscriptionEnvVar,
	}
	for _, o := range options {
		o(&opts)
	}
	cred, err := serviceprincipal.NewCredFromSecret(settings.ClientSecret)
	if err != nil {
		return Client{}, err
	}

	spOpts := []serviceprincipal.Option{
		serviceprincipal.WithEnvironment(settings.Environment()),
		serviceprincipal.WithAudience(opts.Audience),
		serviceprincipal.WithHTTPClient(opts.HTTPClient),
	}
	if opts.Resource != "" {
		spOpts = append(spOpts, serviceprincipal.WithResource(opts.Resource))
	}
	if opts.Accessor != nil {
		spOpts = append(spOpts, serviceprincipal.WithAccessor(opts.Accessor))
	}
	if opts.Logger != nil {
		spOpts = append(spOpts, serviceprincipal.WithLogger(opts.Logger))
	}

	sp, err := serviceprincipal.New(settings.ClientID, settings.TenantID, cred, spOpts...)
	if err != nil {
		return Client{}, err
	}

	// exported only once the credential is good, so a failed construction
	// leaves no process-wide side effect behind
	if opts.SubscriptionVar != "" {
		if err := os.Setenv(opts.SubscriptionVar, settings.SubscriptionID); err != nil {
			return Client{}, fmt.Errorf("could not export subscription id to %s: %w", opts.SubscriptionVar, err)
		}
	}
	return Client{Client: sp, Settings: settings}, nil
}

// GetToken returns a token for the configured resource via the underlying
// service principal credential.
func (c Client) GetToken(ctx context.Context) (Token, error) {
	return c.Client.GetToken(ctx)
}
