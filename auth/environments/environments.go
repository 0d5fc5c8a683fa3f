// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package environments holds the endpoint metadata for the Azure clouds a
// credential can authenticate against. The table is a fixed set of structured
// records iterated explicitly; custom or sovereign clouds are added with
// Register().
package environments

import (
	"fmt"
	"strings"
	"sync"
)

// TokenAudience selects which resource a credential requests tokens for.
type TokenAudience string

const (
	// AudienceResourceManager is the default audience: the service management endpoint.
	AudienceResourceManager TokenAudience = "management"
	// AudienceGraph requests tokens for the directory graph.
	AudienceGraph TokenAudience = "graph"
)

// Environment describes the endpoints of an Azure cloud.
type Environment struct {
	// Name is the cloud's well known name, e.g. "AzureCloud".
	Name string `json:"name"`
	// ActiveDirectoryEndpoint is the authority host tokens are requested from.
	ActiveDirectoryEndpoint string `json:"activeDirectoryEndpointUrl"`
	// ResourceManagerEndpoint is the Azure Resource Manager endpoint.
	ResourceManagerEndpoint string `json:"resourceManagerEndpointUrl"`
	// ActiveDirectoryGraphResourceID is the audience for directory graph tokens.
	ActiveDirectoryGraphResourceID string `json:"activeDirectoryGraphResourceId"`
	// ManagementEndpoint is the classic service management endpoint and the
	// default token audience.
	ManagementEndpoint string `json:"managementEndpointUrl"`
	// SQLManagementEndpoint is the SQL service management endpoint.
	SQLManagementEndpoint string `json:"sqlManagementEndpointUrl"`
}

// Resource returns the token audience URI for the given audience selector.
func (e Environment) Resource(audience TokenAudience) string {
	if audience == AudienceGraph {
		return e.ActiveDirectoryGraphResourceID
	}
	return e.ManagementEndpoint
}

// PublicCloud is the default, worldwide Azure cloud.
var PublicCloud = Environment{
	Name:                           "AzureCloud",
	ActiveDirectoryEndpoint:        "https://login.microsoftonline.com/",
	ResourceManagerEndpoint:        "https://management.azure.com/",
	ActiveDirectoryGraphResourceID: "https://graph.windows.net/",
	ManagementEndpoint:             "https://management.core.windows.net/",
	SQLManagementEndpoint:          "https://management.core.windows.net:8443/",
}

// ChinaCloud is the Azure cloud operated in China.
var ChinaCloud = Environment{
	Name:                           "AzureChinaCloud",
	ActiveDirectoryEndpoint:        "https://login.chinacloudapi.cn/",
	ResourceManagerEndpoint:        "https://management.chinacloudapi.cn/",
	ActiveDirectoryGraphResourceID: "https://graph.chinacloudapi.cn/",
	ManagementEndpoint:             "https://management.core.chinacloudapi.cn/",
	SQLManagementEndpoint:          "https://management.core.chinacloudapi.cn:8443/",
}

// USGovernmentCloud is the Azure cloud for the US government.
var USGovernmentCloud = Environment{
	Name:                           "AzureUSGovernment",
	ActiveDirectoryEndpoint:        "https://login.microsoftonline.us/",
	ResourceManagerEndpoint:        "https://management.usgovcloudapi.net/",
	ActiveDirectoryGraphResourceID: "https://graph.windows.net/",
	ManagementEndpoint:             "https://management.core.usgovcloudapi.net/",
	SQLManagementEndpoint:          "https://management.core.usgovcloudapi.net:8443/",
}

// GermanCloud is the Azure cloud operated in Germany.
var GermanCloud = Environment{
	Name:                           "AzureGermanCloud",
	ActiveDirectoryEndpoint:        "https://login.microsoftonline.de/",
	ResourceManagerEndpoint:        "https://management.microsoftazure.de/",
	ActiveDirectoryGraphResourceID: "https://graph.cloudapi.de/",
	ManagementEndpoint:             "https://management.core.cloudapi.de/",
	SQLManagementEndpoint:          "https://management.core.cloudapi.de:8443/",
}

var (
	mu    sync.RWMutex
	known = []Environment{PublicCloud, ChinaCloud, USGovernmentCloud, GermanCloud}
)

// Register adds a custom environment to the known set. An environment with the
// same name replaces the earlier registration.
func Register(env Environment) {
	mu.Lock()
	defer mu.Unlock()
	for i, e := range known {
		if strings.EqualFold(e.Name, env.Name) {
			known[i] = env
			return
		}
	}
	known = append(known, env)
}

// FromName returns the environment registered under name. The comparison is
// case-insensitive.
func FromName(name string) (Environment, error) {
	mu.RLock()
	defer mu.RUnlock()
	for _, e := range known {
		if strings.EqualFold(e.Name, name) {
			return e, nil
		}
	}
	return Environment{}, fmt.Errorf("there is no cloud environment matching the name %q", name)
}

// MatchManagementEndpoint returns the known environment whose management or
// resource manager endpoint equals url. URLs are compared case-insensitively
// and ignoring a trailing slash, so "HTTPS://Foo.com/" matches "https://foo.com".
func MatchManagementEndpoint(url string) (Environment, bool) {
	mu.RLock()
	defer mu.RUnlock()
	for _, e := range known {
		if EqualEndpoints(e.ManagementEndpoint, url) || EqualEndpoints(e.ResourceManagerEndpoint, url) {
			return e, true
		}
	}
	return Environment{}, false
}

// EqualEndpoints reports whether two endpoint URLs are the same modulo case
// and a trailing slash.
func EqualEndpoints(a, b string) bool {
	return normalize(a) == normalize(b)
}

func normalize(endpoint string) string {
	return strings.ToLower(strings.TrimSuffix(endpoint, "/"))
}
