// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package environments

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func TestFromName(t *testing.T) {
	tests := []struct {
		desc string
		name string
		err  bool
		want Environment
	}{
		{desc: "exact name", name: "AzureCloud", want: PublicCloud},
		{desc: "case-insensitive", name: "azurechinacloud", want: ChinaCloud},
		{desc: "mixed case", name: "AZUREUSGOVERNMENT", want: USGovernmentCloud},
		{desc: "unknown", name: "AzureMoonCloud", err: true},
	}
	for _, test := range tests {
		got, err := FromName(test.name)
		switch {
		case err == nil && test.err:
			t.Errorf("TestFromName(%s): got err == nil, want err != nil", test.desc)
			continue
		case err != nil && !test.err:
			t.Errorf("TestFromName(%s): got err == %v, want err == nil", test.desc, err)
			continue
		case err != nil:
			continue
		}
		if diff := pretty.Compare(test.want, got); diff != "" {
			t.Errorf("TestFromName(%s): -want/+got:\n%s", test.desc, diff)
		}
	}
}

func TestRegister(t *testing.T) {
	custom := Environment{
		Name:                    "AzureStackLocal",
		ActiveDirectoryEndpoint: "https://login.stack.local/",
		ResourceManagerEndpoint: "https://management.stack.local/",
		ManagementEndpoint:      "https://management.core.stack.local/",
	}
	Register(custom)

	got, err := FromName("azurestacklocal")
	if err != nil {
		t.Fatalf("TestRegister: FromName(): got err == %v, want err == nil", err)
	}
	if got.ResourceManagerEndpoint != custom.ResourceManagerEndpoint {
		t.Errorf("TestRegister: got endpoint %q, want %q", got.ResourceManagerEndpoint, custom.ResourceManagerEndpoint)
	}

	// registering the same name replaces the earlier entry
	custom.ResourceManagerEndpoint = "https://management.stack2.local/"
	Register(custom)
	got, err = FromName("AzureStackLocal")
	if err != nil {
		t.Fatalf("TestRegister: FromName() after replace: got err == %v, want err == nil", err)
	}
	if got.ResourceManagerEndpoint != "https://management.stack2.local/" {
		t.Errorf("TestRegister: got endpoint %q, want the replacement", got.ResourceManagerEndpoint)
	}
}

func TestMatchManagementEndpoint(t *testing.T) {
	tests := []struct {
		desc string
		url  string
		ok   bool
		want string
	}{
		{desc: "exact resource manager endpoint", url: "https://management.azure.com/", ok: true, want: "AzureCloud"},
		{desc: "no trailing slash", url: "https://management.azure.com", ok: true, want: "AzureCloud"},
		{desc: "upper case scheme and host", url: "HTTPS://Management.Azure.com/", ok: true, want: "AzureCloud"},
		{desc: "classic management endpoint", url: "https://management.core.chinacloudapi.cn/", ok: true, want: "AzureChinaCloud"},
		{desc: "unknown endpoint", url: "https://management.contoso.example/"},
	}
	for _, test := range tests {
		got, ok := MatchManagementEndpoint(test.url)
		if ok != test.ok {
			t.Errorf("TestMatchManagementEndpoint(%s): got ok == %v, want %v", test.desc, ok, test.ok)
			continue
		}
		if ok && got.Name != test.want {
			t.Errorf("TestMatchManagementEndpoint(%s): got %q, want %q", test.desc, got.Name, test.want)
		}
	}
}

func TestEqualEndpoints(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"HTTPS://Foo.com/", "https://foo.com", true},
		{"https://foo.com", "https://foo.com/", true},
		{"https://foo.com/", "https://bar.com/", false},
	}
	for _, test := range tests {
		if got := EqualEndpoints(test.a, test.b); got != test.want {
			t.Errorf("TestEqualEndpoints(%q, %q): got %v, want %v", test.a, test.b, got, test.want)
		}
	}
}

func TestResource(t *testing.T) {
	if got := PublicCloud.Resource(AudienceResourceManager); got != PublicCloud.ManagementEndpoint {
		t.Errorf("TestResource: management audience: got %q, want %q", got, PublicCloud.ManagementEndpoint)
	}
	if got := PublicCloud.Resource(AudienceGraph); got != PublicCloud.ActiveDirectoryGraphResourceID {
		t.Errorf("TestResource: graph audience: got %q, want %q", got, PublicCloud.ActiveDirectoryGraphResourceID)
	}
}
