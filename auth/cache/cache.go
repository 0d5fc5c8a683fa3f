// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package cache allows third parties to implement external storage for the token
cache, for distributed systems or multiple local processes sharing one set of
credentials.

The data stored and extracted represents the entire cache and is considered
opaque: there are no guarantees to implementers on the format being passed.
*/
package cache

import "context"

// Marshaler marshals data from an internal cache to bytes that can be stored.
type Marshaler interface {
	Marshal() ([]byte, error)
}

// Unmarshaler unmarshals data from a storage medium into the internal cache,
// overwriting it.
type Unmarshaler interface {
	Unmarshal([]byte) error
}

// Serializer can serialize the cache to binary or from binary into the cache.
type Serializer interface {
	Marshaler
	Unmarshaler
}

// ExportReplace is used to export or replace what is in the cache. Replace is
// called before the cache is read, Export after it has been updated. A call to
// Replace or Export is not guaranteed to succeed; implementations own their
// retry policy and must honor Context cancellation.
type ExportReplace interface {
	// Replace replaces the cache with what is in external storage.
	Replace(ctx context.Context, cache Unmarshaler) error
	// Export writes the binary representation of the cache (cache.Marshal())
	// to external storage.
	Export(ctx context.Context, cache Marshaler) error
}
