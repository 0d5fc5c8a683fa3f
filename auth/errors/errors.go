// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package errors defines the error tiers surfaced by this module. Ordinary
// authentication failures are plain errors (usually a CallErr when HTTP was
// involved) and are propagated verbatim. CacheError is a distinguished tier
// raised only when token-cache repair itself fails; it must never be mistaken
// for an ordinary auth failure, so it carries a fixed sentinel prefix and the
// underlying failure's message.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kylelemons/godebug/pretty"
)

var prettyConf = &pretty.Config{IncludeUnexported: false, SkipZeroFields: true, TrackCycles: true}

type verboser interface {
	Verbose() string
}

// Verbose prints the most verbose error message available on err.
func Verbose(err error) string {
	if v, ok := err.(verboser); ok {
		return v.Verbose()
	}
	return err.Error()
}

// New is equivalent to errors.New().
func New(text string) error {
	return errors.New(text)
}

// CallErr represents an HTTP call error. Has a Verbose() method that allows getting the
// http.Request and Response objects. Implements error.
type CallErr struct {
	Req  *http.Request
	Resp *http.Response
	// Body is the raw response body, kept so callers can inspect OAuth error
	// payloads the server returns with non-2xx status codes.
	Body []byte
	Err  error
}

// Error implements error.Error().
func (e CallErr) Error() string {
	return e.Err.Error()
}

// Verbose prints a verbose error message with the request and response.
func (e CallErr) Verbose() string {
	return fmt.Sprintf("%s:\n\tRequest:\n%s\n\tResponse:\n%s", e.Err, prettyConf.Sprint(e.Req), prettyConf.Sprint(e.Resp))
}

// CriticalPrefix is the sentinel prefix carried by every CacheError message.
const CriticalPrefix = "critical cache failure"

// CacheError is the critical error tier: the token cache's repair path failed,
// so the cache state is suspect. Credential retrieval flows check for this tier
// and refuse to fall through to live acquisition when it is seen.
type CacheError struct {
	// Err is the underlying failure from the cache query or removal call.
	Err error
}

// NewCacheError escalates err to the critical tier.
func NewCacheError(err error) error {
	return &CacheError{Err: err}
}

// Error implements error. The message always starts with CriticalPrefix and
// embeds the underlying failure so it is never silently swallowed.
func (e *CacheError) Error() string {
	return fmt.Sprintf("%s: %v", CriticalPrefix, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// IsCritical reports whether err is (or wraps) the critical cache tier.
func IsCritical(err error) bool {
	var ce *CacheError
	return errors.As(err, &ce)
}
