// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package comm provides the HTTP transport used by the token client. Calls are
// of type "application/x-www-form-urlencoded" and receive JSON in return.
package comm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"

	"github.com/AzureAD/azure-auth-library-for-go/auth/errors"
	"github.com/google/uuid"
)

// HTTPClient represents an HTTP client.
// It's usually an *http.Client from the standard library.
type HTTPClient interface {
	// Do sends the HTTP request and returns the HTTP response.
	Do(req *http.Request) (*http.Response, error)

	// CloseIdleConnections closes any idle connections in a "keep-alive" state.
	CloseIdleConnections()
}

const (
	libraryName    = "azure-auth-go"
	libraryVersion = "1.0.0"
)

// DefaultClient is the shared HTTP client used when a credential is not given
// a custom one.
var DefaultClient HTTPClient = &http.Client{}

// Client provides REST calls against token endpoints.
type Client struct {
	client HTTPClient
}

// New returns a client using the given HTTP client. httpClient must not be nil.
func New(httpClient HTTPClient) *Client {
	if httpClient == nil {
		panic("comm.New(): httpClient cannot be nil")
	}
	return &Client{client: httpClient}
}

// URLFormCall makes a POST call to endpoint with the URL-encoded form values in
// qv and unmarshals the JSON response into resp. A non-2xx status yields an
// errors.CallErr carrying the request, response and raw body.
func (c *Client) URLFormCall(ctx context.Context, endpoint string, qv url.Values, resp interface{}) error {
	if len(qv) == 0 {
		return fmt.Errorf("URLFormCall() requires qv to have non-zero length")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("could not parse endpoint(%s): %w", endpoint, err)
	}

	enc := qv.Encode()
	headers := http.Header{
		"Content-Type":             []string{"application/x-www-form-urlencoded; charset=utf-8"},
		"Content-Length":           []string{strconv.Itoa(len(enc))},
		"client-request-id":        []string{uuid.New().String()},
		"return-client-request-id": []string{"false"},
		"x-client-sku":             []string{libraryName},
		"x-client-ver":             []string{libraryVersion},
		"x-client-os":              []string{runtime.GOOS},
	}

	req := &http.Request{
		Method: http.MethodPost,
		URL:    u,
		Header: headers,
		Body:   io.NopCloser(strings.NewReader(enc)),
	}
	req = req.WithContext(ctx)

	reply, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("server response error:\n %w", err)
	}
	defer reply.Body.Close()

	data, err := io.ReadAll(reply.Body)
	if err != nil {
		return fmt.Errorf("could not read the body of an HTTP Response: %w", err)
	}

	if reply.StatusCode < 200 || reply.StatusCode > 299 {
		return errors.CallErr{
			Req:  req,
			Resp: reply,
			Body: data,
			Err:  fmt.Errorf("http call(%s)(%s) error: reply status code was %d:\n%s", u.String(), req.Method, reply.StatusCode, string(data)),
		}
	}

	if resp != nil {
		if err := json.Unmarshal(data, resp); err != nil {
			return fmt.Errorf("json decode error: %w\nraw message was: %s", err, string(data))
		}
	}
	return nil
}
