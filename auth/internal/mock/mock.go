// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package mock

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

type response struct {
	body     []byte
	callback func(*http.Request)
	code     int
	headers  http.Header
}

type responseOption interface {
	apply(*response)
}

type respOpt func(*response)

func (fn respOpt) apply(r *response) {
	fn(r)
}

// WithBody sets the HTTP response's body to the specified value.
func WithBody(b []byte) responseOption {
	return respOpt(func(r *response) {
		r.body = b
	})
}

// WithCallback sets a callback to invoke before returning the response.
func WithCallback(callback func(*http.Request)) responseOption {
	return respOpt(func(r *response) {
		r.callback = callback
	})
}

// WithHTTPStatusCode sets the HTTP statusCode of response to the specified value.
func WithHTTPStatusCode(statusCode int) responseOption {
	return respOpt(func(r *response) {
		r.code = statusCode
	})
}

// Client is a mock HTTP client that returns a sequence of responses. Use AppendResponse to specify the sequence.
type Client struct {
	mu   sync.Mutex
	resp []response
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) AppendResponse(opts ...responseOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := response{code: http.StatusOK, headers: http.Header{}}
	for _, o := range opts {
		o.apply(&r)
	}
	c.resp = append(c.resp, r)
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.resp) == 0 {
		panic(fmt.Sprintf(`no response for "%s"`, req.URL.String()))
	}
	resp := c.resp[0]
	c.resp = c.resp[1:]
	if resp.callback != nil {
		resp.callback(req)
	}
	res := http.Response{Header: resp.headers, StatusCode: resp.code}
	res.Body = io.NopCloser(bytes.NewReader(resp.body))
	return &res, nil
}

// CloseIdleConnections implements the comm.HTTPClient interface.
func (*Client) CloseIdleConnections() {}

// TokenBody builds an ADAL-style token endpoint response body.
func TokenBody(accessToken, refreshToken, resource string, expiresIn int) []byte {
	body := fmt.Sprintf(
		`{"access_token":"%s","token_type":"Bearer","resource":"%s","expires_in":"%d","expires_on":"%d"`,
		accessToken, resource, expiresIn, time.Now().Add(time.Duration(expiresIn)*time.Second).Unix(),
	)
	if refreshToken != "" {
		body += fmt.Sprintf(`,"refresh_token":"%s"`, refreshToken)
	}
	return []byte(body + "}")
}

// ErrorBody builds an OAuth protocol error response body.
func ErrorBody(code, description string) []byte {
	return []byte(fmt.Sprintf(`{"error":"%s","error_description":"%s"}`, code, description))
}

// DeviceCodeBody builds a device code endpoint response body.
func DeviceCodeBody(userCode, deviceCode, verificationURL, message string, expiresIn, interval int) []byte {
	return []byte(fmt.Sprintf(
		`{"user_code":"%s","device_code":"%s","verification_url":"%s","message":"%s","expires_in":"%d","interval":%d}`,
		userCode, deviceCode, verificationURL, message, expiresIn, interval,
	))
}
