// Package backendsvc talks to the school-portal backend REST API.
package backendsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/schulportal/core"
)

// ResponseError is a non-2xx answer of the backend.
type ResponseError struct {
	Status  int         `json:"-"`
	Code    interface{} `json:"code"`
	I18nKey string      `json:"i18nKey"`
	Message string      `json:"message"`
}

func (e *ResponseError) Error() string {
	code := e.ErrorCode()
	if code == "" {
		code = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend responded %d: %s", e.Status, code)
}

// ErrorCode returns the i18nKey, or the code when it is a string.
func (e *ResponseError) ErrorCode() string {
	if e.I18nKey != "" {
		return e.I18nKey
	}
	if code, ok := e.Code.(string); ok {
		return code
	}
	return ""
}

// Token is a bearer token that can be replaced while requests are running.
type Token struct {
	mu    sync.RWMutex
	value string
}

func NewToken(value string) *Token {
	return &Token{value: value}
}

func (t *Token) Set(value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.value = value
}

func (t *Token) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

// Client is a backend API client. Use WithToken or WithBearer to get a client acting on behalf of an admin.
type Client struct {
	baseURL string
	token   *Token
	http    *http.Client
	logger  core.Logger
}

func NewClient(conf *core.Config, logger core.Logger, httpClient ...*http.Client) *Client {
	c := &Client{
		baseURL: strings.TrimRight(conf.Backend.BaseURL, "/"),
		http:    &http.Client{Timeout: conf.Backend.Timeout},
		logger:  logger,
	}
	if len(httpClient) > 0 && httpClient[0] != nil {
		c.http = httpClient[0]
	}
	return c
}

// WithToken returns a copy of `c` sending `token` as bearer.
func (c *Client) WithToken(token string) *Client {
	return c.WithBearer(NewToken(token))
}

// WithBearer returns a copy of `c` reading its bearer from `token` on every request.
func (c *Client) WithBearer(token *Token) *Client {
	cc := *c
	cc.token = token
	return &cc
}

func (c *Client) do(ctx context.Context, method rest.Method, path string, query url.Values, body, dest interface{}) error {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if len(query) > 0 {
		req.BaseURL += "?" + query.Encode()
	}
	if c.token != nil {
		if token := c.token.String(); token != "" {
			req.Headers["Authorization"] = "Bearer " + token
		}
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "backendsvc.json.Marshal")
		}
		req.Body = b
		req.Headers["Content-Type"] = "application/json"
	}

	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return errors.Wrap(err, "backendsvc.BuildRequestObject")
	}
	httpRes, err := c.http.Do(httpReq.WithContext(ctx))
	if err != nil {
		return errors.Wrapf(err, "backendsvc: %s %s", method, path)
	}
	defer httpRes.Body.Close()

	res, err := rest.BuildResponse(httpRes)
	if err != nil {
		return errors.Wrap(err, "backendsvc.BuildResponse")
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		resErr := &ResponseError{Status: res.StatusCode}
		_ = json.Unmarshal([]byte(res.Body), resErr) // bodies without a code stay unspecified
		c.logger.Debug(fmt.Sprintf("backendsvc: %s %s", method, path), resErr)
		return resErr
	}

	if dest == nil || strings.TrimSpace(res.Body) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Body), dest); err != nil {
		return errors.Wrapf(err, "backendsvc.json.Unmarshal: %s %s", method, path)
	}
	return nil
}

func escape(id string) string { return url.PathEscape(id) }
