// Package client is a typed HTTP client for the mail administration API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edvin/mailapi/internal/model"
)

// APIError is a non-2xx answer from the API. Message carries the "error"
// field of the body when there is one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mail API: status %d", e.Status)
	}
	return fmt.Sprintf("mail API: status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error  string `json:"error"`
			Status string `json:"status"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e) == nil {
			apiErr.Message = e.Error
			if apiErr.Message == "" {
				apiErr.Message = e.Status
			}
		}
		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func withDomain(path, domain string) string {
	if domain == "" {
		return path
	}
	return path + "?" + url.Values{"domain": {domain}}.Encode()
}

// Health calls the authenticated detailed health check.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/api/health/detailed", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) ListDomains(ctx context.Context) ([]model.Domain, error) {
	var resp domainList
	if err := c.do(ctx, http.MethodGet, "/api/domains", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Domains, nil
}

func (c *Client) CreateDomain(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/domains", map[string]string{"domain": name}, nil)
}

func (c *Client) DeleteDomain(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/domains/"+url.PathEscape(name), nil, nil)
}

// ListMailboxes lists mailboxes, optionally restricted to one domain.
func (c *Client) ListMailboxes(ctx context.Context, domain string) ([]model.Mailbox, error) {
	var resp mailboxList
	if err := c.do(ctx, http.MethodGet, withDomain("/api/mailboxes", domain), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Mailboxes, nil
}

func (c *Client) CreateMailbox(ctx context.Context, req CreateMailboxRequest) (*CreatedMailbox, error) {
	var resp CreatedMailbox
	if err := c.do(ctx, http.MethodPost, "/api/mailboxes", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteMailbox(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodDelete, "/api/mailboxes/"+url.PathEscape(email), nil, nil)
}

func (c *Client) ChangePassword(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPut, "/api/mailboxes/"+url.PathEscape(email)+"/password",
		map[string]string{"password": password}, &messageResponse{})
}

// ListAliases lists aliases, optionally restricted to one domain.
func (c *Client) ListAliases(ctx context.Context, domain string) ([]model.Alias, error) {
	var resp aliasList
	if err := c.do(ctx, http.MethodGet, withDomain("/api/aliases", domain), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Aliases, nil
}

func (c *Client) CreateAlias(ctx context.Context, req CreateAliasRequest) (*CreatedAlias, error) {
	var resp CreatedAlias
	if err := c.do(ctx, http.MethodPost, "/api/aliases", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteAlias(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodDelete, "/api/aliases/"+url.PathEscape(email), nil, nil)
}

func (c *Client) Stats(ctx context.Context) (*model.Stats, error) {
	var s model.Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
