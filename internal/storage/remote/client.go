// Package remote is the HTTP client for the remote force store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mekforge/forcesync/internal/force"
	"github.com/mekforge/forcesync/internal/storage"
)

var httpClient = &http.Client{Timeout: 8 * time.Second}

// Client talks to the remote force store's JSON API.
type Client struct {
	baseURL string
	token   string
}

// NewClient creates a remote store client. token, when non-empty, is sent
// as a bearer credential so the store can resolve ownership.
func NewClient(baseURL, token string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

type forceDocument struct {
	Snapshot force.Snapshot `json:"snapshot"`
	Owned    bool           `json:"owned"`
}

type savePayload struct {
	Snapshot  force.Snapshot `json:"snapshot"`
	Overwrite bool           `json:"overwrite,omitempty"`
}

// Get fetches the stored record for id.
func (c *Client) Get(ctx context.Context, id string) (storage.Record, error) {
	var doc forceDocument
	status, err := c.do(ctx, http.MethodGet, c.forcePath(id), nil, &doc)
	if err != nil {
		return storage.Record{}, err
	}
	if status == http.StatusNotFound {
		return storage.Record{}, storage.ErrNotFound
	}
	if status != http.StatusOK {
		return storage.Record{}, fmt.Errorf("remote store status %d", status)
	}
	return storage.Record{Snapshot: doc.Snapshot, Owned: doc.Owned}, nil
}

// Put writes the snapshot for its instance id.
func (c *Client) Put(ctx context.Context, snap force.Snapshot, overwrite bool) error {
	if snap.InstanceID == "" {
		return fmt.Errorf("instance id is required")
	}
	status, err := c.do(ctx, http.MethodPut, c.forcePath(snap.InstanceID), savePayload{Snapshot: snap, Overwrite: overwrite}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusNoContent {
		return fmt.Errorf("remote store status %d", status)
	}
	return nil
}

// Delete removes the stored record for id.
func (c *Client) Delete(ctx context.Context, id string) error {
	status, err := c.do(ctx, http.MethodDelete, c.forcePath(id), nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent && status != http.StatusNotFound {
		return fmt.Errorf("remote store status %d", status)
	}
	return nil
}

func (c *Client) forcePath(id string) string {
	return "/v1/forces/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
