package ui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/b0bbywan/go-portal-test/backend"
	"github.com/b0bbywan/go-portal-test/logger"
	"github.com/b0bbywan/go-portal-test/window"
)

// APIClient makes HTTP requests to the local JSON API
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient creates a new internal API client.
// It always connects to 127.0.0.1, which is guaranteed to be in the server's listen list.
func NewAPIClient(port int) *APIClient {
	return newAPIClient(fmt.Sprintf("http://127.0.0.1:%d", port))
}

func newAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *APIClient) GetServerInfo() (*backend.ServerDeviceInfo, error) {
	var v backend.ServerDeviceInfo
	if err := c.get("/server", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *APIClient) GetWindow() (*window.View, error) {
	var v window.View
	if err := c.get("/window", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// get performs a GET request and decodes the JSON response into dest.
func (c *APIClient) get(path string, dest any) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("[ui] failed to close response body for %s", path)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%s: decode failed: %w", path, err)
	}
	return nil
}
