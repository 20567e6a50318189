// Package statusapi is the HTTP client for the language server's local
// user-status endpoint.
package statusapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"surfstat/internal/config"
)

// ErrNoReachablePort means every candidate port was probed and none
// returned a usable response.
var ErrNoReachablePort = errors.New("could not connect to the language server on any discovered port")

// Client handles requests to the local user-status endpoint
type Client struct {
	httpClient *http.Client
	apiPath    string
	metadata   requestMetadata
}

// requestMetadata identifies the caller to the language server.
type requestMetadata struct {
	IDEName       string `json:"ideName"`
	ExtensionName string `json:"extensionName"`
	IDEVersion    string `json:"ideVersion"`
}

// statusRequest is the fixed GetUserStatus request body.
type statusRequest struct {
	Metadata requestMetadata `json:"metadata"`
}

// NewClient creates a new status client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			// Client.Timeout bounds each attempt and tears the
			// connection down on expiry
			Timeout: cfg.Timeout(),
			Transport: &http.Transport{
				// the language server listens on loopback with a
				// self-signed certificate
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		apiPath: cfg.APIPath,
		metadata: requestMetadata{
			IDEName:       cfg.IDEName,
			ExtensionName: cfg.ExtensionName,
			IDEVersion:    cfg.IDEVersion,
		},
	}
}

// GetUserStatus issues one authenticated POST against a single port.
func (c *Client) GetUserStatus(ctx context.Context, port int, token string) (*UserStatusResponse, error) {
	body, err := json.Marshal(statusRequest{Metadata: c.metadata})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://127.0.0.1:%d%s", port, c.apiPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Codeium-Csrf-Token", token)
	req.Header.Set("Connect-Protocol-Version", "1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var status UserStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}

	return &status, nil
}

// Probe tries each candidate port in order and returns the first
// successful response. Per-port failures (timeout, non-200, malformed
// JSON) are logged at debug and absorbed; only total exhaustion is an
// error.
func (c *Client) Probe(ctx context.Context, ports []int, token string) (*UserStatusResponse, error) {
	for _, port := range ports {
		status, err := c.GetUserStatus(ctx, port, token)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Debug().Int("port", port).Err(err).Msg("probe failed")
			continue
		}
		log.Debug().Int("port", port).Msg("status endpoint responded")
		return status, nil
	}
	return nil, ErrNoReachablePort
}
