package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/atinyakov/go-url-relay/internal/models"
)

const maxErrorBody = 4096

type client struct {
	server string
	token  string
	http   *http.Client
}

func (c *client) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.http.Do(req)
}

func (c *client) register(ctx context.Context, url, userAgent string) (string, error) {
	body := models.RegistrationRequest{URL: &url}
	if userAgent != "" {
		body.UserAgent = &userAgent
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.server, "/")+"/", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", responseError(resp)
	}

	var link string
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return "", fmt.Errorf("decode short link: %w", err)
	}

	return link, nil
}

// fetch streams the target of link into w. A bare id is resolved against
// the configured server.
func (c *client) fetch(ctx context.Context, link string, w io.Writer) (int64, error) {
	if !strings.Contains(link, "://") {
		link = strings.TrimRight(c.server, "/") + "/" + strings.TrimLeft(link, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, responseError(resp)
	}

	return io.Copy(w, resp.Body)
}

// responseError turns a failed response into an error, using the JSON
// detail when the relay sent one.
func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var detail models.ErrorResponse
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != nil {
		if s, ok := detail.Detail.(string); ok {
			return fmt.Errorf("%s: %s", resp.Status, s)
		}
		encoded, _ := json.Marshal(detail.Detail)
		return fmt.Errorf("%s: %s", resp.Status, encoded)
	}

	return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(raw)))
}
