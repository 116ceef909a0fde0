package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"strategist/pkg/advice"
)

type unlockResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Unlock trades the shared password for a session token and keeps it for
// subsequent FetchAdvice calls. It returns the token's expiry.
func (c *Client) Unlock(ctx context.Context, password string) (time.Time, error) {
	if password == "" {
		return time.Time{}, advice.ErrEmptyPassword
	}
	payload, _ := json.Marshal(map[string]string{"password": password})

	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(actx, http.MethodPost, c.baseURL+UnlockPath, bytes.NewReader(payload))
	if err != nil {
		return time.Time{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return time.Time{}, c.transportError(ctx, actx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return time.Time{}, c.transportError(ctx, actx, err)
	}
	if resp.StatusCode != http.StatusOK {
		return time.Time{}, statusError(resp.StatusCode, data)
	}

	var out unlockResponse
	if err := json.Unmarshal(data, &out); err != nil || out.Token == "" {
		return time.Time{}, fmt.Errorf("%w: malformed unlock response", advice.ErrUpstream)
	}
	c.setToken(out.Token)
	return out.ExpiresAt, nil
}
