package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrUserNotFound is returned when the directory has no record for the user.
var ErrUserNotFound = errors.New("user not found in directory")

type httpDirectory struct {
	baseURL string
	client  *retryablehttp.Client
}

// NewHTTPDirectory returns a Directory backed by the identity service's
// internal lookup endpoint: GET {baseURL}/users/{id} responding with
// {"email": "..."}.
func NewHTTPDirectory(baseURL string, client *retryablehttp.Client) Directory {
	if baseURL == "" {
		panic("notifier: directory base URL is required")
	}
	if client == nil {
		client = retryablehttp.NewClient()
		client.RetryMax = 3
		client.HTTPClient.Timeout = 10 * time.Second
		client.Logger = nil
	}
	return &httpDirectory{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (d *httpDirectory) Email(ctx context.Context, userID uuid.UUID) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/users/"+userID.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("directory lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("directory lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode directory response: %w", err)
	}
	if body.Email == "" {
		return "", fmt.Errorf("%w: record for %s has no email", ErrUserNotFound, userID)
	}
	return body.Email, nil
}
