/*
client.go - Home Assistant REST API client

PURPOSE:
  Implements the engine's automation control port against the Home Assistant
  REST API (supervisor proxy or direct instance). Covers state queries,
  service calls (turn_on/turn_off, input_select, persistent notifications),
  and bulk state listing for discovery.

RELIABILITY:
  Every request runs with a bounded timeout and a bounded retry count with
  exponential backoff. A request that exhausts its retries returns an error;
  there is no hang and no unbounded retry. The engine treats such failures
  as recorded per-automation soft errors.

AUTH:
  Bearer token on every request (SUPERVISOR_TOKEN when running as an add-on,
  a long-lived access token otherwise).

SEE ALSO:
  - sickday/ports.go: The interface this satisfies
  - discovery/discovery.go: Uses GetStates
*/
package ha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/warp/sickday-helper/sickday"
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	retryBackoff   = 2 * time.Second // doubles each retry
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Home Assistant REST API.
// It satisfies sickday.ControlPort.
type Client struct {
	BaseURL string
	Token   string

	// HTTPClient is overridable for tests; defaults to a 30s-timeout client.
	HTTPClient *http.Client

	// Backoff is the initial retry delay; overridable in tests.
	Backoff time.Duration
}

var _ sickday.ControlPort = (*Client)(nil)

// NewClient creates a client for the given API base URL and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		Backoff:    retryBackoff,
	}
}

// APIError is a non-2xx response from Home Assistant.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("home assistant api: status %d: %s", e.StatusCode, e.Body)
}

// request performs an authenticated call with bounded retries. The response
// body is decoded into out when out is non-nil and the body is non-empty.
func (c *Client) request(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 2s, 4s, ...
			backoff := c.Backoff
			if backoff <= 0 {
				backoff = retryBackoff
			}
			delay := backoff * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.doOnce(ctx, method, path, body, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		log.Printf("[HA] %s %s failed (attempt %d/%d): %v", method, path, attempt+1, maxRetries, lastErr)
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out != nil && len(respBody) > 0 {
		return json.Unmarshal(respBody, out)
	}
	return nil
}

// =============================================================================
// STATES
// =============================================================================

// State is one entity's state object as returned by /api/states.
type State struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// FriendlyName returns the friendly_name attribute, empty when absent.
func (s *State) FriendlyName() string {
	if s == nil {
		return ""
	}
	name, _ := s.Attributes["friendly_name"].(string)
	return name
}

// GetState returns the full state object for an entity.
func (c *Client) GetState(ctx context.Context, id sickday.EntityID) (*State, error) {
	var state State
	if err := c.request(ctx, http.MethodGet, "/states/"+string(id), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetStates returns all entity states.
func (c *Client) GetStates(ctx context.Context) ([]State, error) {
	var states []State
	if err := c.request(ctx, http.MethodGet, "/states", nil, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// StateValue returns just the state string for an entity.
func (c *Client) StateValue(ctx context.Context, id sickday.EntityID) (string, error) {
	state, err := c.GetState(ctx, id)
	if err != nil {
		return "", err
	}
	return state.State, nil
}

// FriendlyName resolves an entity's display name, empty when unset.
func (c *Client) FriendlyName(ctx context.Context, id sickday.EntityID) (string, error) {
	state, err := c.GetState(ctx, id)
	if err != nil {
		return "", err
	}
	return state.FriendlyName(), nil
}

// =============================================================================
// SERVICES
// =============================================================================

// CallService invokes a Home Assistant service.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	return c.request(ctx, http.MethodPost, "/services/"+domain+"/"+service, data, nil)
}

// entityDomain extracts the service domain from an entity ID
// ("automation.kid_1_morning" -> "automation").
func entityDomain(id sickday.EntityID) string {
	if i := strings.IndexByte(string(id), '.'); i >= 0 {
		return string(id)[:i]
	}
	return string(id)
}

// TurnOn turns an entity on (automation, input_boolean, ...).
func (c *Client) TurnOn(ctx context.Context, id sickday.EntityID) error {
	return c.CallService(ctx, entityDomain(id), "turn_on", map[string]any{"entity_id": string(id)})
}

// TurnOff turns an entity off.
func (c *Client) TurnOff(ctx context.Context, id sickday.EntityID) error {
	return c.CallService(ctx, entityDomain(id), "turn_off", map[string]any{"entity_id": string(id)})
}

// SetSelectOptions replaces the option list of an input_select entity.
func (c *Client) SetSelectOptions(ctx context.Context, id sickday.EntityID, options []string) error {
	return c.CallService(ctx, "input_select", "set_options", map[string]any{
		"entity_id": string(id),
		"options":   options,
	})
}

// SelectOption selects an option on an input_select entity.
func (c *Client) SelectOption(ctx context.Context, id sickday.EntityID, option string) error {
	return c.CallService(ctx, "input_select", "select_option", map[string]any{
		"entity_id": string(id),
		"option":    option,
	})
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notify creates or replaces a persistent notification by ID.
func (c *Client) Notify(ctx context.Context, title, message, notificationID string) error {
	data := map[string]any{"message": message}
	if title != "" {
		data["title"] = title
	}
	if notificationID != "" {
		data["notification_id"] = notificationID
	}
	return c.CallService(ctx, "persistent_notification", "create", data)
}

// DismissNotification removes a persistent notification.
func (c *Client) DismissNotification(ctx context.Context, notificationID string) error {
	return c.CallService(ctx, "persistent_notification", "dismiss", map[string]any{
		"notification_id": notificationID,
	})
}
