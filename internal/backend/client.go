package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"waitline-system/models"
)

// Service is the contract the venue queue backend exposes. Every call
// is best-effort from the caller's point of view: the waitline keeps
// operating on its local snapshot when the backend is unreachable.
type Service interface {
	// ListEntries fetches the whole waitlist for a service date.
	ListEntries(ctx context.Context, date string) ([]models.QueueEntry, error)

	// CreateEntry registers a new party. The backend may reassign the
	// id and position; the returned entry is adopted verbatim.
	CreateEntry(ctx context.Context, entry *models.QueueEntry) (*models.QueueEntry, error)

	// UpdateNotified propagates the one-shot notification flag.
	UpdateNotified(ctx context.Context, id string, notified bool) error

	// CancelEntry removes a party from the backend waitlist.
	CancelEntry(ctx context.Context, id string) error
}

type ClientConfig struct {
	BaseURL string `json:"baseUrl"`
	VenueID string `json:"venueId"`
	APIKey  string `json:"apiKey"`
	HMACKey string `json:"hmacKey"`
}

type Client struct {
	// baseURL is the base url of the venue queue backend.
	baseURL string

	// venueID identifies this restaurant at the backend.
	venueID string

	// apiKey authenticates requests.
	apiKey string

	// hmacKey signs request bodies.
	hmacKey string

	// hc is the http client.
	hc *http.Client
}

// NewClient creates a new venue backend client.
func NewClient(c *ClientConfig) *Client {
	return &Client{
		baseURL: c.BaseURL,
		venueID: c.VenueID,
		apiKey:  c.APIKey,
		hmacKey: c.HMACKey,

		// set http client with timeout.
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) ListEntries(ctx context.Context, date string) ([]models.QueueEntry, error) {
	endpoint := fmt.Sprintf("/api/v1/venues/%s/waitlist?date=%s", c.venueID, url.QueryEscape(date))
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("listEntries: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listEntries: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listEntries: unexpected status %d", resp.StatusCode)
	}

	var reply struct {
		Entries []models.QueueEntry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("listEntries: json.Decode: %w", err)
	}

	return reply.Entries, nil
}

func (c *Client) CreateEntry(ctx context.Context, entry *models.QueueEntry) (*models.QueueEntry, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("createEntry: json.Marshal: %w", err)
	}

	endpoint := fmt.Sprintf("/api/v1/venues/%s/waitlist", c.venueID)
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("createEntry: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("createEntry: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("createEntry: unexpected status %d", resp.StatusCode)
	}

	var created models.QueueEntry
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("createEntry: json.Decode: %w", err)
	}

	return &created, nil
}

func (c *Client) UpdateNotified(ctx context.Context, id string, notified bool) error {
	body, err := json.Marshal(map[string]any{"notified": notified})
	if err != nil {
		return fmt.Errorf("updateNotified: json.Marshal: %w", err)
	}

	endpoint := fmt.Sprintf("/api/v1/venues/%s/waitlist/%s", c.venueID, url.PathEscape(id))
	req, err := c.newRequest(ctx, http.MethodPatch, endpoint, body)
	if err != nil {
		return fmt.Errorf("updateNotified: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("updateNotified: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("updateNotified: unexpected status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) CancelEntry(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("/api/v1/venues/%s/waitlist/%s", c.venueID, url.PathEscape(id))
	req, err := c.newRequest(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("cancelEntry: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("cancelEntry: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("cancelEntry: unexpected status %d", resp.StatusCode)
	}

	return nil
}

// newRequest builds a signed request. Bodies are signed with
// HMAC-SHA256 and carried in the SignedHash header; the api key rides
// in Authorization.
func (c *Client) newRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Request, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("url.Parse: %w", err)
	}

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, base.String()+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("http.NewReq: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.hmacKey != "" {
		req.Header.Set("SignedHash", Hmac256(body, []byte(c.hmacKey)))
	}

	return req, nil
}
