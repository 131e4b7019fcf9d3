package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitline-system/models"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&ClientConfig{
		BaseURL: baseURL,
		VenueID: "venue-1",
		APIKey:  "test-key",
		HMACKey: "test-hmac",
	})
}

func TestClient_ListEntries(t *testing.T) {
	entry := models.QueueEntry{
		ID:          "srv-1",
		Name:        "Ada",
		Guests:      2,
		Position:    1,
		JoinedAt:    time.Date(2025, 7, 4, 17, 45, 0, 0, time.UTC),
		ServiceDate: "2025-07-04",
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/venues/venue-1/waitlist", r.URL.Path)
		assert.Equal(t, "2025-07-04", r.URL.Query().Get("date"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"entries": []models.QueueEntry{entry},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	entries, err := client.ListEntries(context.Background(), "2025-07-04")

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "srv-1", entries[0].ID)
	assert.True(t, entry.JoinedAt.Equal(entries[0].JoinedAt))
}

func TestClient_ListEntries_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ListEntries(context.Background(), "2025-07-04")
	assert.Error(t, err)
}

func TestClient_CreateEntry_SignsBodyAndAdoptsReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/venues/venue-1/waitlist", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.True(t, VerifySignedHash(body, []byte("test-hmac"), r.Header.Get("SignedHash")))

		var received models.QueueEntry
		require.NoError(t, json.Unmarshal(body, &received))

		// server reassigns id and position
		received.ID = "srv-9"
		received.Position = 4
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(received)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	created, err := client.CreateEntry(context.Background(), &models.QueueEntry{
		ID:       "local-1",
		Name:     "Ada",
		Guests:   2,
		Position: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, "srv-9", created.ID)
	assert.Equal(t, 4, created.Position)
	assert.Equal(t, "Ada", created.Name)
}

func TestClient_UpdateNotified(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/venues/venue-1/waitlist/e-7", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	require.NoError(t, client.UpdateNotified(context.Background(), "e-7", true))
	assert.Equal(t, true, gotBody["notified"])
}

func TestClient_CancelEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/venues/venue-1/waitlist/e-7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	assert.NoError(t, client.CancelEntry(context.Background(), "e-7"))
}

func TestClient_CancelEntry_NotFoundIsFine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	// Cancelling an entry the backend no longer knows is not an error.
	client := newTestClient(srv.URL)
	assert.NoError(t, client.CancelEntry(context.Background(), "gone"))
}

func TestHmac256_Verify(t *testing.T) {
	body := []byte(`{"notified":true}`)
	key := []byte("secret")

	sig := Hmac256(body, key)
	assert.True(t, VerifySignedHash(body, key, sig))
	assert.False(t, VerifySignedHash([]byte("tampered"), key, sig))
	assert.False(t, VerifySignedHash(body, []byte("wrong"), sig))
}
