package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"care-connect/internal/domain/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsInvalidURL(t *testing.T) {
	_, err := New(Config{URL: "localhost:9000"}, nil)
	assert.Error(t, err)
}

func TestSend_PostsSignedPayload(t *testing.T) {
	var body []byte
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ = io.ReadAll(r.Body)
		sig = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL, Secret: "s3cret", Timeout: time.Second}, nil)
	require.NoError(t, err)

	created := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	err = s.Send(context.Background(), notifications.Notification{
		ID:        "n-1",
		UserID:    "patient-1",
		Type:      notifications.TypeMedicationAdded,
		Message:   "New medication: Metformin",
		Metadata:  map[string]string{"medicationId": "m-1"},
		CreatedAt: created,
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "n-1", got["id"])
	assert.Equal(t, "medication_added", got["type"])
	assert.Equal(t, "2025-03-10T08:00:00Z", got["createdAt"])
	assert.Equal(t, "sha256="+Sign([]byte("s3cret"), body), sig)
}

func TestSend_UnsignedWithoutSecret(t *testing.T) {
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get(SignatureHeader)
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), notifications.Notification{ID: "n-1", UserID: "u", Message: "hi"}))
	assert.Empty(t, sig)
}

func TestSend_ServerErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL}, nil)
	require.NoError(t, err)
	assert.Error(t, s.Send(context.Background(), notifications.Notification{ID: "n-1", UserID: "u", Message: "hi"}))
}
