package authclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/verify" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"message":"Token valid","data":{"user":{"id":"u-1","username":"alice","name":"Alice","role":"user","is_active":true}}}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","code":"AUTHENTICATION_ERROR","message":"invalid token"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Verify(t *testing.T) {
	t.Parallel()

	c := NewClient(newServer(t).URL + "/")

	u, err := c.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "Alice", u.Name)
	assert.True(t, u.IsActive)

	_, err = c.Verify(context.Background(), "forged")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Verify(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "500")
}
