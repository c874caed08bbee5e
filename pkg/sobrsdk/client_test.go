package sobrsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, success bool, msg string, data any) {
	raw, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Status:  status,
		Success: success,
		Message: msg,
		Data:    raw,
	})
}

func TestGetParsesEnvelopeData(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users", r.URL.Path)
		writeEnvelope(w, http.StatusOK, true, "ok", []User{{ID: "u1", Email: "amy@example.com"}})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "")
	require.NoError(t, err)

	users, err := c.GetUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "u1", users[0].ID)
}

func TestGetServesCacheWhenServerGone(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "ok", []User{{ID: "u1"}})
	}))

	c, err := NewClient(srv.URL, t.TempDir())
	require.NoError(t, err)

	users, err := c.GetUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)

	srv.Close()

	users, err = c.GetUsers(context.Background())
	require.NoError(t, err, "cached body stands in for a network failure")
	require.Len(t, users, 1)
	require.Equal(t, "u1", users[0].ID)
}

func TestGetServesCacheOnServerFault(t *testing.T) {
	t.Parallel()
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			writeEnvelope(w, http.StatusInternalServerError, false, "boom", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "ok", []User{{ID: "u1"}})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, t.TempDir())
	require.NoError(t, err)

	_, err = c.GetUsers(context.Background())
	require.NoError(t, err)

	failing.Store(true)
	users, err := c.GetUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestGetNeverMasksAuthDenial(t *testing.T) {
	t.Parallel()
	var denied atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if denied.Load() {
			writeEnvelope(w, http.StatusUnauthorized, false, "session expired", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "ok", []User{{ID: "u1"}})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, t.TempDir())
	require.NoError(t, err)

	_, err = c.GetUsers(context.Background())
	require.NoError(t, err)

	denied.Store(true)
	_, err = c.GetUsers(context.Background())
	require.Error(t, err)
	require.True(t, IsAuthError(err), "denial must surface even with a warm cache")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "session expired", apiErr.Message)
}

func TestGetNeverMasksClientError(t *testing.T) {
	t.Parallel()
	var bad atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bad.Load() {
			writeEnvelope(w, http.StatusBadRequest, false, "malformed id", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "ok", map[string]string{"status": "pending"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, t.TempDir())
	require.NoError(t, err)

	_, err = c.ConnectionStatus(context.Background(), "a", "b")
	require.NoError(t, err)

	bad.Store(true)
	_, err = c.ConnectionStatus(context.Background(), "a", "b")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestPostNeverFallsBack(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "ok", Connection{UserID: "a", SponsorID: "b", Status: "pending"})
	}))

	c, err := NewClient(srv.URL, t.TempDir())
	require.NoError(t, err)

	conn, err := c.RequestConnection(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Equal(t, "pending", conn.Status)

	srv.Close()

	_, err = c.RequestConnection(context.Background(), "a", "b")
	require.Error(t, err, "writes fail loudly when the server is unreachable")
	require.False(t, IsAuthError(err))
}

func TestEnvelopeFailureWithoutHTTPError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, "not quite", nil)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "")
	require.NoError(t, err)

	err = c.Logout(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "not quite", apiErr.Message)
}

func TestNonJSONErrorBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "")
	require.NoError(t, err)

	_, err = c.GetProfile(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestBreakerShortCircuitsAfterTrip(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusOK, true, "ok", []User{{ID: "u1"}})
	}))

	c, err := NewClient(srv.URL, t.TempDir())
	require.NoError(t, err)

	_, err = c.GetUsers(context.Background())
	require.NoError(t, err)
	served := calls.Load()

	srv.Close()

	// first failure trips the breaker, the rest go straight to the cache
	for range 3 {
		users, err := c.GetUsers(context.Background())
		require.NoError(t, err)
		require.Len(t, users, 1)
	}
	require.Equal(t, served, calls.Load(), "no further requests reach the (closed) server")
}

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()
	cache, err := newFileCache(t.TempDir())
	require.NoError(t, err)

	_, _, ok := cache.get("/api/users")
	require.False(t, ok)

	cache.put("/api/users", []byte(`[{"id":"u1"}]`))
	body, storedAt, ok := cache.get("/api/users")
	require.True(t, ok)
	require.JSONEq(t, `[{"id":"u1"}]`, string(body))
	require.False(t, storedAt.IsZero())

	// keys do not collide
	_, _, ok = cache.get("/api/profile")
	require.False(t, ok)
}
