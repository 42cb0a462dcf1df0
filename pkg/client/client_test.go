package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaroslavWork/letter-game-cli/internal/session"
)

func newTestStore(t *testing.T, access, refresh string) *session.Store {
	t.Helper()
	store, err := session.Open(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.NoError(t, store.SetTokens(access, refresh))
	return store
}

func newTestClient(t *testing.T, srv *httptest.Server, store *session.Store, onExpired func()) *Client {
	t.Helper()
	return New(srv.URL, store, zerolog.Nop(), onExpired)
}

func TestGetRoomSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "room-1", "name": "friday"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv, newTestStore(t, "acc-1", "ref-1"), nil)
	room, err := c.GetRoom(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, "room-1", room.ID)
	assert.Equal(t, "Bearer acc-1", gotAuth)
}

func TestRefreshSingleFlightWithConcurrent401s(t *testing.T) {
	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token/refresh/":
			refreshCalls.Add(1)
			// Hold the refresh open so both 401s pile onto the same flight.
			time.Sleep(100 * time.Millisecond)
			_ = json.NewEncoder(w).Encode(map[string]string{"access": "acc-new"}) //nolint:errcheck
		default:
			if r.Header.Get("Authorization") != "Bearer acc-new" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "room-1"}) //nolint:errcheck
		}
	}))
	defer srv.Close()

	store := newTestStore(t, "acc-stale", "ref-1")
	c := newTestClient(t, srv, store, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetRoom(context.Background(), "room-1")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), refreshCalls.Load(), "concurrent 401s must share one refresh")

	access, refresh := store.Tokens()
	assert.Equal(t, "acc-new", access)
	assert.Equal(t, "ref-1", refresh, "refresh credential must survive")
}

func TestRefreshFailureClearsCredentialsOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token/refresh/":
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	var expiredCalls atomic.Int32
	store := newTestStore(t, "acc-stale", "ref-dead")
	c := newTestClient(t, srv, store, func() { expiredCalls.Add(1) })

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetRoom(context.Background(), "room-1")
		}(i)
	}
	wg.Wait()

	// Both original calls ultimately fail with the original 401.
	assert.True(t, IsStatus(errs[0], http.StatusUnauthorized))
	assert.True(t, IsStatus(errs[1], http.StatusUnauthorized))

	access, refresh := store.Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	assert.Equal(t, int32(1), expiredCalls.Load(), "auth-expired must fire exactly once")
}

func TestMissingRefreshTokenForcesLogout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var expired bool
	store := newTestStore(t, "acc-stale", "")
	c := newTestClient(t, srv, store, func() { expired = true })

	_, err := c.GetRoom(context.Background(), "room-1")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.True(t, expired)
}

func Test404IsNeverTreatedAsAuthFailure(t *testing.T) {
	var refreshCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/refresh/" {
			refreshCalled = true
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "room not found"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv, newTestStore(t, "acc-1", "ref-1"), nil)
	_, err := c.GetRoom(context.Background(), "nope")
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.False(t, refreshCalled, "404 must pass through without a refresh")
}

func TestLoginIsExemptFromRefresh(t *testing.T) {
	var refreshCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/refresh/" {
			refreshCalled = true
		}
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "bad credentials"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv, newTestStore(t, "", "ref-1"), nil)
	_, err := c.Login(context.Background(), "alice", "wrong")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.False(t, refreshCalled, "401 from /login/ must not trigger a refresh")
	assert.Equal(t, "bad credentials", UserMessage(err, "fallback"))
}

func TestLoginStoresIssuedTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "a1", "refresh": "r1"}) //nolint:errcheck
	}))
	defer srv.Close()

	store := newTestStore(t, "", "")
	c := newTestClient(t, srv, store, nil)
	pair, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a1", pair.Access)

	access, refresh := store.Tokens()
	assert.Equal(t, "a1", access)
	assert.Equal(t, "r1", refresh)
}

func TestSubmitAnswersSurfacesBackendReject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "answers already submitted for this round"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv, newTestStore(t, "acc-1", "ref-1"), nil)
	err := c.SubmitAnswers(context.Background(), "room-1", map[string]string{"country": "Poland"})
	require.Error(t, err)
	assert.Equal(t, "answers already submitted for this round", UserMessage(err, "submit failed"))
}

func TestUserMessageFallbackOn5xx(t *testing.T) {
	err := &HTTPError{StatusCode: 502, Message: "upstream exploded"}
	assert.Equal(t, "something went wrong, try again", UserMessage(err, "something went wrong, try again"))
}

func TestChannelURL(t *testing.T) {
	store := newTestStore(t, "tok en", "r")
	c := New("https://api.example.com", store, zerolog.Nop(), nil)
	got := c.ChannelURL("room-9")
	assert.Equal(t, "wss://api.example.com/ws/room/room-9/?token=tok+en", got)
}
