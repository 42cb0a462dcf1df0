// Package client is the REST client for the letter-game backend. It attaches
// the stored bearer credential to every request and transparently performs a
// single-flight refresh-and-retry when the access token has expired.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/YaroslavWork/letter-game-cli/internal/session"
	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

// Client is the letter-game API client.
type Client struct {
	baseURL    string
	store      *session.Store
	httpClient *http.Client
	log        zerolog.Logger

	refreshGroup  singleflight.Group
	onAuthExpired func()
}

// New creates a new API client. The store supplies and receives credentials;
// onAuthExpired fires after a failed or impossible refresh has cleared them
// (the TUI uses it to fall back to the login view). May be nil.
func New(baseURL string, store *session.Store, log zerolog.Logger, onAuthExpired func()) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:           log,
		onAuthExpired: onAuthExpired,
	}
}

// TokenPair is the credential pair issued by login and registration.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// GetMe returns the authenticated user's profile.
func (c *Client) GetMe(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.get(ctx, "/me", &u); err != nil {
		return nil, fmt.Errorf("client.GetMe: %w", err)
	}
	return &u, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	if err := c.doRequest(ctx, http.MethodPost, "/register/", body, nil); err != nil {
		return fmt.Errorf("client.Register: %w", err)
	}
	return nil
}

// Login authenticates and stores the issued credential pair.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	body := map[string]string{"username": username, "password": password}
	var pair TokenPair
	if err := c.doRequest(ctx, http.MethodPost, "/login/", body, &pair); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if err := c.store.SetTokens(pair.Access, pair.Refresh); err != nil {
		return nil, fmt.Errorf("client.Login: store tokens: %w", err)
	}
	return &pair, nil
}

// --- Rooms ---

// CreateRoom creates a room owned by the current user.
func (c *Client) CreateRoom(ctx context.Context, name string) (*domain.Room, error) {
	var room domain.Room
	if err := c.post(ctx, "/rooms/create/", map[string]string{"name": name}, &room); err != nil {
		return nil, fmt.Errorf("client.CreateRoom: %w", err)
	}
	return &room, nil
}

// JoinRoom joins an existing room by id.
func (c *Client) JoinRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	if err := c.post(ctx, "/rooms/join/", map[string]string{"room_id": roomID}, &room); err != nil {
		return nil, fmt.Errorf("client.JoinRoom: %w", err)
	}
	return &room, nil
}

// GetRoom fetches the authoritative room snapshot.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	if err := c.get(ctx, "/rooms/"+url.PathEscape(roomID)+"/", &room); err != nil {
		return nil, fmt.Errorf("client.GetRoom: %w", err)
	}
	return &room, nil
}

// LeaveRoom removes the current user from a room.
func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	if err := c.post(ctx, "/rooms/"+url.PathEscape(roomID)+"/leave/", nil, nil); err != nil {
		return fmt.Errorf("client.LeaveRoom: %w", err)
	}
	return nil
}

// DeleteRoom deletes a room. Host only.
func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/rooms/"+url.PathEscape(roomID)+"/delete/", nil, nil); err != nil {
		return fmt.Errorf("client.DeleteRoom: %w", err)
	}
	return nil
}

// RemovePlayer removes a player from a room. Host only.
func (c *Client) RemovePlayer(ctx context.Context, roomID, playerID string) error {
	path := "/rooms/" + url.PathEscape(roomID) + "/players/" + url.PathEscape(playerID) + "/delete/"
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("client.RemovePlayer: %w", err)
	}
	return nil
}

// --- Game session ---

// GetGameTypes returns the selectable answer categories.
func (c *Client) GetGameTypes(ctx context.Context) ([]domain.GameType, error) {
	var types []domain.GameType
	if err := c.get(ctx, "/game-types/", &types); err != nil {
		return nil, fmt.Errorf("client.GetGameTypes: %w", err)
	}
	return types, nil
}

// GetGameSession fetches a room's game session.
func (c *Client) GetGameSession(ctx context.Context, roomID string) (*domain.GameSession, error) {
	var gs domain.GameSession
	if err := c.get(ctx, "/rooms/"+url.PathEscape(roomID)+"/game-session/", &gs); err != nil {
		return nil, fmt.Errorf("client.GetGameSession: %w", err)
	}
	return &gs, nil
}

// UpdateGameSession saves the host's rule configuration.
func (c *Client) UpdateGameSession(ctx context.Context, roomID string, update domain.SessionUpdate) (*domain.GameSession, error) {
	var gs domain.GameSession
	path := "/rooms/" + url.PathEscape(roomID) + "/game-session/update/"
	if err := c.doRequest(ctx, http.MethodPut, path, update, &gs); err != nil {
		return nil, fmt.Errorf("client.UpdateGameSession: %w", err)
	}
	return &gs, nil
}

// StartGameSession starts the game. Host only.
func (c *Client) StartGameSession(ctx context.Context, roomID string) (*domain.GameSession, error) {
	var gs domain.GameSession
	if err := c.post(ctx, "/rooms/"+url.PathEscape(roomID)+"/game-session/start/", nil, &gs); err != nil {
		return nil, fmt.Errorf("client.StartGameSession: %w", err)
	}
	return &gs, nil
}

// SubmitAnswers submits the current round's answers. The backend freezes
// them on acceptance; a duplicate submit is rejected with a 4xx.
func (c *Client) SubmitAnswers(ctx context.Context, roomID string, answers map[string]string) error {
	body := map[string]any{"answers": answers}
	if err := c.post(ctx, "/rooms/"+url.PathEscape(roomID)+"/game-session/submit/", body, nil); err != nil {
		return fmt.Errorf("client.SubmitAnswers: %w", err)
	}
	return nil
}

// GetScores fetches the current round's authoritative scores. With
// includeTotals, cumulative totals across all rounds are included.
func (c *Client) GetScores(ctx context.Context, roomID string, includeTotals bool) ([]domain.PlayerScore, error) {
	params := url.Values{}
	params.Set("include_totals", strconv.FormatBool(includeTotals))
	var scores []domain.PlayerScore
	path := "/rooms/" + url.PathEscape(roomID) + "/game-session/scores/?" + params.Encode()
	if err := c.get(ctx, path, &scores); err != nil {
		return nil, fmt.Errorf("client.GetScores: %w", err)
	}
	return scores, nil
}

// AdvanceRound moves the session to the next round. Host only.
func (c *Client) AdvanceRound(ctx context.Context, roomID string) (*domain.GameSession, error) {
	var gs domain.GameSession
	if err := c.post(ctx, "/rooms/"+url.PathEscape(roomID)+"/game-session/advance-round/", nil, &gs); err != nil {
		return nil, fmt.Errorf("client.AdvanceRound: %w", err)
	}
	return &gs, nil
}

// ChannelURL builds the push channel URL for a room, carrying the current
// access token in the handshake query.
func (c *Client) ChannelURL(roomID string) string {
	access, _ := c.store.Tokens()
	ws := c.baseURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return ws + "/ws/room/" + url.PathEscape(roomID) + "/?token=" + url.QueryEscape(access)
}

// AccessToken returns the currently stored access credential.
func (c *Client) AccessToken() string {
	access, _ := c.store.Tokens()
	return access
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

// authExempt paths never trigger a token refresh: a 401 from them means the
// submitted credentials themselves are wrong.
func authExempt(path string) bool {
	return strings.HasPrefix(path, "/login/") ||
		strings.HasPrefix(path, "/register/") ||
		strings.HasPrefix(path, "/token/refresh/")
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		payload = data
	}

	access, _ := c.store.Tokens()
	err := c.doOnce(ctx, method, path, payload, access, out)
	if err == nil {
		return nil
	}

	// Expired access token: refresh once (single-flight across concurrent
	// callers) and retry the original request with the new credential.
	// 404 and every other status pass through unmodified.
	if IsStatus(err, http.StatusUnauthorized) && !authExempt(path) {
		newAccess, refreshErr := c.refreshAccess(ctx)
		if refreshErr != nil {
			return err
		}
		return c.doOnce(ctx, method, path, payload, newAccess, out)
	}
	return err
}

// doOnce performs a single HTTP exchange.
func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, access string, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil {
			if apiErr.Error != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
			}
			if apiErr.Detail != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Detail}
			}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// refreshAccess exchanges the stored refresh credential for a new access
// token. Concurrent 401s share one refresh call. If no refresh credential is
// stored, or the refresh call fails, both credentials are cleared (inside the
// shared call, so exactly once) and the auth-expired callback fires.
func (c *Client) refreshAccess(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		_, refresh := c.store.Tokens()
		if refresh == "" {
			c.expireAuth()
			return nil, fmt.Errorf("no refresh token stored")
		}

		var result struct {
			Access string `json:"access"`
		}
		body := map[string]string{"refresh": refresh}
		if err := c.doRequest(ctx, http.MethodPost, "/token/refresh/", body, &result); err != nil {
			c.expireAuth()
			return nil, fmt.Errorf("refresh token: %w", err)
		}
		if err := c.store.SetAccessToken(result.Access); err != nil {
			return nil, fmt.Errorf("store refreshed token: %w", err)
		}
		c.log.Debug().Msg("access token refreshed")
		return result.Access, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) expireAuth() {
	if err := c.store.ClearTokens(); err != nil {
		c.log.Error().Err(err).Msg("clear credentials after auth failure")
	}
	if c.onAuthExpired != nil {
		c.onAuthExpired()
	}
}
