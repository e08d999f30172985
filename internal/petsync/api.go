package petsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"deskpet-sync/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// VisitRequest carries one visit write. FromPetID is left empty for
// ordinary sends; the hangout reverse leg sets it to the friend's id.
type VisitRequest struct {
	FromPetID string `json:"from_pet_id,omitempty"`
	ToPetID   string `json:"to_pet_id"`
	Message   string `json:"message"`
	Name      string `json:"name"`
	Breed     string `json:"breed"`
	Color     string `json:"color"`
}

// API is the backing-store surface the engine components talk to.
// Split out so the sync components are testable without a server.
type API interface {
	Register(ctx context.Context, name, breed, color string) (models.Pet, string, error)
	Rename(ctx context.Context, name string) error
	UpdatePresence(ctx context.Context, online bool, name, breed, color string) error
	AddFriend(ctx context.Context, code string) (models.Pet, error)
	AcceptFriend(ctx context.Context, peerID string) error
	RemoveFriend(ctx context.Context, peerID string) error
	ListFriends(ctx context.Context) ([]models.Friend, error)
	SendVisit(ctx context.Context, req VisitRequest) error
	LatestVisit(ctx context.Context) (*models.Visit, error)
	ConsumeVisit(ctx context.Context, id string) error
	Subscribe(ctx context.Context) (<-chan models.Visit, error)
}

// Client is the HTTP implementation of API
type Client struct {
	baseURL   string
	http      *http.Client
	token     atomic.Value // string
	connected atomic.Bool
}

// NewClient creates an API client. Every request carries the bounded
// timeout; a stalled backend call must not block a component's next tick.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	c.token.Store("")
	return c
}

// SetToken installs the session token obtained at registration
func (c *Client) SetToken(token string) {
	c.token.Store(token)
}

// Connected reports whether the last backend request succeeded. The UI
// shows this as a persistent "not connected" state instead of
// per-operation errors.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

type registerResponse struct {
	Pet   models.Pet `json:"pet"`
	Token string     `json:"token"`
}

// Register creates the pet identity on the backend
func (c *Client) Register(ctx context.Context, name, breed, color string) (models.Pet, string, error) {
	body := map[string]string{"name": name, "breed": breed, "color": color}
	var resp registerResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/pets", body, &resp); err != nil {
		return models.Pet{}, "", err
	}
	return resp.Pet, resp.Token, nil
}

// Rename updates the pet's display name
func (c *Client) Rename(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/pets/me", map[string]string{"name": name}, nil)
}

// UpdatePresence asserts the caller's presence
func (c *Client) UpdatePresence(ctx context.Context, online bool, name, breed, color string) error {
	body := map[string]interface{}{
		"online": online,
		"name":   name,
		"breed":  breed,
		"color":  color,
	}
	return c.do(ctx, http.MethodPut, "/api/v1/presence", body, nil)
}

// AddFriend inserts the caller's edge toward the pet owning the code
func (c *Client) AddFriend(ctx context.Context, code string) (models.Pet, error) {
	var peer models.Pet
	if err := c.do(ctx, http.MethodPost, "/api/v1/friends", map[string]string{"code": code}, &peer); err != nil {
		return models.Pet{}, err
	}
	return peer, nil
}

// AcceptFriend inserts the caller's edge toward a known peer id
func (c *Client) AcceptFriend(ctx context.Context, peerID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/friends/"+url.PathEscape(peerID)+"/accept", nil, nil)
}

// RemoveFriend deletes the caller's own edge
func (c *Client) RemoveFriend(ctx context.Context, peerID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/friends/"+url.PathEscape(peerID), nil, nil)
}

// ListFriends fetches the edge union
func (c *Client) ListFriends(ctx context.Context) ([]models.Friend, error) {
	var friends []models.Friend
	if err := c.do(ctx, http.MethodGet, "/api/v1/friends", nil, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// SendVisit inserts a visit
func (c *Client) SendVisit(ctx context.Context, req VisitRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/visits", req, nil)
}

// LatestVisit polls the single most recent unconsumed visit, nil when none
func (c *Client) LatestVisit(ctx context.Context) (*models.Visit, error) {
	var visit models.Visit
	err := c.do(ctx, http.MethodGet, "/api/v1/visits/latest", nil, &visit)
	if err != nil {
		return nil, err
	}
	if visit.ID == "" {
		return nil, nil
	}
	return &visit, nil
}

// ConsumeVisit marks a visit consumed; repeat marking is a no-op server-side
func (c *Client) ConsumeVisit(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/visits/"+url.PathEscape(id)+"/consume", nil, nil)
}

type pushMessage struct {
	Type  string        `json:"type"`
	Visit *models.Visit `json:"visit,omitempty"`
}

// Subscribe opens the push channel. The returned channel closes when
// the connection drops or ctx is cancelled; the caller owns reconnects.
func (c *Client) Subscribe(ctx context.Context) (<-chan models.Visit, error) {
	wsURL, err := c.websocketURL()
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		c.connected.Store(false)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	c.connected.Store(true)

	visits := make(chan models.Visit)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(visits)
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg pushMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Error().Err(err).Msg("Failed to parse push message")
				continue
			}
			if msg.Type != "visit" || msg.Visit == nil {
				continue
			}
			select {
			case visits <- *msg.Visit:
			case <-ctx.Done():
				return
			}
		}
	}()

	return visits, nil
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {c.token.Load().(string)}}.Encode()
	return u.String(), nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token.Load().(string); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.connected.Store(false)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.connected.Store(false)
		return fmt.Errorf("%w: server returned %d", ErrBackendUnavailable, resp.StatusCode)
	}
	c.connected.Store(true)

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, readError(resp.Body))
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, readError(resp.Body))
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("request failed (%d): %s", resp.StatusCode, readError(resp.Body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func readError(r io.Reader) string {
	var e errorResponse
	if err := json.NewDecoder(r).Decode(&e); err != nil || e.Error == "" {
		return "unknown error"
	}
	return e.Error
}
