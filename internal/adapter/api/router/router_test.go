package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flatmate/internal/adapter/api"
	"flatmate/internal/adapter/api/handler"
	"flatmate/internal/adapter/api/middleware"
	"flatmate/internal/adapter/repository/memory"
	"flatmate/internal/domain/entity"
	"flatmate/internal/domain/repository"
	"flatmate/internal/infrastructure/cache"
	"flatmate/internal/infrastructure/jwtauth"
	"flatmate/internal/infrastructure/metrics"
	"flatmate/internal/infrastructure/ratelimit"
	ws "flatmate/internal/infrastructure/websocket"
	"flatmate/internal/usecase"
)

const testSecret = "test-secret"

type testServer struct {
	t        *testing.T
	srv      *httptest.Server
	verifier *jwtauth.Verifier
	users    repository.UserRepository
	listings repository.ListingRepository
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	users := memory.NewUserRepository()
	listings := memory.NewListingRepository()
	interests := memory.NewInterestRepository()
	messages := memory.NewMessageRepository()

	directory := cache.NewUserDirectory(users, nil, time.Minute, zap.NewNop())
	interestUC := usecase.NewInterestUseCase(interests, listings, users, nil)
	matchUC := usecase.NewMatchUseCase(listings, interests, users, nil)
	conversationUC := usecase.NewConversationUseCase(messages, interests, directory, nil, 0)

	metricsManager := metrics.NewMetricsManager("flatmate_test")
	limiter := ratelimit.NewRateLimiter()
	wsManager := ws.NewManager(conversationUC, ws.Options{Limiter: limiter, Metrics: metricsManager})

	ctx, cancel := context.WithCancel(context.Background())
	wsManager.Start(ctx)

	verifier := jwtauth.NewVerifier(testSecret)
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.Use(metricsManager.Middleware())

	handlers := handler.Setup(interestUC, matchUC, conversationUC, wsManager, authMiddleware, []string{"*"})
	Setup(e, handlers, authMiddleware, limiter, metricsManager.Handler())

	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return &testServer{t: t, srv: srv, verifier: verifier, users: users, listings: listings}
}

func (s *testServer) token(userID string) string {
	token, err := s.verifier.Sign(userID, time.Hour)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) seedUser(id, name string) {
	require.NoError(s.t, s.users.Create(context.Background(), &entity.User{
		ID:            id,
		Name:          name,
		Age:           25,
		City:          "Bengaluru",
		ContactNumber: "+91-" + id,
	}))
}

func (s *testServer) seedListing(id, creator string) {
	require.NoError(s.t, s.listings.Create(context.Background(), &entity.Listing{
		ID:          id,
		Creator:     creator,
		ListingType: entity.ListingTypeOwner,
		Address:     "12 MG Road",
		Rent:        15000,
	}))
}

// do sends a request as userID, or unauthenticated when userID is empty.
func (s *testServer) do(method, path, userID string, body interface{}) (int, envelope) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(userID))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func (s *testServer) dial(userID string) *gorillaws.Conn {
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws?token=" + s.token(userID)
	conn, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(s.t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	s.t.Cleanup(func() { conn.Close() })
	return conn
}

type wsEvent struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	MatchID string          `json:"match_id"`
}

func sendEvent(t *testing.T, conn *gorillaws.Conn, typ string, data interface{}) {
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": typ, "data": data}))
}

// await reads events until one of type typ arrives.
func await(t *testing.T, conn *gorillaws.Conn, typ string) wsEvent {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev wsEvent
		require.NoError(t, conn.ReadJSON(&ev), "waiting for %s", typ)
		if ev.Type == typ {
			return ev
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Server is running", body["status"])
	assert.EqualValues(t, 0, body["connections"])

	metricsResp, err := http.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	raw, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "flatmate_test_http_requests_total")
}

func TestAuthenticationRequired(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(http.MethodGet, "/v1/interest/incoming", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/v1/matches", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	forged, err := jwtauth.NewVerifier("other-secret").Sign("alice", time.Hour)
	require.NoError(t, err)
	req, err = http.NewRequest(http.MethodGet, s.srv.URL+"/v1/matches", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInterestLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.seedUser("alice", "Alice")
	s.seedUser("bob", "Bob")
	s.seedListing("L1", "alice")

	status, env := s.do(http.MethodPost, "/v1/interest", "bob", map[string]string{"listing_id": "L1"})
	require.Equal(t, http.StatusCreated, status)
	var created entity.InterestView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, entity.InterestStatusPending, created.Status)
	assert.Equal(t, "Bob", created.SenderProfile.Name)

	status, env = s.do(http.MethodPost, "/v1/interest", "bob", map[string]string{"listing_id": "L1"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Request already sent", env.Error.Message)

	status, env = s.do(http.MethodPost, "/v1/interest", "bob", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	status, _ = s.do(http.MethodPost, "/v1/interest", "bob", map[string]string{"listing_id": "missing"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(http.MethodPost, "/v1/interest", "alice", map[string]string{"listing_id": "L1"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(http.MethodGet, "/v1/interest/counts", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"pending_incoming":1}`, string(env.Data))

	status, env = s.do(http.MethodGet, "/v1/interest/incoming", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	var incoming []entity.InterestView
	require.NoError(t, json.Unmarshal(env.Data, &incoming))
	require.Len(t, incoming, 1)
	assert.Empty(t, incoming[0].Sender.ContactNumber)

	status, _ = s.do(http.MethodGet, "/v1/interest/"+created.ID, "carol", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(http.MethodPost, "/v1/interest/"+created.ID+"/status", "bob", map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(http.MethodPost, "/v1/interest/"+created.ID+"/status", "alice", map[string]string{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(http.MethodPost, "/v1/interest/unknown/status", "alice", map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusNotFound, status)

	status, env = s.do(http.MethodPost, "/v1/interest/"+created.ID+"/status", "alice", map[string]string{"status": "accepted"})
	require.Equal(t, http.StatusOK, status)
	var accepted entity.InterestView
	require.NoError(t, json.Unmarshal(env.Data, &accepted))
	assert.Equal(t, entity.InterestStatusAccepted, accepted.Status)

	status, env = s.do(http.MethodGet, "/v1/interest/status/L1", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	var listingStatus entity.ListingInterestStatus
	require.NoError(t, json.Unmarshal(env.Data, &listingStatus))
	assert.True(t, listingStatus.Sent)
	assert.Equal(t, entity.InterestStatusAccepted, listingStatus.Status)
}

func TestLikesProduceMatch(t *testing.T) {
	s := newTestServer(t)
	s.seedUser("alice", "Alice")
	s.seedUser("bob", "Bob")
	s.seedListing("L1", "alice")
	s.seedListing("L2", "bob")

	status, env := s.do(http.MethodPost, "/v1/listing/L2/like", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"liked":true,"likes_count":1}`, string(env.Data))

	status, _ = s.do(http.MethodPost, "/v1/listing/L1/like", "bob", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(http.MethodPost, "/v1/listing/nope/like", "bob", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = s.do(http.MethodGet, "/v1/matches", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	var matches []entity.Match
	require.NoError(t, json.Unmarshal(env.Data, &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "bob", matches[0].MatchedUser.ID)
	assert.Equal(t, "+91-bob", matches[0].MatchedUser.ContactNumber)
	assert.NotEmpty(t, matches[0].ChatID)

	status, _ = s.do(http.MethodGet, "/v1/conversation/"+matches[0].ChatID, "bob", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestLiveConversation(t *testing.T) {
	s := newTestServer(t)
	s.seedUser("alice", "Alice")
	s.seedUser("bob", "Bob")
	s.seedListing("L1", "alice")

	_, env := s.do(http.MethodPost, "/v1/interest", "bob", map[string]string{"listing_id": "L1"})
	var request entity.InterestView
	require.NoError(t, json.Unmarshal(env.Data, &request))
	chatID := request.ID

	aliceConn := s.dial("alice")
	bobConn := s.dial("bob")

	sendEvent(t, aliceConn, ws.EventJoinRoom, map[string]string{"match_id": chatID})
	await(t, aliceConn, ws.EventRoomJoined)
	sendEvent(t, bobConn, ws.EventJoinRoom, map[string]string{"match_id": chatID})
	await(t, bobConn, ws.EventRoomJoined)

	sendEvent(t, aliceConn, ws.EventSendMessage, map[string]string{"match_id": chatID, "content": "hello"})

	for _, conn := range []*gorillaws.Conn{aliceConn, bobConn} {
		ev := await(t, conn, ws.EventMessageCreated)
		assert.Equal(t, chatID, ev.MatchID)
		var msg entity.MessageView
		require.NoError(t, json.Unmarshal(ev.Data, &msg))
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, "alice", msg.SenderID)
		assert.Equal(t, "Alice", msg.SenderName)
	}

	status, env := s.do(http.MethodPost, "/v1/conversation/"+chatID, "bob", map[string]string{"content": "hi back"})
	require.Equal(t, http.StatusCreated, status)
	ev := await(t, aliceConn, ws.EventMessageCreated)
	assert.Contains(t, string(ev.Data), "hi back")

	status, env = s.do(http.MethodGet, "/v1/conversation/"+chatID+"/unread", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":1}`, string(env.Data))

	status, env = s.do(http.MethodGet, "/v1/conversation/"+chatID, "bob", nil)
	require.Equal(t, http.StatusOK, status)
	var history []entity.MessageView
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
	assert.Contains(t, history[0].ReadBy, "bob")
	assert.Equal(t, "hi back", history[1].Content)

	status, _ = s.do(http.MethodGet, "/v1/conversation/"+chatID, "carol", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(http.MethodGet, "/v1/conversation/unknown", "bob", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(http.MethodPost, "/v1/conversation/"+chatID, "bob", map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWebSocketRejectsStranger(t *testing.T) {
	s := newTestServer(t)
	s.seedListing("L1", "alice")

	_, env := s.do(http.MethodPost, "/v1/interest", "bob", map[string]string{"listing_id": "L1"})
	var request entity.InterestView
	require.NoError(t, json.Unmarshal(env.Data, &request))

	conn := s.dial("carol")
	sendEvent(t, conn, ws.EventJoinRoom, map[string]string{"match_id": request.ID})
	ev := await(t, conn, ws.EventError)

	var data ws.ErrorData
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	assert.Equal(t, ws.EventJoinRoom, data.Event)
	assert.Equal(t, "You are not a participant of this conversation", data.Message)

	sendEvent(t, conn, ws.EventPing, nil)
	await(t, conn, ws.EventPong)
}

func TestWebSocketHandshakeRequiresToken(t *testing.T) {
	s := newTestServer(t)
	base := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"

	_, resp, err := gorillaws.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = gorillaws.DefaultDialer.Dial(base+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	protocol := "auth." + s.token("alice")
	dialer := *gorillaws.DefaultDialer
	dialer.Subprotocols = []string{protocol}
	conn, resp, err := dialer.Dial(base, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, protocol, resp.Header.Get("Sec-Websocket-Protocol"))
}
