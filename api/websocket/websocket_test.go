package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictive-scaler/pkg/config"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startHub(t *testing.T, cfg *config.WebSocketConfig) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(cfg)
	go hub.Run()

	r := gin.New()
	r.GET("/ws", ServeWebSocket(hub))
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gws.Conn) OutgoingMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg OutgoingMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestNewWebSocketSettings(t *testing.T) {
	s := NewWebSocketSettings(nil)
	assert.Equal(t, 100, s.MaxConnections)
	assert.Less(t, s.PingInterval, s.PongTimeout)

	s = NewWebSocketSettings(&config.WebSocketConfig{PongTimeout: 10 * time.Second, ClientBuffer: 4})
	assert.Equal(t, 9*time.Second, s.PingInterval)
	assert.Equal(t, 4, s.ClientBuffer)
}

func TestFromEvent(t *testing.T) {
	ev := models.NewEvent(models.EventTypeScalingCompleted, "scaler", "done").WithTraceID("t-1")
	msg := FromEvent(ev)
	require.NotNil(t, msg)
	assert.Equal(t, MessageTypeScalingEvent, msg.Type)
	assert.Equal(t, "scaling_completed", msg.Event)
	assert.Equal(t, "t-1", msg.TraceID)

	assert.Nil(t, FromEvent(models.NewEvent("unknown", "x", "y")))
}

func TestBridgeForwardsEvents(t *testing.T) {
	hub, srv := startHub(t, nil)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	events := make(chan *models.Event, 4)
	bridge := NewEventBridge(hub, events)
	bridge.Start()
	defer bridge.Stop()

	events <- models.NewEvent(models.EventTypePredictionsMade, "decision", "2 predictions")

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypePredictions, msg.Type)
	assert.Equal(t, "2 predictions", msg.Message)
}

func TestClientFilter(t *testing.T) {
	hub, srv := startHub(t, nil)
	conn := dial(t, srv, "?events=model_trained")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(models.EventTypeSampleCollected, (&OutgoingMessage{Type: MessageTypeSample}).JSON())
	hub.Broadcast(models.EventTypeModelTrained, (&OutgoingMessage{Type: MessageTypeModel}).JSON())

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeModel, msg.Type)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: "subscribe", Events: []string{"error"}}))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscription, msg.Type)
	assert.Equal(t, "subscribed", msg.Message)

	hub.Broadcast(models.EventTypeModelTrained, (&OutgoingMessage{Type: MessageTypeModel}).JSON())
	hub.Broadcast(models.EventTypeError, (&OutgoingMessage{Type: MessageTypeError}).JSON())
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)
}

func TestMaxConnections(t *testing.T) {
	hub, srv := startHub(t, &config.WebSocketConfig{MaxConnections: 1})
	dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestHubStopDisconnects(t *testing.T) {
	hub, srv := startHub(t, nil)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Stop()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
