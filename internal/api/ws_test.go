package api

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-assessment-server/internal/domain"
)

func TestStatusHub_PublishToSubscribers(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	hub := NewStatusHub(log)

	events, cancel := hub.Subscribe("session-1")
	defer cancel()

	hub.Publish(domain.SessionSnapshot{SessionID: "session-1", Status: domain.StatusSubmitting})
	hub.Publish(domain.SessionSnapshot{SessionID: "session-2", Status: domain.StatusResulted})

	select {
	case snap := <-events:
		assert.Equal(t, "session-1", snap.SessionID)
		assert.Equal(t, domain.StatusSubmitting, snap.Status)
	case <-time.After(time.Second):
		t.Fatal("expected a published event")
	}

	select {
	case snap := <-events:
		t.Fatalf("unexpected event for session %s", snap.SessionID)
	default:
	}
}

func TestStatusHub_CancelRemovesSubscriber(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	hub := NewStatusHub(log)

	events, cancel := hub.Subscribe("session-1")
	cancel()

	hub.Publish(domain.SessionSnapshot{SessionID: "session-1"})

	select {
	case <-events:
		t.Fatal("cancelled subscriber should not receive events")
	default:
	}
}

func TestSessionEventsWebsocket(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.createSession(t)
	env.fillDiabetesInputs(t, sessionID)

	wsURL := strings.Replace(env.server.URL, "http://", "ws://", 1) +
		"/api/v1/sessions/" + sessionID + "/events"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// First frame is the current snapshot.
	var initial domain.SessionSnapshot
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, sessionID, initial.SessionID)
	assert.Equal(t, domain.StatusEditing, initial.Status)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The submit leg emits Validating, Submitting, then Resulted.
	statuses := map[domain.SessionStatus]bool{}
	deadline := time.Now().Add(2 * time.Second)
	for !statuses[domain.StatusResulted] && time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var snap domain.SessionSnapshot
		require.NoError(t, conn.ReadJSON(&snap))
		statuses[snap.Status] = true
	}

	assert.True(t, statuses[domain.StatusSubmitting])
	assert.True(t, statuses[domain.StatusResulted])
}
