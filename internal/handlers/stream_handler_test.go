package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/services"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/sessions/" + sessionID + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestStreamHandler_StreamsUntilSessionCloses(t *testing.T) {
	srv := newTestServer(t, stubGrader{})
	session := startSession(t, srv, "test-1")
	server := httptest.NewServer(srv.router)
	defer server.Close()

	conn := dialStream(t, server, session.SessionID)

	var snapshot services.Snapshot
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, session.SessionID, snapshot.SessionID)
	assert.False(t, snapshot.Closed)

	w := srv.do(t, http.MethodDelete, "/api/v1/sessions/"+session.SessionID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.True(t, snapshot.Closed)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStreamHandler_ClosedSessionEndsStreamImmediately(t *testing.T) {
	srv := newTestServer(t, stubGrader{})
	snapshot := startSession(t, srv, "test-1")
	server := httptest.NewServer(srv.router)
	defer server.Close()

	// closed but not yet dropped by the manager
	session, err := srv.sessions.Get(snapshot.SessionID)
	require.NoError(t, err)
	session.Close()
	_, err = session.Snapshot(context.Background())
	require.ErrorIs(t, err, services.ErrSessionClosed)

	conn := dialStream(t, server, snapshot.SessionID)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStreamHandler_UnknownSession(t *testing.T) {
	srv := newTestServer(t, stubGrader{})

	w := srv.do(t, http.MethodGet, "/api/v1/sessions/nope/stream", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
