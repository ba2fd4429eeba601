package routers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coderoom/internal/api"
	"coderoom/internal/config"
	"coderoom/internal/events"
	"coderoom/internal/models"
	"coderoom/internal/session"
	"coderoom/internal/utils"
)

func newTestRouter(t *testing.T, staticDir string) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Port:            "4000",
		AllowedOrigins:  []string{"http://app.test"},
		StaticDir:       staticDir,
		DefaultLanguage: models.LangC,
		MaxMessageSize:  1 << 16,
		SendBuffer:      16,
		PingInterval:    time.Minute,
		WriteTimeout:    time.Second,
	}
	logger := utils.NewNopLogger()
	h := api.NewHandlers(logger, cfg, session.NewHub(cfg.DefaultLanguage), events.NewNopPublisher())
	server := httptest.NewServer(New(logger, cfg, h))
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRoutesRegistered(t *testing.T) {
	server := newTestRouter(t, "")

	tests := []struct {
		path   string
		status int
	}{
		{"/healthz", http.StatusOK},
		{"/api/v1/healthz", http.StatusOK},
		{"/api/v1/languages", http.StatusOK},
		{"/api/v1/rooms", http.StatusOK},
		{"/api/v1/rooms/missing", http.StatusNotFound},
		{"/metrics", http.StatusOK},
		{"/ws", http.StatusBadRequest},
		{"/not-a-route", http.StatusNotFound},
	}
	for _, tt := range tests {
		status, _ := get(t, server.URL+tt.path)
		assert.Equal(t, tt.status, status, "GET %s", tt.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := newTestRouter(t, "")

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/v1/rooms", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketThroughMiddleware(t *testing.T) {
	server := newTestRouter(t, "")
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	header := http.Header{}
	header.Set("Origin", "http://evil.test")
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Fatalf("expected disallowed origin to be rejected")
	}

	header.Set("Origin", "http://app.test")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(models.WSFrame{Type: models.EventJoinRoom, Data: models.JoinRoom{RoomID: "r", Username: "u"}}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame models.WSFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, models.EventSyncState, frame.Type)

	status, body := get(t, server.URL+"/api/v1/rooms/r")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"roomId":"r"`)
}

func TestStaticBundleWithFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "static"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "static", "main.js"), []byte("console.log(1)"), 0o644))

	server := newTestRouter(t, dir)

	status, body := get(t, server.URL+"/static/main.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "console.log(1)", body)

	status, body = get(t, server.URL+"/editor/room42")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<html>app</html>", body)

	status, body = get(t, server.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<html>app</html>", body)

	status, _ = get(t, server.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
}
