package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kb "keysynth/input"
	"keysynth/internal/clients"
	in "keysynth/internal/input"
	t "keysynth/internal/types"
)

type fakeKeyboard struct {
	mu    sync.Mutex
	typed []string
	err   error
}

func (f *fakeKeyboard) PressKey(uint16) error { return f.err }
func (f *fakeKeyboard) TypeString(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed = append(f.typed, s)
	return f.err
}
func (f *fakeKeyboard) SendShiftEnter() error { return f.err }
func (f *fakeKeyboard) KeyDown(string) error { return f.err }
func (f *fakeKeyboard) KeyUp(string) error { return f.err }
func (f *fakeKeyboard) Tap(string, ...string) error { return f.err }
func (f *fakeKeyboard) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.typed...)
}

func newTestServer(tt *testing.T, k *fakeKeyboard) (*Server, *httptest.Server) {
	s := New(Config{
		Manager:    clients.NewManager(),
		Dispatcher: in.NewDispatcher(k, 0, nil),
	})
	ts := httptest.NewServer(s.Handler())
	tt.Cleanup(ts.Close)
	return s, ts
}

func wsURL(ts *httptest.Server, clientID string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?clientId=" + clientID
}

func TestHealthz(tt *testing.T) {
	_, ts := newTestServer(tt, &fakeKeyboard{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(tt, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(tt, http.StatusOK, resp.StatusCode)
	assert.Equal(tt, "ok", string(body))
}

func TestPostEvent(tt *testing.T) {
	k := &fakeKeyboard{}
	_, ts := newTestServer(tt, k)

	tests := []struct {
		body   string
		status int
	}{
		{`{"type":"type","text":"hello"}`, http.StatusOK},
		{`{"type":"mousemove"}`, http.StatusBadRequest},
		{`{"type":"keydown","key":"Hyper"}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
	}
	for _, test := range tests {
		resp, err := http.Post(ts.URL+"/api/events", "application/json", strings.NewReader(test.body))
		require.NoError(tt, err)
		resp.Body.Close()
		assert.Equal(tt, test.status, resp.StatusCode, test.body)
	}
	assert.Equal(tt, []string{"hello"}, k.snapshot())

	resp, err := http.Get(ts.URL + "/api/events")
	require.NoError(tt, err)
	resp.Body.Close()
	assert.Equal(tt, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPostEventInjectionFailure(tt *testing.T) {
	_, ts := newTestServer(tt, &fakeKeyboard{err: kb.ErrInjectFailed})

	resp, err := http.Post(ts.URL+"/api/events", "application/json", strings.NewReader(`{"type":"shift_enter"}`))
	require.NoError(tt, err)
	resp.Body.Close()
	assert.Equal(tt, http.StatusInternalServerError, resp.StatusCode)
}

func TestWebsocketControl(tt *testing.T) {
	k := &fakeKeyboard{}
	s, ts := newTestServer(tt, k)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "c1"), nil)
	require.NoError(tt, err)
	defer conn.Close()

	require.NoError(tt, conn.WriteJSON(t.Event{Type: t.EventType, Text: "abc"}))
	var reply t.Reply
	require.NoError(tt, conn.ReadJSON(&reply))
	assert.True(tt, reply.OK)
	assert.Empty(tt, reply.Error)

	require.NoError(tt, conn.WriteJSON(t.Event{Type: "bogus"}))
	reply = t.Reply{}
	require.NoError(tt, conn.ReadJSON(&reply))
	assert.False(tt, reply.OK)
	assert.Contains(tt, reply.Error, "unknown event type")

	require.NoError(tt, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	reply = t.Reply{}
	require.NoError(tt, conn.ReadJSON(&reply))
	assert.False(tt, reply.OK)

	assert.Equal(tt, []string{"abc"}, k.snapshot())
	assert.Equal(tt, 1, s.cfg.Manager.Count())
}

func TestWebsocketReplacesControl(tt *testing.T) {
	s, ts := newTestServer(tt, &fakeKeyboard{})

	first, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "same"), nil)
	require.NoError(tt, err)
	defer first.Close()

	second, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "same"), nil)
	require.NoError(tt, err)
	defer second.Close()

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = first.ReadMessage()
	require.Error(tt, err)
	var netErr net.Error
	assert.False(tt, errors.As(err, &netErr) && netErr.Timeout(), "first connection should be closed, not timed out")

	second.Close()
	assert.Eventually(tt, func() bool { return s.cfg.Manager.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRunStopsOnCancel(tt *testing.T) {
	s := New(Config{
		Addr:       "127.0.0.1:0",
		Dispatcher: in.NewDispatcher(&fakeKeyboard{}, 0, nil),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(tt, err)
	case <-time.After(3 * time.Second):
		tt.Fatal("Run did not return after cancel")
	}
}

func TestRunReturnsListenError(tt *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(tt, err)
	defer ln.Close()

	s := New(Config{
		Addr:       ln.Addr().String(),
		Dispatcher: in.NewDispatcher(&fakeKeyboard{}, 0, nil),
	})
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(tt, err)
	case <-time.After(3 * time.Second):
		tt.Fatal("Run did not return on listen failure")
	}
}
