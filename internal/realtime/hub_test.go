package realtime

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/context-subtitles/relay/config"
)

const testTimeout = 2 * time.Second

func newTestServer(t *testing.T, maxConns int) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(zap.NewNop(), maxConns)
	cfg := config.RealtimeConfig{
		MaxConnections: maxConns,
		PingInterval:   time.Second,
		PongWait:       5 * time.Second,
	}
	router := gin.New()
	router.GET("/ws", ServeWs(hub, zap.NewNop(), cfg))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, role string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if role != "" {
		url += "?role=" + role
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func captionPayload(words ...string) []byte {
	ws := make([]CaptionWord, len(words))
	for i, w := range words {
		ws[i] = CaptionWord{ID: fmt.Sprintf("w%d", i), Text: " " + w, T0: float64(i), Conf: 0.9}
	}
	raw, _ := json.Marshal(Envelope{Type: TypeCaption, SegmentID: "s1", Words: ws})
	return raw
}

func readWithDeadline(t *testing.T, conn *websocket.Conn) ([]byte, error) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(testTimeout))
	_, raw, err := conn.ReadMessage()
	return raw, err
}

func TestBroadcastReachesAllViewers(t *testing.T) {
	hub, srv := newTestServer(t, 50)

	presenter := dial(t, srv, "presenter")
	viewers := make([]*websocket.Conn, 3)
	for i := range viewers {
		viewers[i] = dial(t, srv, "")
	}
	require.Eventually(t, func() bool { return hub.AudienceCount() == 3 }, testTimeout, 10*time.Millisecond)

	payload := captionPayload("hello", "world")
	require.NoError(t, presenter.WriteMessage(websocket.TextMessage, payload))

	for i, v := range viewers {
		raw, err := readWithDeadline(t, v)
		require.NoError(t, err, "viewer %d did not receive the caption", i)
		assert.JSONEq(t, string(payload), string(raw), "caption must be relayed verbatim")
	}
}

func TestBroadcastIsolatesFailedViewers(t *testing.T) {
	hub, srv := newTestServer(t, 50)

	presenter := dial(t, srv, "presenter")
	dead := dial(t, srv, "")
	alive := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.AudienceCount() == 2 }, testTimeout, 10*time.Millisecond)

	require.NoError(t, dead.Close())
	require.Eventually(t, func() bool { return hub.AudienceCount() == 1 }, testTimeout, 10*time.Millisecond)

	payload := captionPayload("still", "here")
	require.NoError(t, presenter.WriteMessage(websocket.TextMessage, payload))

	raw, err := readWithDeadline(t, alive)
	require.NoError(t, err, "a failed viewer must not block delivery to the rest")
	assert.JSONEq(t, string(payload), string(raw))
}

func TestBroadcastPreservesOrder(t *testing.T) {
	hub, srv := newTestServer(t, 50)

	presenter := dial(t, srv, "presenter")
	viewer := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.AudienceCount() == 1 }, testTimeout, 10*time.Millisecond)

	var payloads [][]byte
	for i := 0; i < 10; i++ {
		p := captionPayload(fmt.Sprintf("word%d", i))
		payloads = append(payloads, p)
		require.NoError(t, presenter.WriteMessage(websocket.TextMessage, p))
	}
	for i, want := range payloads {
		raw, err := readWithDeadline(t, viewer)
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(raw), "message %d out of order", i)
	}
}

func TestSecondPresenterSupersedesFirst(t *testing.T) {
	hub, srv := newTestServer(t, 50)

	first := dial(t, srv, "presenter")
	require.Eventually(t, func() bool { return hub.HasPresenter() }, testTimeout, 10*time.Millisecond)

	second := dial(t, srv, "presenter")

	// The first presenter gets a close signal.
	_, err := readWithDeadline(t, first)
	require.Error(t, err)
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)

	// The newest presenter is the active one: its captions flow.
	viewer := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.AudienceCount() == 1 }, testTimeout, 10*time.Millisecond)
	payload := captionPayload("takeover")
	require.NoError(t, second.WriteMessage(websocket.TextMessage, payload))
	raw, err := readWithDeadline(t, viewer)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(raw))
}

func TestConnectionCeiling(t *testing.T) {
	hub, srv := newTestServer(t, 3)

	for i := 0; i < 3; i++ {
		dial(t, srv, "")
	}
	require.Eventually(t, func() bool { return hub.AudienceCount() == 3 }, testTimeout, 10*time.Millisecond)

	// The connection past the ceiling is refused with an overload close code.
	over := dial(t, srv, "")
	_, err := readWithDeadline(t, over)
	require.Error(t, err)
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseTryAgainLater, closeErr.Code)
	assert.Equal(t, 3, hub.AudienceCount(), "existing viewers stay connected")
}

func TestCaptionHandlerReceivesWords(t *testing.T) {
	hub, srv := newTestServer(t, 50)

	got := make(chan []CaptionWord, 1)
	hub.SetCaptionHandler(func(words []CaptionWord) { got <- words })

	presenter := dial(t, srv, "presenter")
	require.Eventually(t, func() bool { return hub.HasPresenter() }, testTimeout, 10*time.Millisecond)
	require.NoError(t, presenter.WriteMessage(websocket.TextMessage, captionPayload("alpha", "beta")))

	select {
	case words := <-got:
		require.Len(t, words, 2)
		assert.Equal(t, " alpha", words[0].Text)
	case <-time.After(testTimeout):
		t.Fatal("caption handler was not invoked")
	}
}

func TestAudienceCaptionIgnored(t *testing.T) {
	hub, srv := newTestServer(t, 50)

	invoked := make(chan struct{}, 1)
	hub.SetCaptionHandler(func([]CaptionWord) { invoked <- struct{}{} })

	viewer := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.AudienceCount() == 1 }, testTimeout, 10*time.Millisecond)
	require.NoError(t, viewer.WriteMessage(websocket.TextMessage, captionPayload("spoofed")))

	select {
	case <-invoked:
		t.Fatal("caption from a viewer must be ignored")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestTapNormalized(t *testing.T) {
	hub, srv := newTestServer(t, 50)

	got := make(chan string, 2)
	hub.SetTapHandler(func(lemma string) { got <- lemma })

	viewer := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.AudienceCount() == 1 }, testTimeout, 10*time.Millisecond)

	require.NoError(t, viewer.WriteJSON(Envelope{Type: TypeTap, Lemma: "  Bank "}))
	require.NoError(t, viewer.WriteJSON(Envelope{Type: TypeTap, Word: "RIVER"}))

	for _, want := range []string{"bank", "river"} {
		select {
		case lemma := <-got:
			assert.Equal(t, want, lemma)
		case <-time.After(testTimeout):
			t.Fatalf("tap %q was not delivered", want)
		}
	}
}

func TestAudienceChangeHandler(t *testing.T) {
	hub, srv := newTestServer(t, 50)

	counts := make(chan int, 8)
	hub.SetAudienceChangeHandler(func(count int) { counts <- count })

	a := dial(t, srv, "")
	b := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.AudienceCount() == 2 }, testTimeout, 10*time.Millisecond)
	_ = a.Close()
	_ = b.Close()
	require.Eventually(t, func() bool { return hub.AudienceCount() == 0 }, testTimeout, 10*time.Millisecond)

	var seen []int
	for len(seen) < 4 {
		select {
		case c := <-counts:
			seen = append(seen, c)
		case <-time.After(testTimeout):
			t.Fatalf("expected 4 audience changes, got %v", seen)
		}
	}
	assert.Contains(t, seen, 2)
	assert.Contains(t, seen, 0)
}
