package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
)

// fakeHandler 固定应答的查询处理器
type fakeHandler struct {
	results []ontology.OntologyResult
	err     error
	entries []*ontology.ChangelogEntry
}

func (f *fakeHandler) QueryOntology(ctx context.Context, text string, limit int) ([]ontology.OntologyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.results) {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func (f *fakeHandler) GetStats(ctx context.Context) (*ontology.Stats, error) {
	return &ontology.Stats{
		NodeCount: 3,
		Metrics:   ontology.MetricsSnapshot{NodesCreated: 3, StreamEvents: 4},
	}, nil
}

func (f *fakeHandler) Tail(ctx context.Context, since int64) ([]*ontology.ChangelogEntry, error) {
	var out []*ontology.ChangelogEntry
	for _, e := range f.entries {
		if e.Version > since {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeHandler) CurrentVersion() int64 {
	return int64(len(f.entries))
}

func testConfig() *config.WebSocketConfig {
	return &config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      16,
		PingInterval:    time.Second,
		PongTimeout:     5 * time.Second,
	}
}

func startHub(t *testing.T, handler QueryHandler) (*Hub, string) {
	t.Helper()
	hub := NewHub(testConfig())
	if handler != nil {
		hub.SetQueryHandler(handler)
	}
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestHub_InitialState(t *testing.T) {
	handler := &fakeHandler{entries: []*ontology.ChangelogEntry{{Version: 1, Path: "/a"}, {Version: 2, Path: "/b"}}}
	_, url := startHub(t, handler)
	conn := dial(t, url)

	var msg InitialStateMessage
	readJSON(t, conn, &msg)
	assert.Equal(t, MessageInitialState, msg.Type)
	assert.Equal(t, 3, msg.NodeCount)
	assert.Equal(t, int64(2), msg.Version)
	assert.Equal(t, int64(4), msg.MetricsSnapshot.StreamEvents)
}

func TestHub_BroadcastWithSubscription(t *testing.T) {
	hub, url := startHub(t, &fakeHandler{})

	all := dial(t, url)
	filtered := dial(t, url)

	var initial InitialStateMessage
	readJSON(t, all, &initial)
	readJSON(t, filtered, &initial)

	require.NoError(t, filtered.WriteJSON(ClientMessage{Type: MessageSubscribe, Objects: []string{"/b"}}))
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)
	// 订阅消息异步处理，稍等再广播
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastChangelog(&ontology.ChangelogEntry{Version: 1, Path: "/a", Event: ontology.EventAdd})
	hub.BroadcastChangelog(&ontology.ChangelogEntry{Version: 2, Path: "/b", Event: ontology.EventAdd})

	var m1, m2 ChangelogMessage
	readJSON(t, all, &m1)
	readJSON(t, all, &m2)
	assert.Equal(t, "/a", m1.Entry.Path)
	assert.Equal(t, "/b", m2.Entry.Path)

	var only ChangelogMessage
	readJSON(t, filtered, &only)
	assert.Equal(t, MessageChangelog, only.Type)
	assert.Equal(t, "/b", only.Entry.Path)
	assert.Equal(t, int64(2), only.Entry.Version)
}

func TestHub_Query(t *testing.T) {
	handler := &fakeHandler{results: []ontology.OntologyResult{
		{Object: ontology.SearchResult{Path: "/a", Score: 0.9}},
		{Object: ontology.SearchResult{Path: "/b", Score: 0.8}},
	}}
	_, url := startHub(t, handler)
	conn := dial(t, url)

	var initial InitialStateMessage
	readJSON(t, conn, &initial)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageQuery, Query: "auth", Limit: 1}))

	var result QueryResultMessage
	readJSON(t, conn, &result)
	assert.Equal(t, MessageQueryResult, result.Type)
	assert.Equal(t, StatusOK, result.Status)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "/a", result.Data[0].Object.Path)
}

func TestHub_QueryFailure(t *testing.T) {
	_, url := startHub(t, &fakeHandler{err: errors.New("embedding down")})
	conn := dial(t, url)

	var initial InitialStateMessage
	readJSON(t, conn, &initial)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageQuery, Query: "x"}))

	var result QueryResultMessage
	readJSON(t, conn, &result)
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "embedding down")
	assert.Empty(t, result.Data)

	// 失败后连接仍可用
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageGetMetrics}))
	var metrics MetricsMessage
	readJSON(t, conn, &metrics)
	assert.Equal(t, MessageMetrics, metrics.Type)
	assert.Equal(t, int64(3), metrics.Data.NodesCreated)
}

func TestHub_TailAndErrors(t *testing.T) {
	handler := &fakeHandler{entries: []*ontology.ChangelogEntry{
		{Version: 1, Path: "/a"},
		{Version: 2, Path: "/b"},
		{Version: 3, Path: "/c"},
	}}
	_, url := startHub(t, handler)
	conn := dial(t, url)

	var initial InitialStateMessage
	readJSON(t, conn, &initial)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTail, Since: 1}))
	var e2, e3 ChangelogMessage
	readJSON(t, conn, &e2)
	readJSON(t, conn, &e3)
	assert.Equal(t, int64(2), e2.Entry.Version)
	assert.Equal(t, int64(3), e3.Entry.Version)

	var complete TailCompleteMessage
	readJSON(t, conn, &complete)
	assert.Equal(t, MessageTailComplete, complete.Type)
	assert.Equal(t, int64(1), complete.Since)
	assert.Equal(t, int64(3), complete.Version)
	assert.Equal(t, 2, complete.Count)
	assert.False(t, complete.Truncated)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var errMsg ErrorMessage
	readJSON(t, conn, &errMsg)
	assert.Equal(t, MessageError, errMsg.Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "bogus"}))
	readJSON(t, conn, &errMsg)
	assert.Contains(t, errMsg.Error, "unknown message type")
}

// tailReply 同时容纳 changelog 与 tail_complete 两种消息
type tailReply struct {
	Type      string                   `json:"type"`
	Entry     *ontology.ChangelogEntry `json:"entry"`
	Version   int64                    `json:"version"`
	Count     int                      `json:"count"`
	Truncated bool                     `json:"truncated"`
}

// readTail 读取补发消息直到 tail_complete
func readTail(t *testing.T, conn *websocket.Conn) ([]int64, tailReply) {
	t.Helper()
	var versions []int64
	for {
		var msg tailReply
		readJSON(t, conn, &msg)
		switch msg.Type {
		case MessageChangelog:
			require.NotNil(t, msg.Entry)
			versions = append(versions, msg.Entry.Version)
		case MessageTailComplete:
			return versions, msg
		default:
			t.Fatalf("unexpected message type %q", msg.Type)
		}
	}
}

func TestHub_TailExceedingSendBuffer(t *testing.T) {
	const n = 500
	entries := make([]*ontology.ChangelogEntry, 0, n)
	for i := 1; i <= n; i++ {
		entries = append(entries, &ontology.ChangelogEntry{
			Version: int64(i),
			Path:    fmt.Sprintf("/docs/%03d.md", i),
			Event:   ontology.EventAdd,
		})
	}
	_, url := startHub(t, &fakeHandler{entries: entries})
	conn := dial(t, url)

	var initial InitialStateMessage
	readJSON(t, conn, &initial)
	require.Greater(t, n, testConfig().SendBuffer)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTail}))
	versions, complete := readTail(t, conn)

	require.Len(t, versions, n)
	for i, v := range versions {
		assert.Equal(t, int64(i+1), v)
	}
	assert.Equal(t, int64(n), complete.Version)
	assert.Equal(t, n, complete.Count)
	assert.False(t, complete.Truncated)
}

func TestHub_TailRespectsSubscription(t *testing.T) {
	handler := &fakeHandler{entries: []*ontology.ChangelogEntry{
		{Version: 1, Path: "/a"},
		{Version: 2, Path: "/b"},
		{Version: 3, Path: "/c"},
	}}
	_, url := startHub(t, handler)
	conn := dial(t, url)

	var initial InitialStateMessage
	readJSON(t, conn, &initial)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageSubscribe, Objects: []string{"/b"}}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTail}))

	versions, complete := readTail(t, conn)
	assert.Equal(t, []int64{2}, versions)
	// 过滤掉的条目同样计入已覆盖的版本
	assert.Equal(t, int64(3), complete.Version)
	assert.Equal(t, 1, complete.Count)
}

func TestHub_NoHandler(t *testing.T) {
	_, url := startHub(t, nil)
	conn := dial(t, url)

	var initial InitialStateMessage
	readJSON(t, conn, &initial)
	assert.Equal(t, 0, initial.NodeCount)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageQuery, Query: "x"}))
	var result QueryResultMessage
	readJSON(t, conn, &result)
	assert.Equal(t, StatusError, result.Status)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub, url := startHub(t, &fakeHandler{})
	conn := dial(t, url)

	var initial InitialStateMessage
	readJSON(t, conn, &initial)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
