package realtime

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"aurora-assistant/internal/analytics"
	"aurora-assistant/internal/config"
	"aurora-assistant/internal/schedule"
	"aurora-assistant/internal/tools"
	"aurora-assistant/internal/ui"
)

// newConnPair dials a local websocket server and returns both ends: a Client
// for the code under test and the raw server side to script responses.
func newConnPair(t *testing.T) (*Client, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	client := &Client{
		conn:     conn,
		pingStop: make(chan struct{}),
		log:      slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	t.Cleanup(client.Close)

	var server *websocket.Conn
	select {
	case server = <-serverConns:
	case <-time.After(2 * time.Second):
		t.Fatal("server side of the websocket never arrived")
	}
	t.Cleanup(func() { server.Close() })
	return client, server
}

// fakePlayback stands in for the audio bridge's speaker side.
type fakePlayback struct {
	mu      sync.Mutex
	played  [][]byte
	flushes int
}

func (f *fakePlayback) Play(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, append([]byte(nil), pcm...))
	return nil
}

func (f *fakePlayback) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

func (f *fakePlayback) flushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

func (f *fakePlayback) playedFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.played...)
}

func newTestSession(t *testing.T) (*Session, *ui.Console) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store := schedule.NewStore(log)
	registry := tools.NewRegistry(tools.Deps{
		Config:    config.Config{},
		Store:     store,
		Analytics: analytics.NewReporter("", "", "", log),
		Log:       log,
	}, nil)
	display := ui.NewConsole(log)
	session := NewSession(Options{Voice: "shimmer", Instructions: "Be brief."}, registry, store, display, log)
	return session, display
}

func readServerJSON(t *testing.T, server *websocket.Conn) string {
	t.Helper()
	server.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := server.ReadMessage()
	require.NoError(t, err)
	require.True(t, json.Valid(data))
	return string(data)
}

func TestSessionUpdatePayload(t *testing.T) {
	session, _ := newTestSession(t)

	payload, err := json.Marshal(session.sessionUpdate())
	require.NoError(t, err)
	body := string(payload)

	assert.Equal(t, "session.update", gjson.Get(body, "type").String())
	assert.Equal(t, "gpt-realtime", gjson.Get(body, "session.model").String())
	assert.Equal(t, "semantic_vad", gjson.Get(body, "session.audio.input.turn_detection.type").String())
	assert.True(t, gjson.Get(body, "session.audio.input.turn_detection.create_response").Bool())
	assert.Equal(t, int64(24000), gjson.Get(body, "session.audio.input.format.rate").Int())
	assert.Equal(t, "shimmer", gjson.Get(body, "session.audio.output.voice").String())
	assert.Equal(t, `["audio"]`, gjson.Get(body, "session.output_modalities").Raw)
	assert.Equal(t, "auto", gjson.Get(body, "session.tool_choice").String())

	names := gjson.Get(body, "session.tools.#.name").Array()
	require.Len(t, names, 1, "an empty registry still advertises the sleep tool")
	assert.Equal(t, tools.SleepToolName, names[0].String())
}

func TestReceiveLoopGatesMicrophoneAroundResponses(t *testing.T) {
	session, display := newTestSession(t)
	client, server := newConnPair(t)

	done := make(chan error, 1)
	go func() { done <- session.receiveLoop(client, &fakePlayback{}) }()

	require.NoError(t, server.WriteJSON(map[string]string{"type": "response.created"}))
	require.Eventually(t, func() bool {
		return !session.micOpen.Load() && display.State() == ui.StateTalking
	}, 2*time.Second, 10*time.Millisecond, "microphone must close while the assistant talks")

	require.NoError(t, server.WriteJSON(map[string]string{"type": "response.done"}))
	require.Eventually(t, func() bool {
		return session.micOpen.Load() && display.State() == ui.StateListening
	}, 2*time.Second, 10*time.Millisecond, "microphone must reopen after the response")

	server.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("receive loop did not exit on server close")
	}
}

func TestReceiveLoopEndsOnSleepToolCall(t *testing.T) {
	session, _ := newTestSession(t)
	client, server := newConnPair(t)

	done := make(chan error, 1)
	go func() { done <- session.receiveLoop(client, &fakePlayback{}) }()

	require.NoError(t, server.WriteJSON(map[string]string{
		"type":    "response.function_call_arguments.done",
		"name":    tools.SleepToolName,
		"call_id": "call_1",
	}))

	select {
	case err := <-done:
		assert.NoError(t, err, "sleep tool ends the session without error")
	case <-time.After(2 * time.Second):
		t.Fatal("receive loop did not end on sleep tool call")
	}
}

func TestReceiveLoopAnswersUnclaimedToolCall(t *testing.T) {
	session, display := newTestSession(t)
	client, server := newConnPair(t)

	done := make(chan error, 1)
	go func() { done <- session.receiveLoop(client, &fakePlayback{}) }()

	require.NoError(t, server.WriteJSON(map[string]string{
		"type":      "response.function_call_arguments.done",
		"name":      "nonexistent_tool",
		"arguments": "{}",
		"call_id":   "call_9",
	}))

	first := readServerJSON(t, server)
	assert.Equal(t, "conversation.item.create", gjson.Get(first, "type").String())
	assert.Equal(t, "function_call_output", gjson.Get(first, "item.type").String())
	assert.Equal(t, "call_9", gjson.Get(first, "item.call_id").String())
	assert.Contains(t, gjson.Get(first, "item.output").String(), "nonexistent_tool")

	second := readServerJSON(t, server)
	assert.Equal(t, "response.create", gjson.Get(second, "type").String())

	assert.Equal(t, ui.StateToolCalling, display.State())

	// The tool-calling state holds through the next response.done.
	require.NoError(t, server.WriteJSON(map[string]string{"type": "response.done"}))
	require.Eventually(t, func() bool { return session.micOpen.Load() }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, ui.StateToolCalling, display.State())

	client.Close()
	<-done
}

func TestDueAudioLoopSendsSleepNudges(t *testing.T) {
	session, _ := newTestSession(t)
	client, server := newConnPair(t)

	path := "/tmp/nudge-test.wav"
	session.store.Add(time.Now().Add(-time.Second), path, "pasta", false)

	stop := make(chan struct{})
	defer close(stop)
	go session.dueAudioLoop(client, stop)

	first := readServerJSON(t, server)
	assert.Equal(t, "conversation.item.create", gjson.Get(first, "type").String())
	assert.Equal(t, "user", gjson.Get(first, "item.role").String())
	assert.Equal(t, "Call the go_to_sleep function", gjson.Get(first, "item.content.0.text").String())

	assert.Equal(t, "response.create", gjson.Get(readServerJSON(t, server), "type").String())

	third := readServerJSON(t, server)
	assert.Equal(t, "This is important - you need to go to sleep now.",
		gjson.Get(third, "item.content.0.text").String())

	assert.Equal(t, "response.create", gjson.Get(readServerJSON(t, server), "type").String())
}

func TestReceiveLoopSurvivesMalformedMessages(t *testing.T) {
	session, display := newTestSession(t)
	client, server := newConnPair(t)

	done := make(chan error, 1)
	go func() { done <- session.receiveLoop(client, &fakePlayback{}) }()

	// Not JSON at all, then a delta whose payload is not valid base64;
	// neither may end the conversation.
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{not json`)))
	require.NoError(t, server.WriteJSON(map[string]string{
		"type":  "response.output_audio.delta",
		"delta": "%%%not-base64%%%",
	}))

	require.NoError(t, server.WriteJSON(map[string]string{"type": "response.created"}))
	require.Eventually(t, func() bool {
		return display.State() == ui.StateTalking && !session.micOpen.Load()
	}, 2*time.Second, 10*time.Millisecond, "the loop must still process events after bad input")

	server.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("receive loop did not exit on server close")
	}
}

func TestReceiveLoopPlaysDeltasAndFlushesOnDone(t *testing.T) {
	session, _ := newTestSession(t)
	client, server := newConnPair(t)
	speaker := &fakePlayback{}

	done := make(chan error, 1)
	go func() { done <- session.receiveLoop(client, speaker) }()

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, server.WriteJSON(map[string]string{
		"type":  "response.output_audio.delta",
		"delta": base64.StdEncoding.EncodeToString(pcm),
	}))
	require.Eventually(t, func() bool {
		frames := speaker.playedFrames()
		return len(frames) == 1 && assert.ObjectsAreEqual(pcm, frames[0])
	}, 2*time.Second, 10*time.Millisecond, "the delta must reach the speaker")

	require.NoError(t, server.WriteJSON(map[string]string{"type": "response.done"}))
	require.Eventually(t, func() bool {
		return speaker.flushCount() == 1 && session.micOpen.Load()
	}, 2*time.Second, 10*time.Millisecond, "a finished response must flush the partial tail")

	client.Close()
	<-done
}

func TestClientSendAfterCloseFails(t *testing.T) {
	client, _ := newConnPair(t)
	client.Close()
	assert.Error(t, client.Send(responseCreateEvent{Type: "response.create"}))
}
