package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(tb testing.TB, listener StatusListener) *Engine {
	tb.Helper()

	cfg := Config{ChunkSize: 256, HandshakeTimeout: 40 * time.Millisecond}
	engine, err := NewEngine(cfg, zerolog.Nop(), listener)
	if err != nil {
		tb.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func TestEngineSend_HappyPath(t *testing.T) {
	payload := patternPayload(t, 600)
	ch := newScriptChannel(TokenReady, TokenAck, TokenAck, TokenAck, TokenDone)
	rec := &recordListener{}
	engine := newTestEngine(t, rec)

	stats, err := engine.Send(context.Background(), ch, Outbound{ID: "1700000000", Payload: payload})
	require.NoError(t, err)

	assert.Equal(t, 600, stats.Bytes, "reported bytes must equal the announced total")
	assert.Equal(t, 3, stats.Chunks)

	want := append([]byte("1700000000|600\n"), payload...)
	assert.Equal(t, want, ch.written(), "wire: header line then the raw payload, nothing else")

	assert.Equal(t, [][2]int{{256, 600}, {512, 600}, {600, 600}}, rec.progress)
	require.Len(t, rec.done, 1)
	assert.Equal(t, 600, rec.done[0].Bytes)
}

func TestEngineSend_EmptyPayload(t *testing.T) {
	ch := newScriptChannel(TokenReady, TokenDone)
	engine := newTestEngine(t, nil)

	stats, err := engine.Send(context.Background(), ch, Outbound{ID: "x", Payload: nil})
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Bytes)
	assert.Equal(t, 0, stats.Chunks)
	assert.Equal(t, []byte("x|0\n"), ch.written())
}

func TestEngineSend_NoReadyWritesNoPayload(t *testing.T) {
	payload := patternPayload(t, 600)
	ch := newScriptChannel() // peer stays silent
	engine := newTestEngine(t, nil)

	_, err := engine.Send(context.Background(), ch, Outbound{ID: "1700000000", Payload: payload})

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, PhaseReady, timeout.Phase)
	assert.True(t, errors.Is(err, ErrHandshakeTimeout))

	assert.Equal(t, []byte("1700000000|600\n"), ch.written(),
		"a failed handshake must leave zero payload bytes on the wire")
}

func TestEngineSend_AckSilenceMidTransfer(t *testing.T) {
	payload := patternPayload(t, 600)
	ch := newScriptChannel(TokenReady, TokenAck) // second chunk never acknowledged
	engine := newTestEngine(t, nil)

	_, err := engine.Send(context.Background(), ch, Outbound{ID: "cap", Payload: payload})

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, PhaseAck, timeout.Phase)
	assert.Equal(t, 256, timeout.Offset)

	want := append([]byte("cap|600\n"), payload[:512]...)
	assert.Equal(t, want, ch.written(), "no bytes past the unacknowledged chunk")
}

func TestEngineSend_AcksWithoutDoneFails(t *testing.T) {
	payload := patternPayload(t, 600)
	ch := newScriptChannel(TokenReady, TokenAck, TokenAck, TokenAck) // DONE withheld
	rec := &recordListener{}
	engine := newTestEngine(t, rec)

	_, err := engine.Send(context.Background(), ch, Outbound{ID: "cap", Payload: payload})

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, PhaseDone, timeout.Phase)
	assert.Empty(t, rec.done, "a transfer without DONE must not report success")
}

func TestEngineSend_RejectsInvalidID(t *testing.T) {
	engine := newTestEngine(t, nil)

	for _, id := range []string{"", "a|b", "line\nbreak"} {
		ch := newScriptChannel()
		_, err := engine.Send(context.Background(), ch, Outbound{ID: id, Payload: []byte("x")})
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
		assert.Empty(t, ch.written(), "nothing may reach the wire for id %q", id)
	}
}

func TestEngineSend_ContextCancellation(t *testing.T) {
	ch := newScriptChannel() // silent peer keeps the engine in PhaseReady
	cfg := Config{ChunkSize: 256, HandshakeTimeout: 5 * time.Second}
	engine, err := NewEngine(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = engine.Send(ctx, ch, Outbound{ID: "cap", Payload: []byte("x")})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewEngine_RejectsBadConfig(t *testing.T) {
	cases := []Config{
		{ChunkSize: 0, HandshakeTimeout: time.Second},
		{ChunkSize: -1, HandshakeTimeout: time.Second},
		{ChunkSize: MaxChunkSize + 1, HandshakeTimeout: time.Second},
		{ChunkSize: 256, HandshakeTimeout: 0},
	}
	for _, cfg := range cases {
		_, err := NewEngine(cfg, zerolog.Nop(), nil)
		assert.Error(t, err, "config %+v", cfg)
	}
}
