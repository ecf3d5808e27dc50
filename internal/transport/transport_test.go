package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// Spawning cat gives a loopback subprocess: every framed message
// written to its stdin comes straight back on stdout, which exercises
// the codec in both directions without a real language server.
func TestTransport_FramedRoundTripThroughSubprocess(t *testing.T) {
	tr, err := Spawn("cat", nil, nil, nil)
	require.NoError(t, err)
	defer func() {
		_ = tr.CloseStream()
		_ = tr.Wait()
	}()

	assert.Greater(t, tr.PID(), 0)

	sent, err := protocol.NewNotification("test/echo", map[string]string{"key": "value"})
	require.NoError(t, err)
	require.NoError(t, tr.WriteMessage(sent))

	got, err := tr.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "test/echo", got.Method)
	assert.Nil(t, got.ID)
	assert.JSONEq(t, `{"key":"value"}`, string(got.Params))
}

func TestTransport_MultipleMessagesStayFramed(t *testing.T) {
	tr, err := Spawn("cat", nil, nil, nil)
	require.NoError(t, err)
	defer func() {
		_ = tr.CloseStream()
		_ = tr.Wait()
	}()

	for i := int64(1); i <= 3; i++ {
		msg, err := protocol.NewRequest(i, "test/seq", map[string]int64{"n": i})
		require.NoError(t, err)
		require.NoError(t, tr.WriteMessage(msg))
	}
	for i := int64(1); i <= 3; i++ {
		got, err := tr.ReadMessage()
		require.NoError(t, err)
		require.NotNil(t, got.ID)
		assert.Equal(t, i, *got.ID, "messages arrive in write order")
	}
}

func TestTransport_ReadAfterStreamCloseFails(t *testing.T) {
	tr, err := Spawn("cat", nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, tr.CloseStream())
	_ = tr.Wait()

	_, err = tr.ReadMessage()
	assert.Error(t, err)
}

func TestTransport_StderrLinesAreForwarded(t *testing.T) {
	lines := make(chan string, 4)
	tr, err := Spawn("ls", []string{"/definitely-not-a-real-path-4821"}, nil, func(line string) {
		select {
		case lines <- line:
		default:
		}
	})
	require.NoError(t, err)
	defer func() { _ = tr.CloseStream() }()
	_ = tr.Wait()

	select {
	case line := <-lines:
		assert.NotEmpty(t, line)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a stderr line from ls")
	}
}

func TestSpawn_RejectsShellMetacharacters(t *testing.T) {
	for _, bad := range []string{"a;b", "a|b", "a&b", "a$b", "a`b"} {
		_, err := Spawn("cat", []string{bad}, nil, nil)
		assert.Error(t, err, bad)
	}
}
