package device

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/semivibe/semi-vibe-go/logger"
)

func startTestServer(t *testing.T) (*Server, net.Conn) {
	t.Helper()

	cfg, err := NewConfig("127.0.0.1", 0, WithReadTimeout(2*time.Second))
	require.NoError(t, err)

	server := NewServer(cfg, NewMemory(), nil)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { _ = server.Close() })

	conn, err := net.DialTimeout("tcp", server.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ack := make([]byte, 3)
	_, err = conn.Read(ack)
	require.NoError(t, err)
	require.Equal(t, "ACK", string(ack))

	return server, conn
}

func TestServerHandshakeAndEcho(t *testing.T) {
	_, conn := startTestServer(t)

	_, err := conn.Write([]byte("100000"))
	require.NoError(t, err)

	resp := make([]byte, 6)
	_, err = conn.Read(resp)
	require.NoError(t, err)
	require.Equal(t, "1000FF", string(resp))
}

func TestServerExitClosesConnection(t *testing.T) {
	_, conn := startTestServer(t)

	_, err := conn.Write([]byte("exit"))
	require.NoError(t, err)

	buf := make([]byte, 1)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(buf)
	require.Error(t, err) // EOF: server closed its side
}

func TestServerRejectsSecondClient(t *testing.T) {
	server, _ := startTestServer(t)

	conn2, err := net.DialTimeout("tcp", server.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn2.Close()

	_ = conn2.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 3)
	_, err = conn2.Read(buf)
	require.Error(t, err) // connection closed without a handshake
}

// TestServerLogsRejectionThroughProvidedLogger checks that a caller-supplied
// Logger (not just the default) actually receives the server's own log
// calls, using a MockLogger to assert on the rejection warning rather than
// scraping a real backend's output.
func TestServerLogsRejectionThroughProvidedLogger(t *testing.T) {
	mockLog := logger.NewMockLogger()
	mockLog.On("Debug", mock.Anything, mock.Anything).Return()
	mockLog.On("Info", mock.Anything, mock.Anything).Return()
	mockLog.On("Warn", mock.Anything, mock.Anything).Return()

	cfg, err := NewConfig("127.0.0.1", 0, WithLogger(mockLog))
	require.NoError(t, err)

	server := NewServer(cfg, NewMemory(), nil)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { _ = server.Close() })

	conn1, err := net.DialTimeout("tcp", server.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn1.Close()
	ack := make([]byte, 3)
	_, err = conn1.Read(ack)
	require.NoError(t, err)

	conn2, err := net.DialTimeout("tcp", server.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn2.Close()
	_ = conn2.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, _ = conn2.Read(buf)

	mockLog.AssertCalled(t, "Warn", "device: rejecting connection, client already attached", mock.Anything)
}
