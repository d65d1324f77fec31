package ncsock

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestListenAcceptLaunchRoundTrip(t *testing.T) {
	listener, err := ListenReq("127.0.0.1", 0)
	require.NoError(t, err)
	defer listener.Close()

	sa, err := unix.Getsockname(listener.Int())
	require.NoError(t, err)
	addr := *sa.(*unix.SockaddrInet4)

	clientDone := make(chan error, 1)
	go func() {
		client, err := LaunchReq("127.0.0.1", addr.Port)
		if err == nil {
			client.Close()
		}
		clientDone <- err
	}()

	conn, err := AcceptReq(listener)
	require.NoError(t, err)
	conn.Close()

	require.NoError(t, <-clientDone)
}

func TestSocketOptionHelpers(t *testing.T) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fd)

	require.NoError(t, SetReuseAddr(fd))
	require.NoError(t, SetTCPNoDelay(fd))

	require.NoError(t, SetSendBufSize(fd, 65536))
	got, err := GetSendBufSize(fd)
	require.NoError(t, err)
	require.GreaterOrEqual(t, got, 65536)

	require.NoError(t, SetRecvBufSize(fd, 65536))
	got, err = GetRecvBufSize(fd)
	require.NoError(t, err)
	require.GreaterOrEqual(t, got, 65536)
}

func TestParseIPv4Invalid(t *testing.T) {
	_, err := parseIPv4("not-an-ip")
	require.Error(t, err)

	_, err = parseIPv4("::1")
	require.Error(t, err)
}
