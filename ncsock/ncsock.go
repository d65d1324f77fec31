// Package ncsock wraps the socket setup calls a reactor-based server
// needs: bind/listen/accept/connect for a TCP server socket, and the fd
// option helpers (non-blocking, reuse-address, buffer sizes, Nagle
// disable) used while wiring a socket into a reactor or dispatcher.
package ncsock

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/nancy"
	"github.com/ehrlich-b/nancy/reactor"
)

// ListenReq creates, binds, and listens on a TCP server socket at
// ip:port, with a backlog of nancy.DefaultListenBacklog, mirroring the
// original's tcp_serv_socket::listen_req.
func ListenReq(ip string, port int) (reactor.FD, error) {
	sock, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return reactor.FD{}, nancy.WrapError("listen_req_socket", err)
	}

	addr, err := sockaddr(ip, port)
	if err != nil {
		unix.Close(sock)
		return reactor.FD{}, err
	}

	if err := unix.Bind(sock, addr); err != nil {
		unix.Close(sock)
		return reactor.FD{}, nancy.WrapError("listen_req_bind", err)
	}
	if err := unix.Listen(sock, nancy.DefaultListenBacklog); err != nil {
		unix.Close(sock)
		return reactor.FD{}, nancy.WrapError("listen_req_listen", err)
	}

	return reactor.NewFD(sock), nil
}

// AcceptReq accepts one pending connection on a listening socket fd,
// mirroring tcp_serv_socket::accept_req.
func AcceptReq(fd reactor.FD) (reactor.FD, error) {
	connFD, _, err := unix.Accept(fd.Int())
	if err != nil {
		return reactor.FD{}, nancy.WrapError("accept_req", err)
	}
	return reactor.NewFD(connFD), nil
}

// LaunchReq creates a TCP client socket and connects it to remoteIP:
// remotePort, mirroring tcp_clnt_socket::launch_req.
func LaunchReq(remoteIP string, remotePort int) (reactor.FD, error) {
	sock, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return reactor.FD{}, nancy.WrapError("launch_req_socket", err)
	}

	addr, err := sockaddr(remoteIP, remotePort)
	if err != nil {
		unix.Close(sock)
		return reactor.FD{}, err
	}

	if err := unix.Connect(sock, addr); err != nil {
		unix.Close(sock)
		return reactor.FD{}, nancy.WrapError("launch_req_connect", err)
	}
	return reactor.NewFD(sock), nil
}

func sockaddr(ip string, port int) (*unix.SockaddrInet4, error) {
	addr := &unix.SockaddrInet4{Port: port}
	parsed, err := parseIPv4(ip)
	if err != nil {
		return nil, nancy.NewError("sockaddr", nancy.ErrCodeInvalidParams, err.Error())
	}
	addr.Addr = parsed
	return addr, nil
}

// SetNonblocking sets fd non-blocking, mirroring set_nonblocking.
func SetNonblocking(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nancy.WrapError("set_nonblocking", err)
	}
	return nil
}

// SetReuseAddr enables SO_REUSEADDR, mirroring set_reuse_address.
func SetReuseAddr(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nancy.WrapError("set_reuse_address", err)
	}
	return nil
}

// SetSendBufSize sets SO_SNDBUF, mirroring set_send_bufsz.
func SetSendBufSize(fd, size int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, size); err != nil {
		return nancy.WrapError("set_send_bufsz", err)
	}
	return nil
}

// GetSendBufSize reads SO_SNDBUF, mirroring get_send_bufsz.
func GetSendBufSize(fd int) (int, error) {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF)
	if err != nil {
		return 0, nancy.WrapError("get_send_bufsz", err)
	}
	return v, nil
}

// SetRecvBufSize sets SO_RCVBUF, mirroring set_recv_bufsz.
func SetRecvBufSize(fd, size int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, size); err != nil {
		return nancy.WrapError("set_recv_bufsz", err)
	}
	return nil
}

// GetRecvBufSize reads SO_RCVBUF, mirroring get_recv_bufsz.
func GetRecvBufSize(fd int) (int, error) {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF)
	if err != nil {
		return 0, nancy.WrapError("get_recv_bufsz", err)
	}
	return v, nil
}

// SetTCPNoDelay disables Nagle's algorithm, mirroring set_tcp_nondelay.
func SetTCPNoDelay(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return nancy.WrapError("set_tcp_nodelay", err)
	}
	return nil
}
