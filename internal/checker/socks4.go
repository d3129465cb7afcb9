package checker

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const socks4Granted = 0x5a

// socks4Dial returns a blocking dial function that connects to the SOCKS4
// proxy at proxy and asks it to CONNECT to the requested address, sending
// userID as the USERID field.
func socks4Dial(proxy, userID string, timeout time.Duration) func(network, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: timeout}

	return func(network, addr string) (net.Conn, error) {
		conn, err := d.Dial("tcp", proxy)
		if err != nil {
			return nil, err
		}
		_ = conn.SetDeadline(time.Now().Add(timeout))
		if err := socks4Handshake(conn, addr, userID); err != nil {
			conn.Close()
			return nil, err
		}
		// no more deadlines
		_ = conn.SetDeadline(time.Time{})
		return conn, nil
	}
}

// socks4Handshake writes one CONNECT request on conn and checks the reply.
// SOCKS4 carries only IPv4 targets, so host names are resolved locally.
func socks4Handshake(conn net.Conn, target, userID string) error {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return fmt.Errorf("socks4: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return fmt.Errorf("socks4: invalid port %q", portStr)
	}
	ip, err := lookupIPv4(host)
	if err != nil {
		return err
	}

	req := make([]byte, 0, 9+len(userID))
	req = append(req, 0x04, 0x01)
	req = binary.BigEndian.AppendUint16(req, uint16(port))
	req = append(req, ip...)
	req = append(req, userID...)
	req = append(req, 0x00)
	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("socks4: write request: %w", err)
	}

	resp := make([]byte, 8)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return fmt.Errorf("socks4: read reply: %w", err)
	}
	if resp[1] != socks4Granted {
		return fmt.Errorf("socks4: request rejected (code 0x%02x)", resp[1])
	}
	return nil
}

func lookupIPv4(host string) (net.IP, error) {
	if ip := net.ParseIP(host).To4(); ip != nil {
		return ip, nil
	}
	ips, err := net.DefaultResolver.LookupIP(context.Background(), "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("socks4: resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("socks4: no IPv4 address for %s", host)
	}
	return ips[0].To4(), nil
}
