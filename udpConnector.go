package rxp

import (
	"errors"
	"net"
	"strconv"
	"time"
)

type udpConnector struct {
	peerAddress *net.UDPAddr
	conn        *net.UDPConn
	timeout     time.Duration
}

func createUDPAddress(addressString string, port int) (*net.UDPAddr, error) {
	address := net.JoinHostPort(addressString, strconv.Itoa(port))
	return net.ResolveUDPAddr("udp4", address)
}

// newUDPConnector binds localPort on all interfaces and sends every datagram
// to peerAddress:peerPort.
func newUDPConnector(localPort int, peerAddress string, peerPort int) (*udpConnector, error) {
	remote, err := createUDPAddress(peerAddress, peerPort)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: localPort})
	if err != nil {
		return nil, err
	}
	return &udpConnector{peerAddress: remote, conn: conn}, nil
}

func (connector *udpConnector) Close() error {
	return connector.conn.Close()
}

func (connector *udpConnector) Write(buffer []byte) (statusCode, int, error) {
	n, err := connector.conn.WriteToUDP(buffer, connector.peerAddress)
	if err != nil {
		return fail, n, err
	}
	return success, n, nil
}

func (connector *udpConnector) Read(buffer []byte) (statusCode, int, error) {
	var deadline time.Time
	if connector.timeout > 0 {
		deadline = time.Now().Add(connector.timeout)
	}
	if err := connector.conn.SetReadDeadline(deadline); err != nil {
		return fail, 0, err
	}
	n, _, err := connector.conn.ReadFromUDP(buffer)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return timeout, 0, nil
		}
		return fail, n, err
	}
	return success, n, nil
}

func (connector *udpConnector) SetReadTimeout(t time.Duration) {
	connector.timeout = t
}

func (connector *udpConnector) localPort() int {
	return connector.conn.LocalAddr().(*net.UDPAddr).Port
}
