package rxp

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// endpoint turns datagrams into checked packets for one side of a connection.
// Clients read with a bounded timeout, servers block forever.
type endpoint struct {
	connector       connector
	sourcePort      uint32
	destinationPort uint32
	readTimeout     time.Duration
	log             *log.Entry
}

// drainTimeout bounds the wait for each datagram discarded by drain.
const drainTimeout = time.Millisecond

func newEndpoint(c connector, r role, sourcePort, destinationPort int, readTimeout time.Duration, entry *log.Entry) *endpoint {
	if r == serverRole {
		readTimeout = 0
	}
	c.SetReadTimeout(readTimeout)
	return &endpoint{
		connector:       c,
		sourcePort:      uint32(sourcePort),
		destinationPort: uint32(destinationPort),
		readTimeout:     readTimeout,
		log:             entry,
	}
}

func (e *endpoint) createPacket(sequenceNumber uint32, flags uint32, data []byte) *packet {
	p := &packet{
		header: header{
			sourcePort:      e.sourcePort,
			destinationPort: e.destinationPort,
			sequenceNumber:  sequenceNumber,
			flags:           flags,
		},
		data: data,
	}
	p.updateChecksum()
	return p
}

func (e *endpoint) createAckPacket(sequenceNumber uint32) *packet {
	return e.createPacket(sequenceNumber, flagACK, nil)
}

func (e *endpoint) writePacket(p *packet) error {
	_, _, err := e.connector.Write(p.bytes())
	if err != nil {
		return err
	}
	e.log.Tracef("sent %v", p)
	return nil
}

// readPacket waits for the next datagram. Malformed and corrupted datagrams
// are dropped and reported as invalidSegment.
func (e *endpoint) readPacket() (statusCode, *packet, error) {
	buffer := make([]byte, maxPacketSize)
	status, n, err := e.connector.Read(buffer)
	if err != nil {
		return fail, nil, err
	}
	if status != success {
		return status, nil, nil
	}
	if err := verifyChecksum(buffer[:n]); err != nil {
		e.log.WithError(err).Debug("dropping datagram")
		return invalidSegment, nil, nil
	}
	p, err := decode(buffer[:n])
	if err != nil {
		e.log.WithError(err).Debug("dropping datagram")
		return invalidSegment, nil, nil
	}
	e.log.Tracef("received %v", p)
	return success, p, nil
}

// drain discards datagrams already queued for reading, such as
// retransmissions of a transfer the peer has finished.
func (e *endpoint) drain() (int, error) {
	e.connector.SetReadTimeout(drainTimeout)
	defer e.connector.SetReadTimeout(e.readTimeout)
	discarded := 0
	for {
		status, _, err := e.connector.Read(make([]byte, maxPacketSize))
		if err != nil {
			return discarded, err
		}
		if status == timeout {
			return discarded, nil
		}
		discarded++
	}
}

func (e *endpoint) close() error {
	return e.connector.Close()
}
