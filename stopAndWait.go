package rxp

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// sendStopAndWait sends one chunk at a time and blocks until the client
// acknowledges it. Any other reply makes the same chunk go out again, except
// on the final chunk: the client only issues a new request once it holds the
// whole file, so a request there means the last ACK was lost. The transfer
// ends and that request is returned to be handled next.
func (s *Server) sendStopAndWait(ctx context.Context, conn *serverConnection, chunks []*packet, entry *log.Entry) (*packet, error) {
	conn.sequenceNumber = 0
	for i, chunk := range chunks {
		final := i == len(chunks)-1
		for {
			if err := s.endpoint.writePacket(chunk); err != nil {
				return nil, err
			}
			status, reply, err := s.endpoint.readPacket()
			if err != nil {
				return nil, err
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if status == success && reply.isFlaggedAs(flagACK) && reply.getSequenceNumber() == conn.sequenceNumber {
				conn.sequenceNumber++
				break
			}
			if final && status == success && !reply.isFlaggedAs(flagACK) {
				entry.Debugf("final ack missing, %v ends the transfer", reply)
				return reply, nil
			}
			entry.Tracef("resending seq=%d", chunk.getSequenceNumber())
		}
	}
	return nil, nil
}
