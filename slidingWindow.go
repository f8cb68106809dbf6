package rxp

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

func (s *Server) startWindowSender(ctx context.Context, conn *serverConnection, chunks []*packet, entry *log.Entry) {
	transfer := &activeTransfer{
		cycle: newWindowCycle(conn.windowSize),
		done:  make(chan struct{}),
	}
	conn.transfer = transfer
	s.senders.Add(1)
	go func() {
		defer s.senders.Done()
		defer close(transfer.done)
		started := time.Now()
		if err := s.sendWindowed(ctx, transfer.cycle, chunks); err != nil {
			entry.WithError(err).Warn("transfer aborted")
			return
		}
		entry.WithField("elapsed", time.Since(started)).Info("transfer complete")
	}()
}

// sendWindowed bursts each cycle of chunks and then resends every
// unacknowledged slot once per retransmit interval until the cycle converges.
func (s *Server) sendWindowed(ctx context.Context, cycle *windowCycle, chunks []*packet) error {
	for next := 0; next < len(chunks); {
		window := cycle.Begin(chunks[next:])
		for _, p := range window {
			if err := s.endpoint.writePacket(p); err != nil {
				return err
			}
		}
		if err := s.awaitCycle(ctx, cycle); err != nil {
			return err
		}
		next += len(window)
		cycle.AdvanceCycle()
	}
	return nil
}

func (s *Server) awaitCycle(ctx context.Context, cycle *windowCycle) error {
	ticker := time.NewTicker(s.retransmitInterval)
	defer ticker.Stop()
	for !cycle.Converged() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cycle.AckObserved():
		case <-ticker.C:
			s.log.Tracef("cycle at %d acked %b", cycle.WindowStart(), cycle.AckedMask())
			for _, p := range cycle.PendingPackets() {
				s.log.Tracef("retransmitting seq=%d", p.getSequenceNumber())
				if err := s.endpoint.writePacket(p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
