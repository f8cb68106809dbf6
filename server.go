package rxp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type ServerOptions struct {
	LocalPort          int
	PeerAddress        string
	PeerPort           int
	RetransmitInterval time.Duration
	RootDir            string
}

func (o ServerOptions) withDefaults() ServerOptions {
	if o.RetransmitInterval <= 0 {
		o.RetransmitInterval = DefaultRetransmitInterval
	}
	return o
}

// Server serves files to the single peer it was configured with. Packets are
// handled one at a time by Listen; sliding window transfers run on their own
// goroutine while Listen keeps feeding them acknowledgements.
type Server struct {
	endpoint           *endpoint
	storage            Storage
	retransmitInterval time.Duration
	conn               *serverConnection
	log                *log.Entry
	senders            sync.WaitGroup
}

// ListenServer binds the server's UDP socket.
func ListenServer(opts ServerOptions) (*Server, error) {
	c, err := newUDPConnector(opts.LocalPort, opts.PeerAddress, opts.PeerPort)
	if err != nil {
		return nil, fmt.Errorf("could not create a socket: %w", err)
	}
	return NewServer(c, opts, NewDirStorage(opts.RootDir)), nil
}

func NewServer(c connector, opts ServerOptions, storage Storage) *Server {
	opts = opts.withDefaults()
	entry := log.WithFields(log.Fields{
		"role":  serverRole,
		"local": opts.LocalPort,
		"peer":  fmt.Sprintf("%s:%d", opts.PeerAddress, opts.PeerPort),
	})
	return &Server{
		endpoint:           newEndpoint(c, serverRole, opts.LocalPort, opts.PeerPort, 0, entry),
		storage:            storage,
		retransmitInterval: opts.RetransmitInterval,
		conn:               newServerConnection(),
		log:                entry,
	}
}

func (s *Server) State() string {
	return s.conn.state.String()
}

// Listen handles incoming packets until ctx is cancelled or the socket fails.
// Cancelling ctx closes the socket and stops any running transfer; Listen
// returns nil in that case.
func (s *Server) Listen(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer s.senders.Wait()
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		_ = s.endpoint.close()
	})
	defer stop()

	s.log.Info("waiting for packets")
	for {
		status, p, err := s.endpoint.readPacket()
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("server terminated")
				return nil
			}
			return err
		}
		if status != success {
			continue
		}
		if err := s.dispatch(ctx, s.conn, p); err != nil {
			if ctx.Err() != nil {
				s.log.Info("server terminated")
				return nil
			}
			return err
		}
	}
}

// dispatch handles p and then any request it left deferred.
func (s *Server) dispatch(ctx context.Context, conn *serverConnection, p *packet) error {
	for p != nil {
		if err := s.handlePacket(ctx, conn, p); err != nil {
			return err
		}
		p, conn.deferred = conn.deferred, nil
	}
	return nil
}

func (s *Server) handlePacket(ctx context.Context, conn *serverConnection, p *packet) error {
	if conn.transfer != nil && conn.transfer.finished() {
		conn.endTransfer()
	}

	if p.isFlaggedAs(flagSYN) {
		return s.handleHandshake(conn, p)
	}

	if conn.transfer != nil {
		if !p.isFlaggedAs(flagACK) {
			if !conn.transfer.cycle.ReleaseFinal() {
				s.log.Tracef("transfer in progress, dropping %v", p)
				return nil
			}
			s.log.Debugf("final ack missing, %v ends the transfer", p)
			<-conn.transfer.done
			conn.endTransfer()
			return s.handleRequest(ctx, conn, p)
		}
		if !conn.transfer.cycle.RecordAck(p.getSequenceNumber()) {
			s.log.Tracef("ack seq=%d outside of current cycle", p.getSequenceNumber())
		}
		return nil
	}

	if p.isFlaggedAs(flagACK) {
		s.log.Tracef("no transfer in progress, dropping %v", p)
		return nil
	}
	return s.handleRequest(ctx, conn, p)
}

func (s *Server) handleRequest(ctx context.Context, conn *serverConnection, p *packet) error {
	request := p.getDataAsString()
	switch {
	case strings.HasPrefix(request, windowRequestPrefix):
		return s.handleWindowRequest(conn, strings.TrimPrefix(request, windowRequestPrefix))
	case strings.HasPrefix(request, getRequestPrefix):
		return s.handleGetRequest(ctx, conn, strings.TrimPrefix(request, getRequestPrefix))
	}
	s.log.Debugf("unknown request %q", request)
	return nil
}

func (s *Server) handleWindowRequest(conn *serverConnection, win string) error {
	size, err := parseWindowSize(win)
	if err != nil {
		s.log.WithError(err).Warn("dropping window request")
		return nil
	}
	if size != conn.windowSize {
		s.log.Infof("window size changed to %d", size)
	}
	conn.windowSize = size
	return s.endpoint.writePacket(s.endpoint.createAckPacket(0))
}

// handleGetRequest sends fileName to the peer. A missing or unreadable file
// is logged and the request is left unanswered.
func (s *Server) handleGetRequest(ctx context.Context, conn *serverConnection, fileName string) error {
	entry := s.log.WithFields(log.Fields{"transfer": newTransferID(), "file": fileName})
	data, err := s.storage.Read(fileName)
	if err != nil {
		entry.WithError(err).Warn("cannot serve file")
		return nil
	}
	conn.fileName = fileName
	chunks := s.endpoint.createChunks(data)
	entry.WithFields(log.Fields{"bytes": len(data), "chunks": len(chunks), "window": conn.windowSize}).Info("sending file")

	if conn.windowSize > 1 {
		s.startWindowSender(ctx, conn, chunks, entry)
		return nil
	}

	started := time.Now()
	next, err := s.sendStopAndWait(ctx, conn, chunks, entry)
	conn.endTransfer()
	if err != nil {
		return err
	}
	conn.deferred = next
	entry.WithField("elapsed", time.Since(started)).Info("transfer complete")
	return nil
}
