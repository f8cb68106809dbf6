package rxp

// serverConnection is everything the server remembers about its single peer.
// It is owned by the receive loop and handed to every handler.
type serverConnection struct {
	state          connState
	challenge      string
	windowSize     uint32
	sequenceNumber uint32
	fileName       string
	transfer       *activeTransfer
	// deferred is a request that arrived while the final chunk was still
	// unacknowledged. It ended that transfer and is handled next.
	deferred *packet
}

func newServerConnection() *serverConnection {
	return &serverConnection{
		state:      closed,
		windowSize: DefaultWindowSize,
	}
}

func (c *serverConnection) endTransfer() {
	c.transfer = nil
	c.sequenceNumber = 0
	c.fileName = ""
}

// activeTransfer is a sliding window transfer running on its own goroutine.
type activeTransfer struct {
	cycle *windowCycle
	done  chan struct{}
}

func (t *activeTransfer) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
