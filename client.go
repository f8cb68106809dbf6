package rxp

import (
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

type ClientOptions struct {
	LocalPort   int
	PeerAddress string
	PeerPort    int
	ReadTimeout time.Duration
	// MaxTries bounds the read timeouts per handshake step.
	MaxTries  int
	OutputDir string
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.MaxTries <= 0 {
		o.MaxTries = DefaultMaxTries
	}
	return o
}

// Client is the downloading side of an RxP session. It is not safe for
// concurrent use; every operation runs to completion on the caller's goroutine.
type Client struct {
	endpoint       *endpoint
	storage        Storage
	state          connState
	windowSize     uint32
	sequenceNumber uint32
	maxTries       int
	log            *log.Entry
}

// DialClient opens the client's UDP socket. No traffic is sent until Connect.
func DialClient(opts ClientOptions) (*Client, error) {
	c, err := newUDPConnector(opts.LocalPort, opts.PeerAddress, opts.PeerPort)
	if err != nil {
		return nil, fmt.Errorf("could not create a socket: %w", err)
	}
	return NewClient(c, opts, NewDirStorage(opts.OutputDir)), nil
}

func NewClient(c connector, opts ClientOptions, storage Storage) *Client {
	opts = opts.withDefaults()
	entry := log.WithFields(log.Fields{
		"role":  clientRole,
		"local": opts.LocalPort,
		"peer":  fmt.Sprintf("%s:%d", opts.PeerAddress, opts.PeerPort),
	})
	return &Client{
		endpoint:   newEndpoint(c, clientRole, opts.LocalPort, opts.PeerPort, opts.ReadTimeout, entry),
		storage:    storage,
		state:      closed,
		windowSize: DefaultWindowSize,
		maxTries:   opts.MaxTries,
		log:        entry,
	}
}

func (c *Client) State() string {
	return c.state.String()
}

func (c *Client) Connected() bool {
	return c.state == established
}

func (c *Client) WindowSize() int {
	return int(c.windowSize)
}

// sendAndAwait writes p and waits for one reply, writing p again after every
// read timeout. maxTries <= 0 retries forever.
func (c *Client) sendAndAwait(p *packet, maxTries int) (statusCode, *packet, error) {
	tries := 0
	for {
		if err := c.endpoint.writePacket(p); err != nil {
			return fail, nil, err
		}
		status, reply, err := c.endpoint.readPacket()
		if err != nil {
			return fail, nil, err
		}
		if status != timeout {
			return status, reply, nil
		}
		tries++
		if maxTries > 0 && tries >= maxTries {
			return timeout, nil, nil
		}
	}
}

func parseWindowSize(win string) (uint32, error) {
	n, err := strconv.ParseUint(win, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindowSize, win)
	}
	return uint32(n), nil
}

// UpdateWindow asks the server to use win as its send window. The local
// window only changes once the server acknowledged the request.
func (c *Client) UpdateWindow(win string) error {
	if c.state != established {
		return ErrNotConnected
	}
	size, err := parseWindowSize(win)
	if err != nil {
		return err
	}
	request := c.endpoint.createPacket(0, 0, []byte(windowRequestPrefix+strconv.FormatUint(uint64(size), 10)))
	for {
		status, reply, err := c.sendAndAwait(request, 0)
		if err != nil {
			return err
		}
		if status == success && reply.isFlaggedAs(flagACK) {
			break
		}
	}
	c.windowSize = size
	c.log.Infof("window size changed to %d", size)
	return nil
}

// Close marks the session closed. Nothing is sent to the server.
func (c *Client) Close() error {
	if c.state != established {
		return ErrNotConnected
	}
	c.state = closed
	c.log.Info("disconnected from server")
	return nil
}

// Shutdown releases the client's socket.
func (c *Client) Shutdown() error {
	return c.endpoint.close()
}
