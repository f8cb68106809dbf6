package rxp

import (
	"container/list"
	"context"
	"flag"
	"fmt"
	"net"
	"reflect"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

const (
	testReadTimeout        = 20 * time.Millisecond
	testRetransmitInterval = 30 * time.Millisecond
	testClientPort         = 4001
	testServerPort         = 4000
)

var flagVerbose = flag.Bool("rxp.verbose", false, "show more detailed console output")

type rxpTestSuite struct {
	suite.Suite
}

func (suite *rxpTestSuite) SetupSuite() {
	if *flagVerbose {
		log.SetLevel(log.TraceLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}
}

func (suite *rxpTestSuite) handleTestError(err error) {
	if err != nil {
		suite.Failf("Error occurred", "%+v", err)
	}
}

// testEntry is the log entry handed to endpoints created directly by tests.
func testEntry(name string) *log.Entry {
	return log.WithField("role", name)
}

// channelConnector is one end of an in-memory datagram link. Datagrams are
// never lost or reordered unless a packetManipulator is placed in front.
type channelConnector struct {
	in      chan []byte
	out     chan []byte
	timeout time.Duration
	closed  chan struct{}
	once    sync.Once
	peer    *channelConnector
}

func newChannelLink() (*channelConnector, *channelConnector) {
	alpha := make(chan []byte, 4096)
	beta := make(chan []byte, 4096)
	a := &channelConnector{in: alpha, out: beta, closed: make(chan struct{})}
	b := &channelConnector{in: beta, out: alpha, closed: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

func (connector *channelConnector) Close() error {
	connector.once.Do(func() {
		close(connector.closed)
	})
	return nil
}

func (connector *channelConnector) Write(buffer []byte) (statusCode, int, error) {
	datagram := make([]byte, len(buffer))
	copy(datagram, buffer)
	select {
	case <-connector.closed:
		return fail, 0, net.ErrClosed
	case <-connector.peer.closed:
		return success, len(buffer), nil
	case connector.out <- datagram:
		return success, len(buffer), nil
	}
}

func (connector *channelConnector) Read(buffer []byte) (statusCode, int, error) {
	var expired <-chan time.Time
	if connector.timeout > 0 {
		timer := time.NewTimer(connector.timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-connector.closed:
		return fail, 0, net.ErrClosed
	case datagram := <-connector.in:
		n := copy(buffer, datagram)
		return success, n, nil
	case <-expired:
		return timeout, 0, nil
	}
}

func (connector *channelConnector) SetReadTimeout(t time.Duration) {
	connector.timeout = t
}

// packetManipulator sits in front of a connector and records every packet
// written through it. It can drop or corrupt chosen data packets once and
// drop chosen acknowledgements once.
type packetManipulator struct {
	mutex         sync.Mutex
	toDropOnce    list.List
	toDropAckOnce list.List
	toCorruptOnce list.List
	written       []*packet
	extension     connector
}

func newPacketManipulator(extension connector) *packetManipulator {
	return &packetManipulator{extension: extension}
}

func (manipulator *packetManipulator) DropOnce(sequenceNumber uint32) {
	manipulator.mutex.Lock()
	defer manipulator.mutex.Unlock()
	manipulator.toDropOnce.PushFront(sequenceNumber)
}

func (manipulator *packetManipulator) DropAckOnce(sequenceNumber uint32) {
	manipulator.mutex.Lock()
	defer manipulator.mutex.Unlock()
	manipulator.toDropAckOnce.PushFront(sequenceNumber)
}

func (manipulator *packetManipulator) CorruptOnce(sequenceNumber uint32) {
	manipulator.mutex.Lock()
	defer manipulator.mutex.Unlock()
	manipulator.toCorruptOnce.PushFront(sequenceNumber)
}

func takeOnce(l *list.List, sequenceNumber uint32) bool {
	for elem := l.Front(); elem != nil; elem = elem.Next() {
		if elem.Value.(uint32) == sequenceNumber {
			l.Remove(elem)
			return true
		}
	}
	return false
}

func (manipulator *packetManipulator) Write(buffer []byte) (statusCode, int, error) {
	p, err := decode(buffer)
	if err != nil {
		return fail, 0, err
	}
	manipulator.mutex.Lock()
	manipulator.written = append(manipulator.written, p)
	drop, corrupt := false, false
	if p.isFlaggedAs(flagACK) {
		drop = takeOnce(&manipulator.toDropAckOnce, p.getSequenceNumber())
	} else {
		drop = takeOnce(&manipulator.toDropOnce, p.getSequenceNumber())
		corrupt = !drop && takeOnce(&manipulator.toCorruptOnce, p.getSequenceNumber())
	}
	manipulator.mutex.Unlock()

	if drop {
		return success, len(buffer), nil
	}
	if corrupt {
		damaged := make([]byte, len(buffer))
		copy(damaged, buffer)
		damaged[len(damaged)-1] ^= 0x01
		return manipulator.extension.Write(damaged)
	}
	return manipulator.extension.Write(buffer)
}

func (manipulator *packetManipulator) Read(buffer []byte) (statusCode, int, error) {
	return manipulator.extension.Read(buffer)
}

func (manipulator *packetManipulator) SetReadTimeout(t time.Duration) {
	manipulator.extension.SetReadTimeout(t)
}

func (manipulator *packetManipulator) Close() error {
	return manipulator.extension.Close()
}

func (manipulator *packetManipulator) packets() []*packet {
	manipulator.mutex.Lock()
	defer manipulator.mutex.Unlock()
	result := make([]*packet, len(manipulator.written))
	copy(result, manipulator.written)
	return result
}

// dataPackets returns the written packets that carry neither ACK nor SYN.
func (manipulator *packetManipulator) dataPackets() []*packet {
	var result []*packet
	for _, p := range manipulator.packets() {
		if !p.isFlaggedAs(flagACK) && !p.isFlaggedAs(flagSYN) {
			result = append(result, p)
		}
	}
	return result
}

func (manipulator *packetManipulator) countSequence(sequenceNumber uint32) int {
	count := 0
	for _, p := range manipulator.dataPackets() {
		if p.getSequenceNumber() == sequenceNumber {
			count++
		}
	}
	return count
}

type consolePrinter struct {
	extension connector
	Name      string
}

func (printer *consolePrinter) Read(buffer []byte) (statusCode, int, error) {
	status, n, err := printer.extension.Read(buffer)
	if *flagVerbose {
		printer.prettyPrint(buffer[:n], "Read(...)", status, n, err)
	}
	return status, n, err
}

func (printer *consolePrinter) Write(buffer []byte) (statusCode, int, error) {
	status, n, err := printer.extension.Write(buffer)
	if *flagVerbose {
		printer.prettyPrint(buffer, "Write(...)", status, n, err)
	}
	return status, n, err
}

func (printer *consolePrinter) prettyPrint(buffer []byte, funcName string, status statusCode, n int, err error) {
	str := "-"
	if p, decodeErr := decode(buffer); decodeErr == nil {
		str = fmt.Sprintf("%v %q", p, p.data)
	}
	println(printer.Name, reflect.TypeOf(printer).Elem().Name(), funcName, "packet:", str, "status:", status.String(), "n:", n, "error:", fmt.Sprintf("%+v", err))
}

func (printer *consolePrinter) SetReadTimeout(t time.Duration) {
	printer.extension.SetReadTimeout(t)
}

func (printer *consolePrinter) Close() error {
	return printer.extension.Close()
}

type memoryStorage struct {
	mutex sync.Mutex
	files map[string][]byte
}

func newMemoryStorage(files map[string][]byte) *memoryStorage {
	storage := &memoryStorage{files: map[string][]byte{}}
	for name, data := range files {
		storage.files[name] = data
	}
	return storage
}

func (s *memoryStorage) Read(name string) ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	data, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return data, nil
}

func (s *memoryStorage) Write(name string, data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.files[name] = data
	return nil
}

func (s *memoryStorage) get(name string) ([]byte, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	data, ok := s.files[name]
	return data, ok
}

// testPeers is a client and a listening server joined by an in-memory link.
type testPeers struct {
	client      *Client
	server      *Server
	clientLink  *packetManipulator
	serverLink  *packetManipulator
	clientFiles *memoryStorage
	serverFiles *memoryStorage
	cancel      context.CancelFunc
	done        chan error
}

func (suite *rxpTestSuite) startPeers(files map[string][]byte) *testPeers {
	clientEnd, serverEnd := newChannelLink()
	peers := &testPeers{
		clientLink:  newPacketManipulator(&consolePrinter{extension: clientEnd, Name: "client"}),
		serverLink:  newPacketManipulator(&consolePrinter{extension: serverEnd, Name: "server"}),
		clientFiles: newMemoryStorage(nil),
		serverFiles: newMemoryStorage(files),
		done:        make(chan error, 1),
	}
	peers.client = NewClient(peers.clientLink, ClientOptions{
		LocalPort:   testClientPort,
		PeerAddress: "localhost",
		PeerPort:    testServerPort,
		ReadTimeout: testReadTimeout,
	}, peers.clientFiles)
	peers.server = NewServer(peers.serverLink, ServerOptions{
		LocalPort:          testServerPort,
		PeerAddress:        "localhost",
		PeerPort:           testClientPort,
		RetransmitInterval: testRetransmitInterval,
	}, peers.serverFiles)

	ctx, cancel := context.WithCancel(context.Background())
	peers.cancel = cancel
	go func() {
		peers.done <- peers.server.Listen(ctx)
	}()
	return peers
}

// stop cancels the server and waits for Listen to return.
func (peers *testPeers) stop() error {
	peers.cancel()
	err := <-peers.done
	_ = peers.client.Shutdown()
	return err
}

func (suite *rxpTestSuite) connectPeers(files map[string][]byte) *testPeers {
	peers := suite.startPeers(files)
	suite.Require().NoError(peers.client.Connect())
	return peers
}

// testData returns n bytes of a repeating, position dependent pattern.
func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i/255)
	}
	return data
}
