package rxp

import "time"

const (
	flagACK uint32 = 1 << 31
	flagSYN uint32 = 1 << 30
	flagFIN uint32 = 1 << 29
)

const (
	headerLength   = 28
	maxPayloadSize = 255
	maxPacketSize  = headerLength + maxPayloadSize
)

const (
	DefaultReadTimeout        = 500 * time.Millisecond
	DefaultMaxTries           = 50
	DefaultRetransmitInterval = 400 * time.Millisecond
	DefaultWindowSize         = 1
)

const (
	getRequestPrefix    = "get:"
	windowRequestPrefix = "window:"
	challengeLength     = 64
	challengeAlphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type statusCode int

const (
	success statusCode = iota
	fail
	invalidSegment
	timeout
)

func (code statusCode) String() string {
	switch code {
	case success:
		return "success"
	case fail:
		return "fail"
	case invalidSegment:
		return "invalidSegment"
	case timeout:
		return "timeout"
	}
	return "unknown"
}

type position struct {
	Start int
	End   int
}

var sourcePortPosition = position{0, 4}
var destinationPortPosition = position{4, 8}
var sequenceNumberPosition = position{8, 12}
var ackNumberPosition = position{12, 16}
var checksumPosition = position{16, 20}
var flagsPosition = position{20, 24}
var timestampPosition = position{24, 28}
