package rxp

import (
	"time"

	"github.com/google/uuid"
)

// connector is the datagram channel underneath an endpoint. Read reports an
// expired read deadline as the timeout status with a nil error.
type connector interface {
	Read(buffer []byte) (statusCode, int, error)
	Write(buffer []byte) (statusCode, int, error)
	SetReadTimeout(t time.Duration)
	Close() error
}

type role int

const (
	clientRole role = iota
	serverRole
)

func (r role) String() string {
	if r == serverRole {
		return "server"
	}
	return "client"
}

type connState int

const (
	closed connState = iota
	established
)

func (s connState) String() string {
	if s == established {
		return "ESTABLISHED"
	}
	return "CLOSED"
}

var newTransferID = func() string {
	return uuid.NewString()
}
