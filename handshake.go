package rxp

import (
	"crypto/md5"
	"crypto/rand"
	"math/big"
)

func generateChallenge(length int) (string, error) {
	alphabetSize := big.NewInt(int64(len(challengeAlphabet)))
	text := make([]byte, length)
	for i := range text {
		index, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		text[i] = challengeAlphabet[index.Int64()]
	}
	return string(text), nil
}

func challengeDigest(challenge []byte) []byte {
	sum := md5.Sum(challenge)
	return sum[:]
}

// Connect runs the challenge-response handshake. Every step is retried up to
// MaxTries read timeouts before the attempt is abandoned.
func (c *Client) Connect() error {
	if c.state == established {
		return ErrAlreadyConnected
	}
	sendPkt := c.endpoint.createPacket(0, flagSYN, nil)
	for {
		status, reply, err := c.sendAndAwait(sendPkt, c.maxTries)
		if err != nil {
			return err
		}
		switch status {
		case timeout:
			c.log.Warnf("no response after %d tries", c.maxTries)
			return ErrHandshakeFailure
		case invalidSegment:
			continue
		}

		if reply.isFlaggedAs(flagACK) {
			c.state = established
			c.log.Info("connection established")
			return nil
		}
		c.log.Debug("received challenge, answering with digest")
		sendPkt = c.endpoint.createPacket(0, flagSYN, challengeDigest(reply.data))
	}
}

// handleHandshake answers a SYN. An empty SYN gets a fresh challenge, any SYN
// carrying a payload is taken as the answer to it. The payload is not
// compared against the digest of the issued challenge.
func (s *Server) handleHandshake(conn *serverConnection, p *packet) error {
	if len(p.data) == 0 {
		challenge, err := generateChallenge(challengeLength)
		if err != nil {
			return err
		}
		conn.challenge = challenge
		s.log.Debug("issuing challenge")
		return s.endpoint.writePacket(s.endpoint.createPacket(0, 0, []byte(challenge)))
	}
	if conn.state != established {
		s.log.Info("connection established")
	}
	conn.state = established
	return s.endpoint.writePacket(s.endpoint.createAckPacket(0))
}
