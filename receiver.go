package rxp

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Get downloads fileName from the server and stores it under
// receivedFileName(fileName). The request is repeated until the server
// answers, there is no retry limit.
func (c *Client) Get(fileName string) error {
	if c.state != established {
		return ErrNotConnected
	}
	payload := []byte(getRequestPrefix + fileName)
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: file name of %d bytes", ErrPayloadTooLarge, len(fileName))
	}
	entry := c.log.WithFields(log.Fields{"transfer": newTransferID(), "file": fileName})
	entry.Info("attempting file retrieval")
	if discarded, err := c.endpoint.drain(); err != nil {
		return err
	} else if discarded > 0 {
		entry.Debugf("discarded %d stale datagrams", discarded)
	}

	chunks, err := c.receiveChunks(c.endpoint.createPacket(0, 0, payload), entry)
	c.sequenceNumber = 0
	if err != nil {
		return err
	}

	data := reassemble(chunks)
	target := receivedFileName(fileName)
	if err := c.storage.Write(target, data); err != nil {
		return fmt.Errorf("error writing file %s: %w", target, err)
	}
	entry.WithField("bytes", len(data)).Infof("file was downloaded successfully as %s", target)
	return nil
}

// receiveChunks accepts only the next expected sequence number. Everything
// else is dropped and the last control packet is sent again.
func (c *Client) receiveChunks(request *packet, entry *log.Entry) ([][]byte, error) {
	c.sequenceNumber = 0
	var chunks [][]byte
	sendPkt := request
	for endOfFile := false; !endOfFile; {
		status, reply, err := c.sendAndAwait(sendPkt, 0)
		if err != nil {
			return nil, err
		}
		if status != success {
			continue
		}
		if reply.isFlaggedAs(flagACK) || reply.getSequenceNumber() != c.sequenceNumber {
			entry.Tracef("dropping %v, expecting seq=%d", reply, c.sequenceNumber)
			continue
		}
		chunks = append(chunks, reply.data)
		endOfFile = reply.isFlaggedAs(flagFIN)
		sendPkt = c.endpoint.createAckPacket(c.sequenceNumber)
		c.sequenceNumber++
	}

	if err := c.endpoint.writePacket(sendPkt); err != nil {
		return nil, err
	}
	entry.Debugf("received %d chunks", len(chunks))
	return chunks, nil
}
