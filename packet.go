package rxp

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

func bytesToUint32(buffer []byte) uint32 {
	return binary.BigEndian.Uint32(buffer)
}

func putUint32(buffer []byte, pos position, value uint32) {
	binary.BigEndian.PutUint32(buffer[pos.Start:pos.End], value)
}

func getUint32(buffer []byte, pos position) uint32 {
	return bytesToUint32(buffer[pos.Start:pos.End])
}

func isFlaggedAs(input uint32, flag uint32) bool {
	return input&flag == flag
}

// header is the fixed 28 byte RxP header. ackNumber and timestamp are
// reserved and always zero on the wire.
type header struct {
	sourcePort      uint32
	destinationPort uint32
	sequenceNumber  uint32
	ackNumber       uint32
	checksum        uint32
	flags           uint32
	timestamp       uint32
}

func (h *header) isFlaggedAs(flag uint32) bool {
	return isFlaggedAs(h.flags, flag)
}

func (h *header) encodeInto(buffer []byte) {
	putUint32(buffer, sourcePortPosition, h.sourcePort)
	putUint32(buffer, destinationPortPosition, h.destinationPort)
	putUint32(buffer, sequenceNumberPosition, h.sequenceNumber)
	putUint32(buffer, ackNumberPosition, h.ackNumber)
	putUint32(buffer, checksumPosition, h.checksum)
	putUint32(buffer, flagsPosition, h.flags)
	putUint32(buffer, timestampPosition, h.timestamp)
}

func decodeHeader(buffer []byte) header {
	return header{
		sourcePort:      getUint32(buffer, sourcePortPosition),
		destinationPort: getUint32(buffer, destinationPortPosition),
		sequenceNumber:  getUint32(buffer, sequenceNumberPosition),
		ackNumber:       getUint32(buffer, ackNumberPosition),
		checksum:        getUint32(buffer, checksumPosition),
		flags:           getUint32(buffer, flagsPosition),
		timestamp:       getUint32(buffer, timestampPosition),
	}
}

type packet struct {
	header header
	data   []byte
}

func encode(h header, payload []byte) []byte {
	buffer := make([]byte, headerLength+len(payload))
	h.encodeInto(buffer)
	copy(buffer[headerLength:], payload)
	return buffer
}

func decode(buffer []byte) (*packet, error) {
	if len(buffer) < headerLength {
		return nil, fmt.Errorf("%w: got %d bytes", ErrMalformedHeader, len(buffer))
	}
	if len(buffer) > maxPacketSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrPayloadTooLarge, len(buffer)-headerLength)
	}
	var data []byte
	if len(buffer) > headerLength {
		data = make([]byte, len(buffer)-headerLength)
		copy(data, buffer[headerLength:])
	}
	return &packet{header: decodeHeader(buffer), data: data}, nil
}

// checksum zeroes the checksum field of a copy of buffer and returns the
// CRC32 of the whole packet.
func checksum(buffer []byte) uint32 {
	zeroed := make([]byte, len(buffer))
	copy(zeroed, buffer)
	putUint32(zeroed, checksumPosition, 0)
	return crc32.ChecksumIEEE(zeroed)
}

func verifyChecksum(buffer []byte) error {
	if len(buffer) < headerLength {
		return ErrMalformedHeader
	}
	stored := getUint32(buffer, checksumPosition)
	computed := checksum(buffer)
	if stored != computed {
		return fmt.Errorf("%w: stored %08x computed %08x", ErrChecksumMismatch, stored, computed)
	}
	return nil
}

func (p *packet) bytes() []byte {
	return encode(p.header, p.data)
}

func (p *packet) calculateChecksum() uint32 {
	return checksum(p.bytes())
}

func (p *packet) updateChecksum() {
	p.header.checksum = p.calculateChecksum()
}

func (p *packet) isFlaggedAs(flag uint32) bool {
	return p.header.isFlaggedAs(flag)
}

func (p *packet) getSequenceNumber() uint32 {
	return p.header.sequenceNumber
}

func (p *packet) getDataAsString() string {
	return string(p.data)
}

func (p *packet) String() string {
	var flags string
	for _, f := range []struct {
		flag uint32
		name string
	}{{flagACK, "A"}, {flagSYN, "S"}, {flagFIN, "F"}} {
		if p.isFlaggedAs(f.flag) {
			flags += f.name
		}
	}
	if flags == "" {
		flags = "-"
	}
	return fmt.Sprintf("seq=%d flags=%s len=%d", p.getSequenceNumber(), flags, len(p.data))
}
