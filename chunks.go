package rxp

import "bytes"

// chunkCount is the number of packets needed to carry length bytes. An empty
// file still travels as one empty FIN packet.
func chunkCount(length int) int {
	if length == 0 {
		return 1
	}
	return (length + maxPayloadSize - 1) / maxPayloadSize
}

// createChunks splits data into packets numbered from 0; only the last one is
// flagged FIN.
func (e *endpoint) createChunks(data []byte) []*packet {
	count := chunkCount(len(data))
	chunks := make([]*packet, 0, count)
	for i := 0; i < count; i++ {
		start := i * maxPayloadSize
		end := min(start+maxPayloadSize, len(data))
		var flags uint32
		if i == count-1 {
			flags |= flagFIN
		}
		chunks = append(chunks, e.createPacket(uint32(i), flags, data[start:end]))
	}
	return chunks
}

func reassemble(chunks [][]byte) []byte {
	return bytes.Join(chunks, nil)
}
