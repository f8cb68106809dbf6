package rxp

import (
	"sync"

	"github.com/nicosta1132/rxp-go/container"
)

// windowCycle tracks the packets of one sliding window burst. The sender
// goroutine and the receive loop share it; every field below mutex is only
// touched while holding it.
type windowCycle struct {
	windowSize  uint32
	ackObserved chan struct{}

	mutex       sync.Mutex
	windowStart uint32
	cycleSize   uint32
	ackedMask   *container.Bitmap
	outstanding []*packet
}

func newWindowCycle(windowSize uint32) *windowCycle {
	if windowSize == 0 {
		windowSize = 1
	}
	return &windowCycle{
		windowSize:  windowSize,
		ackObserved: make(chan struct{}, 1),
		ackedMask:   container.New(0),
	}
}

// Begin opens the next cycle over the first min(len(remaining), windowSize)
// packets and returns them for sending.
func (w *windowCycle) Begin(remaining []*packet) []*packet {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.cycleSize = min(uint32(len(remaining)), w.windowSize)
	w.outstanding = make([]*packet, w.cycleSize)
	copy(w.outstanding, remaining)
	w.ackedMask = container.New(int(w.cycleSize))
	result := make([]*packet, len(w.outstanding))
	copy(result, w.outstanding)
	return result
}

// RecordAck marks the slot of sequenceNumber if it belongs to the open cycle.
func (w *windowCycle) RecordAck(sequenceNumber uint32) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.cycleSize == 0 || sequenceNumber < w.windowStart || sequenceNumber >= w.windowStart+w.cycleSize {
		return false
	}
	w.ackedMask.Set(sequenceNumber%w.windowSize, 1)
	w.notify()
	return true
}

// ReleaseFinal converges the open cycle if it carries the FIN chunk, so the
// sender finishes as if every slot had been acknowledged.
func (w *windowCycle) ReleaseFinal() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.cycleSize == 0 || !w.outstanding[w.cycleSize-1].isFlaggedAs(flagFIN) {
		return false
	}
	for slot := uint32(0); slot < w.cycleSize; slot++ {
		w.ackedMask.Set(slot, 1)
	}
	w.notify()
	return true
}

func (w *windowCycle) notify() {
	select {
	case w.ackObserved <- struct{}{}:
	default:
	}
}

func (w *windowCycle) PendingSlots() []int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.ackedMask.Unset()
}

// PendingPackets returns the stored packets of all slots not yet acknowledged.
func (w *windowCycle) PendingPackets() []*packet {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	var result []*packet
	for _, slot := range w.ackedMask.Unset() {
		result = append(result, w.outstanding[slot])
	}
	return result
}

func (w *windowCycle) Converged() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.ackedMask.Full()
}

// AdvanceCycle moves windowStart past the converged cycle and clears it.
func (w *windowCycle) AdvanceCycle() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.windowStart += w.cycleSize
	w.cycleSize = 0
	w.outstanding = nil
	w.ackedMask = container.New(0)
}

// AckedMask is the acknowledgement state of the open cycle as a bit field.
func (w *windowCycle) AckedMask() uint32 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.ackedMask.ToNumber()
}

func (w *windowCycle) WindowStart() uint32 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.windowStart
}

func (w *windowCycle) AckObserved() <-chan struct{} {
	return w.ackObserved
}
