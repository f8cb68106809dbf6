package container

// Bitmap holds one bit per slot of a send window.
type Bitmap struct {
	data []uint32
}

func New(size int) *Bitmap {
	return &Bitmap{data: make([]uint32, size)}
}

func (m *Bitmap) Len() int {
	return len(m.data)
}

func (m *Bitmap) Set(index uint32, value uint32) {
	if value >= 1 {
		value = 1
	}

	m.data[index] = value
}

func (m *Bitmap) Get(index uint32) uint32 {
	return m.data[index]
}

// Unset returns the indices of all slots that are still zero, in ascending order.
func (m *Bitmap) Unset() []int {
	var result []int
	for i, bit := range m.data {
		if bit == 0 {
			result = append(result, i)
		}
	}
	return result
}

func (m *Bitmap) Full() bool {
	for _, bit := range m.data {
		if bit == 0 {
			return false
		}
	}
	return true
}

// ToNumber packs the first 32 slots into an integer, slot 0 being the
// least significant bit.
func (m *Bitmap) ToNumber() uint32 {
	result := uint32(0)
	for i := 0; i < len(m.data) && i < 32; i++ {
		result |= m.Get(uint32(i)) << i
	}

	return result
}
