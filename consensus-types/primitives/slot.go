package primitives

// Slot represents a single slot.
type Slot uint64

// Add increases slot by x, saturating instead of wrapping around.
func (s Slot) Add(x uint64) Slot {
	res := uint64(s) + x
	if res < uint64(s) {
		return Slot(^uint64(0))
	}
	return Slot(res)
}

// Mod returns result of `slot % x`.
func (s Slot) Mod(x uint64) Slot {
	return Slot(uint64(s) % x)
}
