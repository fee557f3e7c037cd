package primitives

import "fmt"

// Epoch represents a single epoch.
type Epoch uint64

// Add increases epoch by x, returning the far future value instead of wrapping around.
func (e Epoch) Add(x uint64) Epoch {
	res := uint64(e) + x
	if res < uint64(e) {
		return Epoch(^uint64(0))
	}
	return Epoch(res)
}

// Sub subtracts x from the epoch, saturating at zero.
func (e Epoch) Sub(x uint64) Epoch {
	if x > uint64(e) {
		return 0
	}
	return Epoch(uint64(e) - x)
}

// Mod returns result of `epoch % x`.
func (e Epoch) Mod(x uint64) Epoch {
	return Epoch(uint64(e) % x)
}

// String returns the decimal representation used in logs.
func (e Epoch) String() string {
	return fmt.Sprintf("%d", uint64(e))
}
