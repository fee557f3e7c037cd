package eth

import (
	ssz "github.com/ferranbt/fastssz"
)

// HistoricalBatch is the container whose root is accumulated into the
// historical roots every SLOTS_PER_HISTORICAL_ROOT slots.
type HistoricalBatch struct {
	BlockRoots [][32]byte
	StateRoots [][32]byte
}

// HashTreeRoot ssz hashes the HistoricalBatch object
func (h *HistoricalBatch) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(h)
}

// HashTreeRootWith ssz hashes the HistoricalBatch object with a hasher
func (h *HistoricalBatch) HashTreeRootWith(hh *ssz.Hasher) (err error) {
	indx := hh.Index()

	// Field (0) 'BlockRoots'
	if len(h.BlockRoots) == 0 || len(h.BlockRoots) != len(h.StateRoots) {
		err = ssz.ErrIncorrectListSize
		return
	}
	{
		subIndx := hh.Index()
		for _, i := range h.BlockRoots {
			hh.PutBytes(i[:])
		}
		hh.Merkleize(subIndx)
	}

	// Field (1) 'StateRoots'
	{
		subIndx := hh.Index()
		for _, i := range h.StateRoots {
			hh.PutBytes(i[:])
		}
		hh.Merkleize(subIndx)
	}

	hh.Merkleize(indx)
	return
}
