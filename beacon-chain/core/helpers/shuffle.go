package helpers

import (
	"encoding/binary"

	"github.com/pkg/errors"
	fieldparams "github.com/prysmaticlabs/epochengine/config/fieldparams"
	"github.com/prysmaticlabs/epochengine/config/params"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/crypto/hash"
	"github.com/prysmaticlabs/epochengine/encoding/bytesutil"
)

const seedSize = int8(32)
const roundSize = int8(1)
const positionWindowSize = int8(4)
const pivotViewSize = seedSize + roundSize
const totalSize = seedSize + roundSize + positionWindowSize

var maxShuffleListSize uint64 = 1 << 40

// ShuffledIndex returns `p(index)` in a pseudorandom permutation `p` of `0...list_size - 1` with ``seed`` as entropy.
// We utilize 'swap or not' shuffling in this implementation; we are allocating the memory with the seed that stays
// constant between iterations instead of reallocating it each iteration as in the spec. This implementation is based
// on the original implementation from protolambda, https://github.com/protolambda/eth2-shuffle
func ShuffledIndex(index types.ValidatorIndex, indexCount uint64, seed [32]byte) (types.ValidatorIndex, error) {
	idx, err := ComputeShuffledIndex(uint64(index), indexCount, seed, true /* shuffle */)
	return types.ValidatorIndex(idx), err
}

// UnShuffledIndex returns the inverse of ShuffledIndex. This implementation is based
// on the original implementation from protolambda, https://github.com/protolambda/eth2-shuffle
func UnShuffledIndex(index types.ValidatorIndex, indexCount uint64, seed [32]byte) (types.ValidatorIndex, error) {
	idx, err := ComputeShuffledIndex(uint64(index), indexCount, seed, false /* un-shuffle */)
	return types.ValidatorIndex(idx), err
}

// ComputeShuffledIndex returns the shuffled validator index corresponding to seed and index count.
//
// Spec pseudocode definition:
//
//	def compute_shuffled_index(index: uint64, index_count: uint64, seed: Bytes32) -> uint64:
//	  """
//	  Return the shuffled index corresponding to ``seed`` (and ``index_count``).
//	  """
//	  assert index < index_count
//
//	  # Swap or not (https://link.springer.com/content/pdf/10.1007%2F978-3-642-32009-5_1.pdf)
//	  # See the 'generalized domain' algorithm on page 3
//	  for current_round in range(SHUFFLE_ROUND_COUNT):
//	      pivot = bytes_to_uint64(hash(seed + uint_to_bytes(uint8(current_round)))[0:8]) % index_count
//	      flip = (pivot + index_count - index) % index_count
//	      position = max(index, flip)
//	      source = hash(
//	          seed
//	          + uint_to_bytes(uint8(current_round))
//	          + uint_to_bytes(uint32(position // 256))
//	      )
//	      byte = uint8(source[(position % 256) // 8])
//	      bit = (byte >> (position % 8)) % 2
//	      index = flip if bit else index
//
//	  return index
func ComputeShuffledIndex(index, indexCount uint64, seed [32]byte, shuffle bool) (uint64, error) {
	if params.BeaconConfig().ShuffleRoundCount == 0 {
		return index, nil
	}
	if index >= indexCount {
		return 0, errors.Errorf("input index %d out of bounds: %d", index, indexCount)
	}
	if indexCount > maxShuffleListSize {
		return 0, errors.Errorf("list size %d out of bounds", indexCount)
	}
	return newIndexShuffler(seed, indexCount).index(index, shuffle)
}

// indexShuffler maps single indices through the swap-or-not permutation of one
// (seed, index count) pair. The per round pivots are derived once so that repeated
// lookups, as in proposer sampling, only pay for the position hashes.
type indexShuffler struct {
	count    uint64
	pivots   []uint64
	buf      []byte
	posBuf   []byte
	hashFunc func([]byte) [32]byte
}

func newIndexShuffler(seed [32]byte, indexCount uint64) *indexShuffler {
	rounds := params.BeaconConfig().ShuffleRoundCount
	if rounds > fieldparams.ShuffleRoundsLimit {
		rounds = fieldparams.ShuffleRoundsLimit
	}
	s := &indexShuffler{
		count:    indexCount,
		pivots:   make([]uint64, rounds),
		buf:      make([]byte, totalSize),
		posBuf:   make([]byte, 8),
		hashFunc: hash.CustomSHA256Hasher(),
	}
	copy(s.buf[:seedSize], seed[:])
	if indexCount == 0 {
		return s
	}
	for r := uint64(0); r < rounds; r++ {
		s.buf[seedSize] = uint8(r)
		h := s.hashFunc(s.buf[:pivotViewSize])
		s.pivots[r] = bytesutil.FromBytes8(h[:8]) % indexCount
	}
	return s
}

func (s *indexShuffler) index(index uint64, shuffle bool) (uint64, error) {
	if index >= s.count {
		return 0, errors.Errorf("input index %d out of bounds: %d", index, s.count)
	}
	rounds := len(s.pivots)
	if rounds == 0 {
		return index, nil
	}
	round := 0
	if !shuffle {
		round = rounds - 1
	}
	for {
		s.buf[seedSize] = uint8(round)
		pivot := s.pivots[round]
		flip := (pivot + s.count - index) % s.count
		position := index
		if flip > position {
			position = flip
		}
		binary.LittleEndian.PutUint64(s.posBuf, position>>8)
		copy(s.buf[pivotViewSize:], s.posBuf[:4])
		source := s.hashFunc(s.buf)
		byteV := source[(position&0xff)>>3]
		bitV := (byteV >> (position & 0x7)) & 0x1
		if bitV == 1 {
			index = flip
		}
		if shuffle {
			round++
			if round == rounds {
				break
			}
		} else {
			if round == 0 {
				break
			}
			round--
		}
	}
	return index, nil
}

// ShuffleList returns list of shuffled indexes in a pseudorandom permutation `p` of `0...list_size - 1` with ``seed`` as entropy.
// We utilize 'swap or not' shuffling in this implementation; we are allocating the memory with the seed that stays
// constant between iterations instead of reallocating it each iteration as in the spec. This implementation is based
// on the original implementation from protolambda, https://github.com/protolambda/eth2-shuffle
//
//	improvements:
//	 - seed is always the first 32 bytes of the hash input, we just copy it into the buffer one time.
//	 - add round byte to seed and hash that part of the buffer.
//	 - split up the for-loop in two:
//	  1. Handle the part from 0 (incl) to pivot (incl). This is mirrored around (pivot / 2).
//	  2. Handle the part from pivot (excl) to N (excl). This is mirrored around ((pivot / 2) + (size/2)).
//	 - hash source every 256 iterations.
//	 - change byteV every 8 iterations.
//	 - we start at the edges, and work back to the mirror point.
//	   this makes us process each pear exactly once (instead of unnecessarily twice, like in the spec).
func ShuffleList(input []types.ValidatorIndex, seed [32]byte) ([]types.ValidatorIndex, error) {
	tmp := make([]types.ValidatorIndex, len(input))
	copy(tmp, input)
	return innerShuffleList(tmp, seed, true /* shuffle */)
}

// UnshuffleList un-shuffles the list by running backwards through the round count.
// Element i of the result is input[ComputeShuffledIndex(i, len(input), seed, true)],
// which makes a beacon committee a contiguous slice of the unshuffled list.
func UnshuffleList(input []types.ValidatorIndex, seed [32]byte) ([]types.ValidatorIndex, error) {
	tmp := make([]types.ValidatorIndex, len(input))
	copy(tmp, input)
	return innerShuffleList(tmp, seed, false /* un-shuffle */)
}

// shuffles or unshuffles, shuffle=false to un-shuffle.
func innerShuffleList(input []types.ValidatorIndex, seed [32]byte, shuffle bool) ([]types.ValidatorIndex, error) {
	if len(input) <= 1 {
		return input, nil
	}
	if uint64(len(input)) > maxShuffleListSize {
		return nil, errors.Errorf("list size %d out of bounds", len(input))
	}
	rounds := uint8(params.BeaconConfig().ShuffleRoundCount)
	hashFunc := hash.CustomSHA256Hasher()
	if rounds == 0 {
		return input, nil
	}
	listSize := uint64(len(input))
	buf := make([]byte, totalSize)
	r := uint8(0)
	if !shuffle {
		r = rounds - 1
	}
	copy(buf[:seedSize], seed[:])
	for {
		buf[seedSize] = r
		ph := hashFunc(buf[:pivotViewSize])
		pivot := bytesutil.FromBytes8(ph[:8]) % listSize
		mirror := (pivot + 1) >> 1
		binary.LittleEndian.PutUint32(buf[pivotViewSize:], uint32(pivot>>8))
		source := hashFunc(buf)
		byteV := source[(pivot&0xff)>>3]
		for i, j := uint64(0), pivot; i < mirror; i, j = i+1, j-1 {
			byteV, source = swapOrNot(buf, byteV, i, input, j, source, hashFunc)
		}
		// Now repeat, but for the part after the pivot.
		mirror = (pivot + listSize + 1) >> 1
		end := listSize - 1
		binary.LittleEndian.PutUint32(buf[pivotViewSize:], uint32(end>>8))
		source = hashFunc(buf)
		byteV = source[(end&0xff)>>3]
		for i, j := pivot+1, end; i < mirror; i, j = i+1, j-1 {
			byteV, source = swapOrNot(buf, byteV, i, input, j, source, hashFunc)
		}
		if shuffle {
			r++
			if r == rounds {
				break
			}
		} else {
			if r == 0 {
				break
			}
			r--
		}
	}
	return input, nil
}

// swapOrNot describes the main algorithm behind the shuffle where we swap bytes in the inputted value
// depending on if the conditions are met.
func swapOrNot(buf []byte, byteV byte, i uint64, input []types.ValidatorIndex,
	j uint64, source [32]byte, hashFunc func([]byte) [32]byte) (byte, [32]byte) {
	if j&0xff == 0xff {
		// just overwrite the last part of the buffer, reuse the start (seed, round)
		binary.LittleEndian.PutUint32(buf[pivotViewSize:], uint32(j>>8))
		source = hashFunc(buf)
	}
	if j&0x7 == 0x7 {
		byteV = source[(j&0xff)>>3]
	}
	bitV := (byteV >> (j & 0x7)) & 0x1

	if bitV == 1 {
		input[i], input[j] = input[j], input[i]
	}
	return byteV, source
}
