package eth_test

import (
	"crypto/sha256"
	"testing"

	eth "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashPair(a, b [32]byte) [32]byte {
	return sha256.Sum256(append(a[:], b[:]...))
}

func vectorRoot(roots [][32]byte) [32]byte {
	layer := roots
	for len(layer) > 1 {
		next := make([][32]byte, len(layer)/2)
		for i := range next {
			next[i] = hashPair(layer[2*i], layer[2*i+1])
		}
		layer = next
	}
	return layer[0]
}

func TestHistoricalBatch_HashTreeRoot(t *testing.T) {
	batch := &eth.HistoricalBatch{
		BlockRoots: [][32]byte{{1}, {2}, {3}, {4}},
		StateRoots: [][32]byte{{5}, {6}, {7}, {8}},
	}
	got, err := batch.HashTreeRoot()
	require.NoError(t, err)

	want := hashPair(vectorRoot(batch.BlockRoots), vectorRoot(batch.StateRoots))
	assert.Equal(t, want, got)
}

func TestHistoricalBatch_HashTreeRoot_LengthMismatch(t *testing.T) {
	batch := &eth.HistoricalBatch{
		BlockRoots: [][32]byte{{1}, {2}},
		StateRoots: [][32]byte{{5}},
	}
	_, err := batch.HashTreeRoot()
	require.Error(t, err)
}
