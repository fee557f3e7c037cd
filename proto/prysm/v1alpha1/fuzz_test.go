package eth_test

import (
	"fmt"
	"testing"

	fuzz "github.com/google/gofuzz"
	eth "github.com/prysmaticlabs/epochengine/proto/prysm/v1alpha1"
	"github.com/stretchr/testify/require"
)

func fuzzCopies[T any, C eth.Copier[T]](t *testing.T, obj C) {
	fuzzer := fuzz.NewWithSeed(0)
	amount := 1000
	t.Run(fmt.Sprintf("%T", obj), func(t *testing.T) {
		for i := 0; i < amount; i++ {
			fuzzer.Fuzz(obj) // Populate thing with random values
			got := obj.Copy()
			require.Equal(t, obj, got)
			// check shallow copy working
			fuzzer.Fuzz(got)
			require.NotEqual(t, obj, got)
		}
	})
}

func TestCopyContainers(t *testing.T) {
	fuzzCopies(t, &eth.Checkpoint{})
	fuzzCopies(t, &eth.Fork{})
	fuzzCopies(t, &eth.Eth1Data{})
	fuzzCopies(t, &eth.Validator{})
	fuzzCopies(t, &eth.AttestationData{})
	fuzzCopies(t, &eth.PendingAttestation{})
	fuzzCopies(t, &eth.BeaconState{})
}

func TestCopyPendingAttestationSlice_Nil(t *testing.T) {
	require.Nil(t, eth.CopyPendingAttestationSlice(nil))
	got := eth.CopyPendingAttestationSlice([]*eth.PendingAttestation{})
	require.NotNil(t, got)
	require.Equal(t, 0, len(got))
}
