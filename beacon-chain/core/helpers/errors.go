package helpers

import (
	"fmt"

	fieldparams "github.com/prysmaticlabs/epochengine/config/fieldparams"
)

// IndexLookupError is returned when a public key has no validator index in the
// epoch context. On a well formed chain this never happens, so callers treat it
// as fatal.
type IndexLookupError struct {
	pubkey [fieldparams.BLSPubkeyLength]byte
}

// NewIndexLookupError creates a new error instance.
func NewIndexLookupError(pubkey [fieldparams.BLSPubkeyLength]byte) *IndexLookupError {
	return &IndexLookupError{pubkey: pubkey}
}

// Error returns the underlying error message.
func (e *IndexLookupError) Error() string {
	return fmt.Sprintf("no validator index for public key %#x", e.pubkey)
}

// Pubkey that could not be resolved.
func (e *IndexLookupError) Pubkey() [fieldparams.BLSPubkeyLength]byte {
	return e.pubkey
}
