package field_params

const (
	RootLength         = 32 // RootLength defines the byte length of a Merkle root.
	BLSPubkeyLength    = 48 // BLSPubkeyLength defines the byte length of a BLS public key.
	VersionLength      = 4  // VersionLength defines the byte length of a fork version number.
	JustificationBits  = 4  // JustificationBits defines the number of bits tracked by the justification bitvector.
	DomainLength       = 4  // DomainLength defines the byte length of a signature domain type.
	ShuffleRoundsLimit = 256
)
