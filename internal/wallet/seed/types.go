package seed

// Manager holds the BIP-39 seed backing a software device
type Manager interface {
	// Initialize derives the seed from a mnemonic and optional passphrase
	Initialize(mnemonic string, passphrase string) error

	// GetSeed gets the seed (from memory)
	GetSeed() []byte

	// IsInitialized checks if seed is initialized
	IsInitialized() bool

	// Clear clears the seed from memory
	Clear()
}
