package interfaces

const (
	// MinShares is the smallest number of members a document can be sealed for.
	MinShares = 2

	// MaxShares is the largest number of members a document can be sealed for.
	// The underlying secret sharing works over GF(2^8), so at most 255 distinct
	// x-coordinates exist.
	MaxShares = 255

	// MinBits and MaxBits bound the Galois-field bit-width of a sharing scheme.
	MinBits = 3
	MaxBits = 20

	// DefaultSharesRequired asks the sealing layer to require every member.
	DefaultSharesRequired = 0

	// SharesRequiredUnset marks a record without a threshold. Only an empty
	// record may carry it.
	SharesRequiredUnset = -1
)
