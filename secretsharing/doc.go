// Package secretsharing adapts Shamir's Secret Sharing for sealing document keys.
//
// A Scheme is configured with a Galois-field bit-width derived from the number
// of shares it must be able to represent. The width is a property of the
// original split: shares carry it in their encoding and Combine refuses shares
// produced under a different width, instead of silently reconstructing garbage.
//
// Schemes are immutable values. Each seal or unseal operation derives its own
// scheme, so differently sized operations never share mutable configuration.
//
// Share encoding (hex text, lowercase):
//
//	<bits, one base36 digit><x-coordinate, fixed-width hex><share bytes hex>
//
// The arithmetic is delegated to github.com/hashicorp/vault/shamir, which works
// over GF(2^8); interfaces.MaxShares reflects that bound.
package secretsharing
