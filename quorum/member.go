package quorum

import (
	"github.com/ruteri/quorum-vault/cryptoutils"
	"github.com/ruteri/quorum-vault/interfaces"
)

// MemberFactory rebuilds a public-only member capability from registry data.
type MemberFactory func(id interfaces.ID, publicKey []byte) (interfaces.Member, error)

// PublicKeyMember is the default MemberFactory for secp256k1 members.
func PublicKeyMember(id interfaces.ID, publicKey []byte) (interfaces.Member, error) {
	return cryptoutils.NewPublicMember(id, publicKey)
}
