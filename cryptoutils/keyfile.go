package cryptoutils

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/quorum-vault/interfaces"
)

// MemberKeyFile is the JSON representation of a member identity.
type MemberKeyFile struct {
	ID         string `json:"id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key,omitempty"`
}

// NewMemberKeyFile describes m. The private key is included only when requested and loaded.
func NewMemberKeyFile(m *KeyMember, includePrivate bool) MemberKeyFile {
	f := MemberKeyFile{
		ID:        m.ID().String(),
		PublicKey: hexutil.Encode(m.PublicKey()),
	}
	if includePrivate && m.HasPrivateKey() {
		f.PrivateKey = hexutil.Encode(m.PrivateKeyBytes())
	}
	return f
}

// Member reconstructs the member described by the file.
func (f MemberKeyFile) Member() (*KeyMember, error) {
	id, err := interfaces.NewIDFromHex(f.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid member id: %w", err)
	}

	if f.PrivateKey != "" {
		raw, err := hexutil.Decode(f.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid private key encoding: %w", err)
		}
		privateKey, err := crypto.ToECDSA(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}

		member := NewPrivateMember(id, privateKey)
		if f.PublicKey != "" && f.PublicKey != hexutil.Encode(member.PublicKey()) {
			return nil, fmt.Errorf("public key does not match private key for member %s", id)
		}
		return member, nil
	}

	publicKey, err := hexutil.Decode(f.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid public key encoding: %w", err)
	}
	return NewPublicMember(id, publicKey)
}

// LoadMemberKeyFile reads a member identity from path.
func LoadMemberKeyFile(path string) (*KeyMember, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	var f MemberKeyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse key file %s: %w", path, err)
	}
	return f.Member()
}

// SaveMemberKeyFile writes a member identity to path with owner-only permissions.
func SaveMemberKeyFile(path string, m *KeyMember, includePrivate bool) error {
	data, err := json.MarshalIndent(NewMemberKeyFile(m, includePrivate), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}
