package sealing

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/ruteri/quorum-vault/cryptoutils"
	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/ruteri/quorum-vault/record"
	"github.com/ruteri/quorum-vault/secretsharing"
)

// Service seals documents for quorums of members and unseals them again.
type Service struct {
	cipher interfaces.SymmetricCipher
	log    *slog.Logger
}

// NewService creates a sealing service encrypting documents with cipher.
// A nil cipher selects AES-256-GCM.
func NewService(cipher interfaces.SymmetricCipher, log *slog.Logger) *Service {
	if cipher == nil {
		cipher = cryptoutils.AESGCMCipher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{cipher: cipher, log: log}
}

// Cipher returns the document cipher.
func (s *Service) Cipher() interfaces.SymmetricCipher {
	return s.cipher
}

// ReinitSecrets returns a secret sharing scheme whose field can hold maxShares shares.
func (s *Service) ReinitSecrets(maxShares int) (*secretsharing.Scheme, error) {
	return secretsharing.NewScheme(maxShares)
}

// ValidateQuorumSealInputs checks the member count and threshold of a seal and returns the
// effective threshold. A sharesRequired of interfaces.DefaultSharesRequired requires every member.
func ValidateQuorumSealInputs(members []interfaces.Member, sharesRequired int) (int, error) {
	count := len(members)
	if count < interfaces.MinShares {
		return 0, interfaces.NewError(interfaces.KindNotEnoughMembersToUnlock,
			"%d members, at least %d required", count, interfaces.MinShares).
			With("member_count", count)
	}
	if count > interfaces.MaxShares {
		return 0, interfaces.NewError(interfaces.KindTooManyMembersToUnlock,
			"%d members, at most %d supported", count, interfaces.MaxShares).
			With("member_count", count)
	}

	if sharesRequired == interfaces.DefaultSharesRequired {
		sharesRequired = count
	}
	if sharesRequired < interfaces.MinShares || sharesRequired > count {
		return 0, interfaces.NewError(interfaces.KindNotEnoughMembersToUnlock,
			"%d shares required of %d members", sharesRequired, count).
			With("shares_required", sharesRequired).
			With("member_count", count)
	}

	return sharesRequired, nil
}

// QuorumSeal encrypts document so that any sharesRequired of members can recover it.
// The record is signed by agent, which must hold its private key.
func (s *Service) QuorumSeal(ctx context.Context, agent interfaces.Member, document any, members []interfaces.Member, sharesRequired int) (*record.QuorumDataRecord, error) {
	if agent == nil {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument, "sealing agent is required")
	}
	if document == nil {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument, "document is required")
	}
	if members == nil {
		return nil, interfaces.NewError(interfaces.KindInvalidMemberArray, "members are required")
	}
	if err := checkMembers(members); err != nil {
		return nil, err
	}

	threshold, err := ValidateQuorumSealInputs(members, sharesRequired)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(document)
	if err != nil {
		return nil, interfaces.WrapError(interfaces.KindInvalidArgument, err).With("field", "document")
	}
	defer cryptoutils.WipeBytes(plaintext)

	key, err := cryptoutils.GenerateKey(s.cipher)
	if err != nil {
		return nil, interfaces.WrapError(interfaces.KindFailedToSeal, err)
	}
	defer cryptoutils.WipeBytes(key)

	encryptedData, err := s.cipher.Encrypt(key, plaintext)
	if err != nil {
		return nil, interfaces.WrapError(interfaces.KindFailedToSeal, err)
	}

	scheme, err := s.ReinitSecrets(len(members))
	if err != nil {
		return nil, err
	}

	shares, err := scheme.Split(hex.EncodeToString(key), len(members), threshold)
	if err != nil {
		return nil, asSealError(err)
	}

	encryptedShares, err := s.EncryptSharesForMembers(ctx, shares, members)
	if err != nil {
		return nil, err
	}

	memberIDs := make([]interfaces.ID, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID()
	}

	rec, err := record.New(record.Params{
		Creator:                   agent,
		MemberIDs:                 memberIDs,
		SharesRequired:            threshold,
		EncryptedData:             encryptedData,
		EncryptedSharesByMemberID: encryptedShares,
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("sealed document",
		slog.String("document_id", rec.ID().String()),
		slog.String("creator_id", agent.ID().String()),
		slog.Int("members", len(members)),
		slog.Int("shares_required", threshold),
		slog.Int("bits", scheme.Bits()))

	return rec, nil
}

// EncryptSharesForMembers encrypts shares[i] to members[i].
func (s *Service) EncryptSharesForMembers(ctx context.Context, shares []string, members []interfaces.Member) (map[interfaces.ID][]byte, error) {
	if len(shares) != len(members) {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument,
			"%d shares for %d members", len(shares), len(members))
	}

	encrypted := make(map[interfaces.ID][]byte, len(members))
	for i, m := range members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m == nil {
			return nil, interfaces.NewError(interfaces.KindMemberNotFound, "member at position %d", i)
		}

		ciphertext, err := m.EncryptShare([]byte(shares[i]))
		if err != nil {
			return nil, interfaces.WrapError(interfaces.KindFailedToSeal, err).With("member_id", m.ID().String())
		}
		encrypted[m.ID()] = ciphertext
	}

	return encrypted, nil
}

// DecryptShares decrypts the shares held by members. At least the record's threshold of
// distinct members is required and every one of them must hold its private key.
func (s *Service) DecryptShares(ctx context.Context, rec *record.QuorumDataRecord, members []interfaces.Member) ([]string, error) {
	if rec == nil {
		return nil, interfaces.NewError(interfaces.KindInvalidArgument, "record is required")
	}
	if err := checkMembers(members); err != nil {
		return nil, err
	}
	if err := checkThreshold(rec, len(members)); err != nil {
		return nil, err
	}

	for _, m := range members {
		if !m.HasPrivateKey() {
			return nil, interfaces.NewError(interfaces.KindMissingPrivateKeys,
				"member %s has no private key loaded", m.ID()).With("member_id", m.ID().String())
		}
	}

	return s.DecryptSharesForMembers(ctx, rec, members)
}

// DecryptSharesForMembers decrypts the share of every member in members.
func (s *Service) DecryptSharesForMembers(ctx context.Context, rec *record.QuorumDataRecord, members []interfaces.Member) ([]string, error) {
	shares := make([]string, 0, len(members))
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ciphertext, ok := rec.EncryptedShare(m.ID())
		if !ok {
			return nil, interfaces.NewError(interfaces.KindEncryptedShareNotFound,
				"member %s holds no share of document %s", m.ID(), rec.ID()).
				With("member_id", m.ID().String()).
				With("document_id", rec.ID().String())
		}

		share, err := m.DecryptShare(ciphertext)
		if err != nil {
			if _, typed := interfaces.KindOf(err); typed {
				return nil, err
			}
			return nil, interfaces.WrapError(interfaces.KindFailedToSeal, err).With("member_id", m.ID().String())
		}
		shares = append(shares, string(share))
	}

	return shares, nil
}

// QuorumUnseal recovers the document of rec into out using the private keys of members.
func (s *Service) QuorumUnseal(ctx context.Context, rec *record.QuorumDataRecord, members []interfaces.Member, out any) error {
	if rec == nil {
		return interfaces.NewError(interfaces.KindInvalidArgument, "record is required")
	}
	if err := checkThreshold(rec, len(members)); err != nil {
		return err
	}

	shares, err := s.DecryptShares(ctx, rec, members)
	if err != nil {
		return err
	}

	return s.QuorumUnsealWithShares(ctx, rec, shares, out)
}

// QuorumUnsealWithShares recovers the document of rec into out from already decrypted shares.
func (s *Service) QuorumUnsealWithShares(ctx context.Context, rec *record.QuorumDataRecord, shares []string, out any) error {
	if rec == nil {
		return interfaces.NewError(interfaces.KindInvalidArgument, "record is required")
	}
	if err := checkThreshold(rec, len(shares)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	scheme, err := s.ReinitSecrets(rec.ShareCount())
	if err != nil {
		return err
	}

	keyHex, err := scheme.Combine(shares)
	if err != nil {
		return asSealError(err)
	}

	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return interfaces.WrapError(interfaces.KindFailedToSeal, err)
	}
	defer cryptoutils.WipeBytes(key)

	plaintext, err := s.cipher.Decrypt(key, rec.EncryptedData())
	if err != nil {
		return interfaces.WrapError(interfaces.KindFailedToSeal, err).With("document_id", rec.ID().String())
	}
	defer cryptoutils.WipeBytes(plaintext)

	if err := json.Unmarshal(plaintext, out); err != nil {
		return interfaces.WrapError(interfaces.KindFailedToSeal, err).With("document_id", rec.ID().String())
	}

	s.log.Debug("unsealed document",
		slog.String("document_id", rec.ID().String()),
		slog.Int("shares", len(shares)),
		slog.Int("bits", scheme.Bits()))

	return nil
}

// Unseal is QuorumUnseal returning the document as a T.
func Unseal[T any](ctx context.Context, s *Service, rec *record.QuorumDataRecord, members []interfaces.Member) (T, error) {
	var out T
	if err := s.QuorumUnseal(ctx, rec, members, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// UnsealWithShares is QuorumUnsealWithShares returning the document as a T.
func UnsealWithShares[T any](ctx context.Context, s *Service, rec *record.QuorumDataRecord, shares []string) (T, error) {
	var out T
	if err := s.QuorumUnsealWithShares(ctx, rec, shares, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func checkMembers(members []interfaces.Member) error {
	seen := make(map[interfaces.ID]struct{}, len(members))
	for i, m := range members {
		if m == nil {
			return interfaces.NewError(interfaces.KindInvalidMemberArray, "nil member at position %d", i)
		}
		if _, dup := seen[m.ID()]; dup {
			return interfaces.NewError(interfaces.KindInvalidMemberArray,
				"member %s listed twice", m.ID()).With("member_id", m.ID().String())
		}
		seen[m.ID()] = struct{}{}
	}
	return nil
}

func checkThreshold(rec *record.QuorumDataRecord, provided int) error {
	required := max(rec.SharesRequired(), interfaces.MinShares)
	if provided < required {
		return interfaces.NewError(interfaces.KindNotEnoughMembersToUnlock,
			"%d of %d required shares provided", provided, required).
			With("document_id", rec.ID().String()).
			With("shares_provided", provided).
			With("shares_required", required)
	}
	return nil
}

// asSealError keeps classified failures and wraps anything else as FailedToSeal.
func asSealError(err error) error {
	if _, typed := interfaces.KindOf(err); typed {
		return err
	}
	return interfaces.WrapError(interfaces.KindFailedToSeal, err)
}
