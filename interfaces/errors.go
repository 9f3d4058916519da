package interfaces

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind discriminates domain failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota

	// Input validation
	KindNotEnoughMembersToUnlock
	KindTooManyMembersToUnlock
	KindInvalidBitRange
	KindInvalidMemberArray
	KindMustShareWithAtLeastTwoMembers
	KindSharesRequiredExceedsMembers
	KindSharesRequiredMustBeAtLeastTwo
	KindInvalidArgument
	KindInvalidRecordFormat

	// Integrity
	KindInvalidChecksum
	KindInvalidSignature

	// Lookup
	KindMemberNotFound
	KindDocumentNotFound
	KindEncryptedShareNotFound

	// Capability
	KindMissingPrivateKeys

	// Wrapped primitive failure
	KindFailedToSeal
)

// ErrorCategory groups kinds by how a caller is expected to react.
type ErrorCategory int

const (
	CategoryUnknown ErrorCategory = iota
	CategoryValidation
	CategoryIntegrity
	CategoryLookup
	CategoryCapability
	CategoryWrapped
)

var kindNames = map[ErrorKind]string{
	KindNotEnoughMembersToUnlock:       "NotEnoughMembersToUnlock",
	KindTooManyMembersToUnlock:         "TooManyMembersToUnlock",
	KindInvalidBitRange:                "InvalidBitRange",
	KindInvalidMemberArray:             "InvalidMemberArray",
	KindMustShareWithAtLeastTwoMembers: "MustShareWithAtLeastTwoMembers",
	KindSharesRequiredExceedsMembers:   "SharesRequiredExceedsMembers",
	KindSharesRequiredMustBeAtLeastTwo: "SharesRequiredMustBeAtLeastTwo",
	KindInvalidArgument:                "InvalidArgument",
	KindInvalidRecordFormat:            "InvalidRecordFormat",
	KindInvalidChecksum:                "InvalidChecksum",
	KindInvalidSignature:               "InvalidSignature",
	KindMemberNotFound:                 "MemberNotFound",
	KindDocumentNotFound:               "DocumentNotFound",
	KindEncryptedShareNotFound:         "EncryptedShareNotFound",
	KindMissingPrivateKeys:             "MissingPrivateKeys",
	KindFailedToSeal:                   "FailedToSeal",
}

var kindMessages = map[ErrorKind]string{
	KindNotEnoughMembersToUnlock:       "not enough members to unlock",
	KindTooManyMembersToUnlock:         "too many members to unlock",
	KindInvalidBitRange:                "invalid bit range",
	KindInvalidMemberArray:             "invalid member array",
	KindMustShareWithAtLeastTwoMembers: "must share with at least two members",
	KindSharesRequiredExceedsMembers:   "shares required exceeds members",
	KindSharesRequiredMustBeAtLeastTwo: "shares required must be at least two",
	KindInvalidArgument:                "invalid argument",
	KindInvalidRecordFormat:            "invalid record format",
	KindInvalidChecksum:                "invalid checksum",
	KindInvalidSignature:               "invalid signature",
	KindMemberNotFound:                 "member not found",
	KindDocumentNotFound:               "document not found",
	KindEncryptedShareNotFound:         "encrypted share not found",
	KindMissingPrivateKeys:             "missing private keys",
	KindFailedToSeal:                   "failed to seal",
}

// String returns the stable name of the kind, suitable as a localization key.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseErrorKind returns the kind named name, as produced by String.
func ParseErrorKind(name string) (ErrorKind, bool) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, true
		}
	}
	return KindUnknown, false
}

// Category returns the category of the kind.
func (k ErrorKind) Category() ErrorCategory {
	switch k {
	case KindNotEnoughMembersToUnlock, KindTooManyMembersToUnlock, KindInvalidBitRange,
		KindInvalidMemberArray, KindMustShareWithAtLeastTwoMembers, KindSharesRequiredExceedsMembers,
		KindSharesRequiredMustBeAtLeastTwo, KindInvalidArgument, KindInvalidRecordFormat:
		return CategoryValidation
	case KindInvalidChecksum, KindInvalidSignature:
		return CategoryIntegrity
	case KindMemberNotFound, KindDocumentNotFound, KindEncryptedShareNotFound:
		return CategoryLookup
	case KindMissingPrivateKeys:
		return CategoryCapability
	case KindFailedToSeal:
		return CategoryWrapped
	default:
		return CategoryUnknown
	}
}

// QuorumError is a domain failure carrying its kind and optional context.
type QuorumError struct {
	Kind    ErrorKind
	Message string
	Context map[string]any
	Err     error
}

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *QuorumError {
	return &QuorumError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an error of the given kind preserving err as its cause.
func WrapError(kind ErrorKind, err error) *QuorumError {
	return &QuorumError{Kind: kind, Err: err}
}

// With returns a copy of the error with key set in its context.
func (e *QuorumError) With(key string, value any) *QuorumError {
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value

	return &QuorumError{Kind: e.Kind, Message: e.Message, Context: ctx, Err: e.Err}
}

func (e *QuorumError) Error() string {
	parts := []string{kindMessages[e.Kind]}
	if parts[0] == "" {
		parts[0] = "quorum error"
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *QuorumError) Unwrap() error {
	return e.Err
}

// Is matches any error of the same kind against a bare sentinel.
func (e *QuorumError) Is(target error) bool {
	t, ok := target.(*QuorumError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil && len(t.Context) == 0
}

// KindOf extracts the kind of a domain error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var qe *QuorumError
	if errors.As(err, &qe) {
		return qe.Kind, true
	}
	return KindUnknown, false
}

var (
	ErrNotEnoughMembersToUnlock       = &QuorumError{Kind: KindNotEnoughMembersToUnlock}
	ErrTooManyMembersToUnlock         = &QuorumError{Kind: KindTooManyMembersToUnlock}
	ErrInvalidBitRange                = &QuorumError{Kind: KindInvalidBitRange}
	ErrInvalidMemberArray             = &QuorumError{Kind: KindInvalidMemberArray}
	ErrMustShareWithAtLeastTwoMembers = &QuorumError{Kind: KindMustShareWithAtLeastTwoMembers}
	ErrSharesRequiredExceedsMembers   = &QuorumError{Kind: KindSharesRequiredExceedsMembers}
	ErrSharesRequiredMustBeAtLeastTwo = &QuorumError{Kind: KindSharesRequiredMustBeAtLeastTwo}
	ErrInvalidArgument                = &QuorumError{Kind: KindInvalidArgument}
	ErrInvalidRecordFormat            = &QuorumError{Kind: KindInvalidRecordFormat}
	ErrInvalidChecksum                = &QuorumError{Kind: KindInvalidChecksum}
	ErrInvalidSignature               = &QuorumError{Kind: KindInvalidSignature}
	ErrMemberNotFound                 = &QuorumError{Kind: KindMemberNotFound}
	ErrDocumentNotFound               = &QuorumError{Kind: KindDocumentNotFound}
	ErrEncryptedShareNotFound         = &QuorumError{Kind: KindEncryptedShareNotFound}
	ErrMissingPrivateKeys             = &QuorumError{Kind: KindMissingPrivateKeys}
	ErrFailedToSeal                   = &QuorumError{Kind: KindFailedToSeal}
)
