package storage

import (
	"errors"
	"strings"
)

// ErrInvalidKey is returned for keys that cannot be mapped onto every backend.
var ErrInvalidKey = errors.New("invalid storage key")

func validateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
		for _, c := range part {
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			case c == '-', c == '_', c == '.':
			default:
				return ErrInvalidKey
			}
		}
	}
	return nil
}
