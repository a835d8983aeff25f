package httpapi

import (
	"errors"
	"regexp"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Registration field limits.
const (
	maxNameLen        = 50
	maxDescriptionLen = 500
	maxTwitterLen     = 50
)

var base58Pattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

var (
	errInvalidWallet = errors.New("wallet is not a valid Solana address")
	errInvalidName   = errors.New("name must be 1-50 characters")
)

// validateWallet checks that the address is well-formed base58, decodes
// to 32 bytes and lies on the ed25519 curve. Off-curve addresses are
// program-derived accounts, which cannot sign trades.
func validateWallet(address string) error {
	if !base58Pattern.MatchString(address) {
		return errInvalidWallet
	}
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		return errInvalidWallet
	}
	if !isOnCurve(raw) {
		return errInvalidWallet
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// validateRegistration checks a registration payload in place, trimming
// surrounding whitespace from free-text fields.
func validateRegistration(req *registerRequest) error {
	if err := validateWallet(req.Wallet); err != nil {
		return err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > maxNameLen {
		return errInvalidName
	}

	req.Description = strings.TrimSpace(req.Description)
	if len(req.Description) > maxDescriptionLen {
		return errors.New("description must be at most 500 characters")
	}

	req.Twitter = strings.TrimSpace(req.Twitter)
	if len(req.Twitter) > maxTwitterLen {
		return errors.New("twitter handle must be at most 50 characters")
	}

	return nil
}
