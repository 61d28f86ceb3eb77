package model

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	ReferralCodeLength = 6
	referralAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var referralCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// NewReferralCode returns a random uppercase alphanumeric code.
func NewReferralCode() (string, error) {
	var b strings.Builder
	b.Grow(ReferralCodeLength)

	max := big.NewInt(int64(len(referralAlphabet)))
	for i := 0; i < ReferralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(referralAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func IsReferralCode(s string) bool {
	return referralCodePattern.MatchString(s)
}
