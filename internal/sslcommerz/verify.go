package sslcommerz

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

const (
	fieldVerifyKey   = "verify_key"
	fieldVerifySign  = "verify_sign"
	fieldStorePasswd = "store_passwd"
)

// VerifyCallback checks the verify_sign of a gateway notification.
//
// The gateway signs the fields listed in verify_key together with the md5 of the
// store password: names are sorted, joined as name=value with '&', and the
// md5 hex digest of that string must equal verify_sign. A referenced field that
// is absent from the payload fails verification.
func VerifyCallback(fields map[string]string, storePassword string) error {
	keys, hasKeys := fields[fieldVerifyKey]
	sign, hasSign := fields[fieldVerifySign]
	if !hasKeys || !hasSign {
		return ErrMissingSignature
	}

	canonical, err := canonicalString(fields, keys, storePassword)
	if err != nil {
		return err
	}

	sum := md5Hex(canonical)
	if subtle.ConstantTimeCompare([]byte(sum), []byte(sign)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

// IsAuthentic reports whether VerifyCallback accepts the payload.
func IsAuthentic(fields map[string]string, storePassword string) bool {
	return VerifyCallback(fields, storePassword) == nil
}

// verificationReason gives a bounded label for a verification error.
func verificationReason(err error) string {
	var malformed *MalformedCallbackError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingSignature):
		return "missing_signature"
	case errors.As(err, &malformed):
		return "malformed"
	default:
		return "mismatch"
	}
}

func canonicalString(fields map[string]string, verifyKey, storePassword string) (string, error) {
	names := append(strings.Split(verifyKey, ","), fieldStorePasswd)
	sort.Strings(names)

	hashedPassword := md5Hex(storePassword)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		value, ok := fields[name]
		if name == fieldStorePasswd {
			value, ok = hashedPassword, true
		}
		if !ok {
			return "", &MalformedCallbackError{Field: name}
		}
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, "&"), nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
