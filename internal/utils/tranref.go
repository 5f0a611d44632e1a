package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateTransactionRef returns a fresh merchant transaction id,
// TXN-YYYYMMDD-HHMMSS-mmm-RRRR, which fits the gateway's 30 char limit.
func GenerateTransactionRef() string {
	now := time.Now().UTC()

	datePart := now.Format("20060102-150405")
	millis := now.Nanosecond() / int(time.Millisecond)

	// 4-digit cryptographic random
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 10000)
	}

	return fmt.Sprintf(
		"TXN-%s-%03d-%04d",
		datePart,
		millis,
		n.Int64(),
	)
}
