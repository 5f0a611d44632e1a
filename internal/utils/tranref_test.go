package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTransactionRef(t *testing.T) {
	t.Run("Format", func(t *testing.T) {
		ref := GenerateTransactionRef()

		assert.True(t, strings.HasPrefix(ref, "TXN-"))
		assert.LessOrEqual(t, len(ref), 30)

		parts := strings.Split(ref, "-")
		if assert.Len(t, parts, 5) {
			assert.Equal(t, "TXN", parts[0])
			assert.Len(t, parts[1], 8, "date part YYYYMMDD")
			assert.Len(t, parts[2], 6, "time part HHMMSS")
			assert.Len(t, parts[3], 3, "milliseconds part")
			assert.Len(t, parts[4], 4, "random part")
		}
	})

	t.Run("Uniqueness", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 20; i++ {
			seen[GenerateTransactionRef()] = struct{}{}
		}
		assert.Greater(t, len(seen), 1)
	})
}
