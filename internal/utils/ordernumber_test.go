package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-\d{6}-\d{3}-\d{4}$`)

func TestGenerateOrderNumber(t *testing.T) {
	t.Run("Format", func(t *testing.T) {
		num := GenerateOrderNumber()
		assert.Regexp(t, orderNumberPattern, num)
	})

	t.Run("EmbedsCurrentDate", func(t *testing.T) {
		num := GenerateOrderNumber()

		parts := strings.Split(num, "-")
		require.Len(t, parts, 5)
		assert.Equal(t, time.Now().UTC().Format("20060102"), parts[1])
	})

	t.Run("DiffersAcrossCalls", func(t *testing.T) {
		// The 4-digit random suffix can collide, but not across a batch.
		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			seen[GenerateOrderNumber()] = true
		}
		assert.Greater(t, len(seen), 1)
	})
}
