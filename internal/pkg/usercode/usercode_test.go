package usercode

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, 3, 15, 10, 30, 45, 0, time.UTC)

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func TestGenerateLengthAndCharset(t *testing.T) {
	code := Generate("", testNow, nil)
	assert.Len(t, code, CodeLength)
	assert.True(t, allDigits(code))
}

func TestGenerateTimestampPrefix(t *testing.T) {
	code := Generate("", testNow, nil)
	assert.True(t, strings.HasPrefix(code, "20260315103045"))
}

func TestGenerateSeedExtendsTimestamp(t *testing.T) {
	// 种子在时间戳前缀之上扩展时被采纳
	code := Generate("20260315103045-99", testNow, nil)
	assert.True(t, strings.HasPrefix(code, "2026031510304599"))
	assert.Len(t, code, CodeLength)
}

func TestGenerateSeedWithoutPrefixIgnored(t *testing.T) {
	code := Generate("99999999999999", testNow, nil)
	assert.True(t, strings.HasPrefix(code, "20260315103045"))
}

func TestGenerateSeedTooLongTruncated(t *testing.T) {
	seed := "20260315103045" + strings.Repeat("7", 30)
	code := Generate(seed, testNow, nil)
	assert.Len(t, code, CodeLength)
	assert.Equal(t, "20260315103045777777", code)
}

func TestGenerateCollisionRetries(t *testing.T) {
	calls := 0
	exists := func(code string) bool {
		calls++
		return calls <= 3
	}
	code := Generate("", testNow, exists)
	assert.Len(t, code, CodeLength)
	assert.True(t, strings.HasPrefix(code, "20260315103045"))
	assert.Equal(t, 4, calls)
}

func TestGenerateAllCollisionsStillReturns(t *testing.T) {
	exists := func(code string) bool { return true }
	code := Generate("", testNow, exists)
	assert.Len(t, code, CodeLength)
	assert.True(t, allDigits(code))
}

func TestGenerateUniqueAcrossCalls(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := Generate("", testNow, func(c string) bool { return seen[c] })
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}
