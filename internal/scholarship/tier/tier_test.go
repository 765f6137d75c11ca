// internal/scholarship/tier/tier_test.go
package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmount_SeniorSecondary(t *testing.T) {
	levels := []string{
		"G11",
		"g12",
		"Grade 11",
		"Grade 12",
		"grade 12 - STEM",
		"Senior High",
		"SHS",
		"shs track A",
		"11",
		"12",
	}
	for _, level := range levels {
		assert.Equal(t, SeniorSecondaryAward, Amount(level), "level %q", level)
	}
}

func TestAmount_Default(t *testing.T) {
	levels := []string{
		"3",
		"college",
		"1st year college",
		"B.S. Computer Science",
		"2011 intake", // must not match the bare "11" token
		"",
		"   ",
		"unknown",
	}
	for _, level := range levels {
		assert.Equal(t, DefaultAward, Amount(level), "level %q", level)
	}
}
