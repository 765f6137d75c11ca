// internal/scholarship/tier/tier.go
package tier

import "strings"

// Award amounts per scholar tier, in whole currency units.
const (
	SeniorSecondaryAward int64 = 500
	DefaultAward         int64 = 1000
)

// seniorTokens are matched as case-insensitive substrings of the
// academic-level field.
var seniorTokens = []string{
	"grade 11",
	"grade 12",
	"g11",
	"g12",
	"senior high",
	"shs",
}

// exactSeniorTokens are matched only against the whole trimmed level,
// so a college token like "2011 intake" is not misread as grade 11.
var exactSeniorTokens = []string{"11", "12"}

// Amount maps an applicant's academic-level token to the fixed award
// amount. Total function: unrecognized or empty levels get DefaultAward.
func Amount(level string) int64 {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "" {
		return DefaultAward
	}
	for _, token := range exactSeniorTokens {
		if normalized == token {
			return SeniorSecondaryAward
		}
	}
	for _, token := range seniorTokens {
		if strings.Contains(normalized, token) {
			return SeniorSecondaryAward
		}
	}
	return DefaultAward
}
