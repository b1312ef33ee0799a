// Package password implements the stateless password policy: rule
// validation, strength scoring, rotation expiry and bcrypt hashing.
package password

// Strength labels returned by Score.
const (
	StrengthWeak   = "weak"
	StrengthMedium = "medium"
	StrengthStrong = "strong"
)

// ValidationResult lists every policy rule the candidate password violates,
// in rule order. Callers surface the full list, not only the first failure.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Strength is the additive score of a candidate password mapped to a band.
type Strength struct {
	Label string `json:"strength"`
	Score int    `json:"score"`
}

type rule struct {
	message string
	ok      func(s string) bool
}

// Rules are evaluated in this order and never short-circuited.
var rules = []rule{
	{"must be at least 8 characters long", func(s string) bool { return len(s) >= 8 }},
	{"must contain at least one uppercase letter", func(s string) bool { return countClass(s, isUpper) >= 1 }},
	{"must contain at least one lowercase letter", func(s string) bool { return countClass(s, isLower) >= 1 }},
	{"must contain at least one digit", func(s string) bool { return countClass(s, isDigit) >= 1 }},
	{"must contain at least one special character", func(s string) bool { return countClass(s, isSpecial) >= 1 }},
}

// Validate checks the candidate password against every policy rule.
// Pure function, safe to call on every input change.
func Validate(candidate string) ValidationResult {
	result := ValidationResult{IsValid: true, Errors: []string{}}
	for _, r := range rules {
		if !r.ok(candidate) {
			result.IsValid = false
			result.Errors = append(result.Errors, r.message)
		}
	}
	return result
}

// Score rates the candidate password on an additive 0-9 scale: length tiers
// at 8/12/16 characters, one point per character class present, and bonus
// points for a second uppercase letter and a second digit.
func Score(candidate string) Strength {
	score := 0

	for _, tier := range []int{8, 12, 16} {
		if len(candidate) >= tier {
			score++
		}
	}

	uppers := countClass(candidate, isUpper)
	digits := countClass(candidate, isDigit)

	if uppers >= 1 {
		score++
	}
	if countClass(candidate, isLower) >= 1 {
		score++
	}
	if digits >= 1 {
		score++
	}
	if countClass(candidate, isSpecial) >= 1 {
		score++
	}
	if uppers >= 2 {
		score++
	}
	if digits >= 2 {
		score++
	}

	label := StrengthWeak
	switch {
	case score >= 8:
		label = StrengthStrong
	case score >= 6:
		label = StrengthMedium
	}

	return Strength{Label: label, Score: score}
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isSpecial(r rune) bool {
	return !isUpper(r) && !isLower(r) && !isDigit(r)
}

func countClass(s string, class func(rune) bool) int {
	count := 0
	for _, r := range s {
		if class(r) {
			count++
		}
	}
	return count
}
