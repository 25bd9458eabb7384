package password

import "unicode"

// Strength classifies a candidate password.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// Rule names one requirement of the password policy.
type Rule string

const (
	RuleMinLength Rule = "min_length"
	RuleUppercase Rule = "uppercase"
	RuleLowercase Rule = "lowercase"
	RuleDigit     Rule = "digit"
	RuleSymbol    Rule = "symbol"
)

const (
	// MinLength is the minimum number of characters.
	MinLength = 12
	// StrongLength is the length at which a compliant password counts as strong.
	StrongLength = 16
)

// StrengthReport is the outcome of [ValidateStrength]. Violations lists every failed
// rule in a stable order and is empty, never nil, for a compliant password.
type StrengthReport struct {
	Valid      bool     `json:"valid"`
	Strength   Strength `json:"strength"`
	Violations []Rule   `json:"violations"`
}

// ValidateStrength checks password against every rule and classifies it.
// Length is counted in characters, not bytes.
func ValidateStrength(password string) StrengthReport {
	length := 0
	var upper, lower, digit, symbol bool
	for _, r := range password {
		length++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r), unicode.IsSpace(r):
		default:
			symbol = true
		}
	}

	violations := make([]Rule, 0, 5)
	if length < MinLength {
		violations = append(violations, RuleMinLength)
	}
	if !upper {
		violations = append(violations, RuleUppercase)
	}
	if !lower {
		violations = append(violations, RuleLowercase)
	}
	if !digit {
		violations = append(violations, RuleDigit)
	}
	if !symbol {
		violations = append(violations, RuleSymbol)
	}

	report := StrengthReport{Valid: len(violations) == 0, Violations: violations}
	switch {
	case !report.Valid:
		report.Strength = StrengthWeak
	case length >= StrongLength:
		report.Strength = StrengthStrong
	default:
		report.Strength = StrengthMedium
	}
	return report
}
