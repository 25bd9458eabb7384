package password

import (
	"reflect"
	"testing"
)

func TestValidateStrength(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		valid      bool
		strength   Strength
		violations []Rule
	}{
		{
			name:       "compliant twelve characters is medium",
			password:   "Abcdef1!ghij",
			valid:      true,
			strength:   StrengthMedium,
			violations: []Rule{},
		},
		{
			name:       "compliant sixteen characters is strong",
			password:   "Abcdef1!ghijklmn",
			valid:      true,
			strength:   StrengthStrong,
			violations: []Rule{},
		},
		{
			name:       "short lowercase reports every rule",
			password:   "abc",
			valid:      false,
			strength:   StrengthWeak,
			violations: []Rule{RuleMinLength, RuleUppercase, RuleDigit, RuleSymbol},
		},
		{
			name:       "empty violates all",
			password:   "",
			valid:      false,
			strength:   StrengthWeak,
			violations: []Rule{RuleMinLength, RuleUppercase, RuleLowercase, RuleDigit, RuleSymbol},
		},
		{
			name:       "long but missing symbol is weak",
			password:   "Abcdefghijklmnop1",
			valid:      false,
			strength:   StrengthWeak,
			violations: []Rule{RuleSymbol},
		},
		{
			name:       "space is not a symbol",
			password:   "Abcdef1 ghijk",
			valid:      false,
			strength:   StrengthWeak,
			violations: []Rule{RuleSymbol},
		},
		{
			name:       "length counts characters not bytes",
			password:   "Ééééé1!ééééé",
			valid:      true,
			strength:   StrengthMedium,
			violations: []Rule{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidateStrength(tc.password)
			if got.Valid != tc.valid {
				t.Fatalf("valid: want %v got %v", tc.valid, got.Valid)
			}
			if got.Strength != tc.strength {
				t.Fatalf("strength: want %s got %s", tc.strength, got.Strength)
			}
			if !reflect.DeepEqual(got.Violations, tc.violations) {
				t.Fatalf("violations: want %v got %v", tc.violations, got.Violations)
			}
		})
	}
}

func TestValidateStrengthViolationsNeverNil(t *testing.T) {
	if ValidateStrength("Abcdef1!ghij").Violations == nil {
		t.Fatal("expected empty non-nil violations")
	}
}
