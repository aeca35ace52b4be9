// Package cnpj validates and formats Brazilian company tax ids.
package cnpj

import "strings"

// Clean strips everything but digits from a CNPJ in any formatting.
func Clean(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether value is a well-formed CNPJ: 14 digits with
// matching mod-11 check digits. Formatting characters are ignored.
func Valid(value string) bool {
	digits := Clean(value)
	if len(digits) != 14 {
		return false
	}
	if allSame(digits) {
		return false
	}
	return checkDigit(digits, 12) == int(digits[12]-'0') &&
		checkDigit(digits, 13) == int(digits[13]-'0')
}

// Format renders a 14-digit CNPJ as XX.XXX.XXX/XXXX-XX. Values of any
// other length are returned unchanged.
func Format(value string) string {
	digits := Clean(value)
	if len(digits) != 14 {
		return value
	}
	return digits[0:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:14]
}

func checkDigit(digits string, length int) int {
	weight := length - 7
	sum := 0
	for i := 0; i < length; i++ {
		sum += int(digits[i]-'0') * weight
		weight--
		if weight < 2 {
			weight = 9
		}
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
