// Package cpf validates Brazilian individual taxpayer numbers.
package cpf

// Normalize keeps only the digits of s.
func Normalize(s string) string {
	out := make([]byte, 0, 11)
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// Valid reports whether s holds a CPF with correct check digits. Punctuation
// is ignored; exactly 11 digits are required and sequences of a single
// repeated digit are rejected even though their check digits add up.
func Valid(s string) bool {
	digits := Normalize(s)
	if len(digits) != 11 {
		return false
	}

	repeated := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			repeated = false
			break
		}
	}
	if repeated {
		return false
	}

	return checkDigit(digits[:9]) == digits[9] && checkDigit(digits[:10]) == digits[10]
}

// checkDigit computes the mod-11 verifier for the given prefix. Weights
// start at len(prefix)+1 and decrease to 2.
func checkDigit(prefix string) byte {
	sum := 0
	weight := len(prefix) + 1
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * weight
		weight--
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		rest = 0
	}
	return byte('0' + rest)
}
