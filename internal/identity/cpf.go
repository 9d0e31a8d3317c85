package identity

// NormalizeCPF strips everything but digits from a CPF string.
func NormalizeCPF(raw string) string {
	out := make([]byte, 0, 11)
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			out = append(out, raw[i])
		}
	}
	return string(out)
}

// ValidCPF reports whether raw is a structurally valid CPF: 11 digits, not
// a single repeated digit, and both mod-11 check digits correct.
func ValidCPF(raw string) bool {
	cpf := NormalizeCPF(raw)
	if len(cpf) != 11 {
		return false
	}

	repeated := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			repeated = false
			break
		}
	}
	if repeated {
		return false
	}

	if checkDigit(cpf, 9) != int(cpf[9]-'0') {
		return false
	}
	return checkDigit(cpf, 10) == int(cpf[10]-'0')
}

// checkDigit computes the mod-11 verifier over the first length digits.
func checkDigit(cpf string, length int) int {
	sum := 0
	for i := 0; i < length; i++ {
		sum += int(cpf[i]-'0') * (length + 1 - i)
	}
	digit := sum * 10 % 11
	if digit == 10 {
		digit = 0
	}
	return digit
}
