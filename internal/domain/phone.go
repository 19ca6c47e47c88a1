package domain

import "strings"

// DigitsOnly strips everything but 0-9.
func DigitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone returns the +<digits> form used as the agent key.
func NormalizePhone(phone string) string {
	d := DigitsOnly(phone)
	if d == "" {
		return ""
	}
	return "+" + d
}

// PhoneVariants forms a stored client phone may take.
func PhoneVariants(phone string) []string {
	d := DigitsOnly(phone)
	variants := []string{phone}
	if d == "" {
		return variants
	}
	for _, v := range []string{"+" + d, d} {
		if v != phone {
			variants = append(variants, v)
		}
	}
	return variants
}

// SamePhone treats two numbers as equal when the digits match or one ends
// with the last ten digits of the other (local vs international form).
func SamePhone(a, b string) bool {
	da, db := DigitsOnly(a), DigitsOnly(b)
	if da == "" || db == "" {
		return false
	}
	if da == db {
		return true
	}
	return strings.HasSuffix(da, last10(db)) || strings.HasSuffix(db, last10(da))
}

func last10(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[len(s)-10:]
}
