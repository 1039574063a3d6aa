package editor

import (
	"math"
	"strings"
)

// ParseDigits reads the leading decimal digits of s, after optional blanks
// and sign, and stops at the first other character. No digits yields 0, and
// values beyond the int32 range saturate.
func ParseDigits(s string) int {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		if n > math.MaxInt32 {
			n = math.MaxInt32
			break
		}
	}
	if neg {
		return -n
	}
	return n
}
