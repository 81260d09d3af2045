package challenge

import "strings"

var (
	smallNumbers = []string{
		"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
		"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
		"seventeen", "eighteen", "nineteen",
	}
	tensNumbers = []string{
		"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
	}
)

// NumberWords spells n (0 <= n < 1,000,000) in English, e.g.
// 4321 -> "four thousand three hundred twenty-one".
func NumberWords(n int) string {
	if n == 0 {
		return smallNumbers[0]
	}
	var parts []string
	if n >= 1000 {
		parts = append(parts, belowThousand(n/1000), "thousand")
		n %= 1000
	}
	if n > 0 {
		parts = append(parts, belowThousand(n))
	}
	return strings.Join(parts, " ")
}

func belowThousand(n int) string {
	var parts []string
	if n >= 100 {
		parts = append(parts, smallNumbers[n/100], "hundred")
		n %= 100
	}
	switch {
	case n == 0:
	case n < 20:
		parts = append(parts, smallNumbers[n])
	case n%10 == 0:
		parts = append(parts, tensNumbers[n/10])
	default:
		parts = append(parts, tensNumbers[n/10]+"-"+smallNumbers[n%10])
	}
	return strings.Join(parts, " ")
}
