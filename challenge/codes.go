package challenge

import (
	"fmt"
	"strings"
)

var morseTable = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".", 'F': "..-.",
	'G': "--.", 'H': "....", 'I': "..", 'J': ".---", 'K': "-.-", 'L': ".-..",
	'M': "--", 'N': "-.", 'O': "---", 'P': ".--.", 'Q': "--.-", 'R': ".-.",
	'S': "...", 'T': "-", 'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-",
	'Y': "-.--", 'Z': "--..",
}

// EncodeMorse renders uppercase letters as Morse, letters separated by " / ".
func EncodeMorse(s string) string {
	codes := make([]string, 0, len(s))
	for _, r := range strings.ToUpper(s) {
		if code, ok := morseTable[r]; ok {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, " / ")
}

// EncodeBinary renders each letter as its 8-bit ASCII code.
func EncodeBinary(s string) string {
	codes := make([]string, 0, len(s))
	for _, r := range strings.ToUpper(s) {
		codes = append(codes, fmt.Sprintf("%08b", r))
	}
	return strings.Join(codes, " ")
}
