package challenge

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Source draws puzzles from a random stream. Safe for concurrent use.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource returns a Source over rng, or a time-seeded stream when rng is nil.
func NewSource(rng *rand.Rand) *Source {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Source{rng: rng}
}

// Obstacle picks one of the three obstacle challenges uniformly.
func (s *Source) Obstacle() Puzzle {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ObstacleKinds[s.rng.Intn(len(ObstacleKinds))] {
	case KindAmbush:
		return s.ambush()
	case KindTrap:
		return s.trap()
	default:
		return s.surveillance()
	}
}

// Vault returns the vault challenge.
func (s *Source) Vault() Puzzle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vault()
}

func (s *Source) ambush() Puzzle {
	n := 1000 + s.rng.Intn(9000)
	return Puzzle{
		Kind:   KindAmbush,
		Prompt: fmt.Sprintf("Guards inbound! Shout the code word for %d, spelled out in words.", n),
		Answer: NumberWords(n),
	}
}

func (s *Source) trap() Puzzle {
	terms := 3 + s.rng.Intn(2)
	total := 10 + s.rng.Intn(90)
	expr := strconv.Itoa(total)
	for i := 1; i < terms; i++ {
		operand := 10 + s.rng.Intn(90)
		if s.rng.Intn(2) == 0 {
			expr += fmt.Sprintf(" + %d", operand)
			total += operand
		} else {
			expr += fmt.Sprintf(" - %d", operand)
			total -= operand
		}
	}
	return Puzzle{
		Kind:   KindTrap,
		Prompt: fmt.Sprintf("A pressure plate clicks. Disarm it: %s = ?", expr),
		Answer: strconv.Itoa(total),
	}
}

func (s *Source) surveillance() Puzzle {
	count := 3 + s.rng.Intn(3)
	perm := s.rng.Perm(99)[:count]
	numbers := make([]int, count)
	for i, v := range perm {
		numbers[i] = v + 1
	}

	sorted := append([]int(nil), numbers...)
	order := "ascending"
	if s.rng.Intn(2) == 0 {
		sort.Ints(sorted)
	} else {
		sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
		order = "descending"
	}
	return Puzzle{
		Kind:   KindSurveillance,
		Prompt: fmt.Sprintf("Camera feeds are scrambled: %s. Put them in %s order.", joinInts(numbers, ", "), order),
		Answer: joinInts(sorted, " "),
	}
}

func (s *Source) vault() Puzzle {
	letters := make([]byte, 3)
	for i := range letters {
		letters[i] = byte('A' + s.rng.Intn(26))
	}
	code := string(letters)

	encoding, rendered := "morse", EncodeMorse(code)
	if s.rng.Intn(2) == 0 {
		encoding, rendered = "binary", EncodeBinary(code)
	}
	return Puzzle{
		Kind:   KindVault,
		Prompt: fmt.Sprintf("The vault lock shows a %s code: %s. Enter the three letters.", encoding, rendered),
		Answer: code,
	}
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
