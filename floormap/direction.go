package floormap

import "strings"

// Direction is one of the four cardinal moves.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "unknown"
	}
}

// Step returns p moved one cell in d. The result may be off the grid.
func (d Direction) Step(p Position) Position {
	switch d {
	case DirUp:
		p.Y--
	case DirDown:
		p.Y++
	case DirLeft:
		p.X--
	case DirRight:
		p.X++
	}
	return p
}

var directionWords = map[string]Direction{
	"up": DirUp, "north": DirUp, "u": DirUp, "n": DirUp,
	"down": DirDown, "south": DirDown, "d": DirDown, "s": DirDown,
	"left": DirLeft, "west": DirLeft, "l": DirLeft, "w": DirLeft,
	"right": DirRight, "east": DirRight, "r": DirRight, "e": DirRight,
}

// ParseDirection reads a move from free text.
func ParseDirection(text string) (Direction, bool) {
	d, ok := directionWords[strings.ToLower(strings.TrimSpace(text))]
	return d, ok
}
