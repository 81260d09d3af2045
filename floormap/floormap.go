// floormap/floormap.go
package floormap

import (
	"fmt"
	"strings"
)

// Cell identifies what occupies one grid square.
type Cell uint8

const (
	CellOpen Cell = iota
	CellWall
	CellObstacle
	CellStart
	CellVault
	CellStairs
	CellPlayer
)

func (c Cell) String() string {
	switch c {
	case CellOpen:
		return "open"
	case CellWall:
		return "wall"
	case CellObstacle:
		return "obstacle"
	case CellStart:
		return "start"
	case CellVault:
		return "vault"
	case CellStairs:
		return "stairs"
	case CellPlayer:
		return "player"
	default:
		return "unknown"
	}
}

// glyph is the single character used by Render.
func (c Cell) glyph() byte {
	switch c {
	case CellWall:
		return '#'
	case CellObstacle:
		return '?'
	case CellStart:
		return 'S'
	case CellVault:
		return 'V'
	case CellStairs:
		return '>'
	case CellPlayer:
		return '@'
	default:
		return '.'
	}
}

// Position is a grid coordinate. (0,0) is the top-left corner.
type Position struct {
	X, Y int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Neighbors returns the four orthogonal neighbours, in bounds or not.
func (p Position) Neighbors() [4]Position {
	return [4]Position{
		{p.X, p.Y - 1},
		{p.X + 1, p.Y},
		{p.X, p.Y + 1},
		{p.X - 1, p.Y},
	}
}

// FloorMap holds one floor's grid. cells carries the player marker,
// pristine is the grid as generated and is used to restore vacated cells.
type FloorMap struct {
	Floor    int
	Size     int
	cells    [][]Cell
	pristine [][]Cell
}

// New creates an all-open square map. Panics on a non-positive size.
func New(floor, size int) *FloorMap {
	if size <= 0 {
		panic(fmt.Sprintf("floormap: invalid size %d for floor %d", size, floor))
	}
	m := &FloorMap{Floor: floor, Size: size}
	m.cells = newGrid(size)
	m.pristine = newGrid(size)
	return m
}

func newGrid(size int) [][]Cell {
	grid := make([][]Cell, size)
	for y := range grid {
		grid[y] = make([]Cell, size)
	}
	return grid
}

func copyGrid(src [][]Cell) [][]Cell {
	dst := make([][]Cell, len(src))
	for y := range src {
		dst[y] = append([]Cell(nil), src[y]...)
	}
	return dst
}

// InBounds reports whether p lies on the grid.
func (m *FloorMap) InBounds(p Position) bool {
	return p.X >= 0 && p.X < m.Size && p.Y >= 0 && p.Y < m.Size
}

// At returns the live cell at p, player marker included.
func (m *FloorMap) At(p Position) Cell {
	return m.cells[p.Y][p.X]
}

// Terrain returns the generated cell at p, ignoring the player marker.
func (m *FloorMap) Terrain(p Position) Cell {
	return m.pristine[p.Y][p.X]
}

// Set writes c into both the live grid and the snapshot.
func (m *FloorMap) Set(p Position, c Cell) {
	m.cells[p.Y][p.X] = c
	m.pristine[p.Y][p.X] = c
}

// Clear turns a resolved cell back into open floor.
func (m *FloorMap) Clear(p Position) {
	m.Set(p, CellOpen)
}

// PlacePlayer paints the player marker at p.
func (m *FloorMap) PlacePlayer(p Position) {
	m.cells[p.Y][p.X] = CellPlayer
}

// MovePlayer restores from to its generated kind and paints the marker at to.
func (m *FloorMap) MovePlayer(from, to Position) {
	if m.InBounds(from) {
		m.cells[from.Y][from.X] = m.pristine[from.Y][from.X]
	}
	m.PlacePlayer(to)
}

// Start returns the start corner.
func (m *FloorMap) Start() Position {
	return Position{0, 0}
}

// Vault returns the vault corner.
func (m *FloorMap) Vault() Position {
	return Position{m.Size - 1, m.Size - 1}
}

// Find returns every position whose generated kind is c.
func (m *FloorMap) Find(c Cell) []Position {
	var out []Position
	for y := 0; y < m.Size; y++ {
		for x := 0; x < m.Size; x++ {
			if m.pristine[y][x] == c {
				out = append(out, Position{x, y})
			}
		}
	}
	return out
}

// Stairs returns the stairwell position, if the floor has one.
func (m *FloorMap) Stairs() (Position, bool) {
	found := m.Find(CellStairs)
	if len(found) == 0 {
		return Position{}, false
	}
	return found[0], true
}

// Reachable reports whether to can be reached from from without crossing walls.
func (m *FloorMap) Reachable(from, to Position) bool {
	if !m.InBounds(from) || !m.InBounds(to) {
		return false
	}
	visited := make([][]bool, m.Size)
	for y := range visited {
		visited[y] = make([]bool, m.Size)
	}
	queue := []Position{from}
	visited[from.Y][from.X] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			return true
		}
		for _, n := range cur.Neighbors() {
			if !m.InBounds(n) || visited[n.Y][n.X] || m.pristine[n.Y][n.X] == CellWall {
				continue
			}
			visited[n.Y][n.X] = true
			queue = append(queue, n)
		}
	}
	return false
}

// Render draws the live grid, one row per line.
func (m *FloorMap) Render() string {
	var b strings.Builder
	for y := 0; y < m.Size; y++ {
		for x := 0; x < m.Size; x++ {
			b.WriteByte(m.cells[y][x].glyph())
		}
		if y < m.Size-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
