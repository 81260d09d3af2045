package floormap

import (
	"fmt"
	"math/rand"
	"time"
)

const (
	DefaultWallBase      = 3
	DefaultObstacleRatio = 0.5

	// maxWallAttempts bounds how often wall placement is redrawn before the
	// floor is left without walls.
	maxWallAttempts = 32
)

// Generator builds floors. A floor's grid is BaseSize+floor cells square.
// MaxFloors is the session's target floor count; the last floor gets no stairwell.
type Generator struct {
	BaseSize      int
	MaxFloors     int
	WallBase      int
	ObstacleRatio float64
	Rand          *rand.Rand
}

// NewGenerator returns a generator with the default wall budget and obstacle ratio.
func NewGenerator(baseSize, maxFloors int, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		BaseSize:      baseSize,
		MaxFloors:     maxFloors,
		WallBase:      DefaultWallBase,
		ObstacleRatio: DefaultObstacleRatio,
		Rand:          rng,
	}
}

// SizeFor returns the grid size of floor.
func (g *Generator) SizeFor(floor int) int {
	return g.BaseSize + floor
}

// Generate builds floor. With regenerate set and prev given, the start and
// vault corners of prev are kept and every other cell is reset before the
// stairwell, obstacles and walls are placed again.
func (g *Generator) Generate(floor int, regenerate bool, prev *FloorMap) *FloorMap {
	var m *FloorMap
	if regenerate && prev != nil {
		m = New(floor, prev.Size)
		m.Set(prev.Start(), prev.Terrain(prev.Start()))
		m.Set(prev.Vault(), prev.Terrain(prev.Vault()))
	} else {
		m = New(floor, g.SizeFor(floor))
	}
	m.Set(m.Start(), CellStart)
	m.Set(m.Vault(), CellVault)

	open := m.Find(CellOpen)
	g.Rand.Shuffle(len(open), func(i, j int) { open[i], open[j] = open[j], open[i] })

	if floor < g.MaxFloors {
		if len(open) == 0 {
			panic(fmt.Sprintf("floormap: no open cell for the stairwell on floor %d", floor))
		}
		m.Set(open[0], CellStairs)
		open = open[1:]
	}

	obstacles := int(float64(len(open)) * g.ObstacleRatio)
	for _, p := range open[:obstacles] {
		m.Set(p, CellObstacle)
	}

	g.placeWalls(m, floor+g.WallBase)
	return m
}

func (g *Generator) placeWalls(m *FloorMap, budget int) {
	base := copyGrid(m.pristine)
	for attempt := 0; attempt < maxWallAttempts; attempt++ {
		g.scatterWalls(m, budget)
		if solvable(m) {
			return
		}
		m.cells = copyGrid(base)
		m.pristine = copyGrid(base)
	}
}

// scatterWalls drops up to budget walls on random open cells, skipping any
// cell orthogonally next to the vault or the stairwell.
func (g *Generator) scatterWalls(m *FloorMap, budget int) {
	protected := []Position{m.Vault()}
	if stairs, ok := m.Stairs(); ok {
		protected = append(protected, stairs)
	}

	candidates := m.Find(CellOpen)
	g.Rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	placed := 0
	for _, p := range candidates {
		if placed >= budget {
			return
		}
		if adjacentToAny(p, protected) {
			continue
		}
		m.Set(p, CellWall)
		placed++
	}
}

func adjacentToAny(p Position, targets []Position) bool {
	for _, t := range targets {
		for _, n := range t.Neighbors() {
			if n == p {
				return true
			}
		}
	}
	return false
}

func solvable(m *FloorMap) bool {
	if !m.Reachable(m.Start(), m.Vault()) {
		return false
	}
	if stairs, ok := m.Stairs(); ok && !m.Reachable(m.Start(), stairs) {
		return false
	}
	return true
}
