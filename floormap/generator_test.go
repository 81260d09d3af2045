package floormap

import (
	"math/rand"
	"testing"
)

func testGenerator(seed int64, maxFloors int) *Generator {
	return NewGenerator(4, maxFloors, rand.New(rand.NewSource(seed)))
}

func TestGenerateCorners(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		g := testGenerator(seed, 3)
		for floor := 1; floor <= 3; floor++ {
			m := g.Generate(floor, false, nil)
			if m.Terrain(Position{0, 0}) != CellStart {
				t.Errorf("seed=%d floor=%d: expected start at (0,0), got %v", seed, floor, m.Terrain(Position{0, 0}))
			}
			last := m.Size - 1
			if m.Terrain(Position{last, last}) != CellVault {
				t.Errorf("seed=%d floor=%d: expected vault at (%d,%d), got %v", seed, floor, last, last, m.Terrain(Position{last, last}))
			}
		}
	}
}

func TestGenerateSizeGrowsWithFloor(t *testing.T) {
	g := testGenerator(1, 5)
	prev := g.Generate(1, false, nil).Size
	for floor := 2; floor <= 5; floor++ {
		size := g.Generate(floor, false, nil).Size
		if size != prev+1 {
			t.Errorf("floor %d: expected size %d, got %d", floor, prev+1, size)
		}
		prev = size
	}
}

func TestGenerateNoWallNextToVaultOrStairs(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		g := testGenerator(seed, 4)
		for floor := 1; floor <= 4; floor++ {
			m := g.Generate(floor, false, nil)
			protected := []Position{m.Vault()}
			if stairs, ok := m.Stairs(); ok {
				protected = append(protected, stairs)
			}
			for _, p := range protected {
				for _, n := range p.Neighbors() {
					if m.InBounds(n) && m.Terrain(n) == CellWall {
						t.Errorf("seed=%d floor=%d: wall at %v next to %v", seed, floor, n, m.Terrain(p))
					}
				}
			}
		}
	}
}

func TestGenerateStairsOnlyBelowLastFloor(t *testing.T) {
	g := testGenerator(7, 3)
	for floor := 1; floor <= 3; floor++ {
		m := g.Generate(floor, false, nil)
		_, ok := m.Stairs()
		if want := floor < 3; ok != want {
			t.Errorf("floor %d: expected stairs=%v, got %v", floor, want, ok)
		}
		if n := len(m.Find(CellStairs)); n > 1 {
			t.Errorf("floor %d: expected at most one stairwell, got %d", floor, n)
		}
	}
}

func TestGenerateWallBudgetAndObstacles(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		g := testGenerator(seed, 2)
		m := g.Generate(1, false, nil)
		if walls := len(m.Find(CellWall)); walls > 1+g.WallBase {
			t.Errorf("seed=%d: expected at most %d walls, got %d", seed, 1+g.WallBase, walls)
		}
		// 25 cells minus start, vault and stairs leaves 22; half become obstacles.
		if obstacles := len(m.Find(CellObstacle)); obstacles != 11 {
			t.Errorf("seed=%d: expected 11 obstacles, got %d", seed, obstacles)
		}
	}
}

func TestGenerateAlwaysSolvable(t *testing.T) {
	for seed := int64(0); seed < 100; seed++ {
		g := testGenerator(seed, 3)
		for floor := 1; floor <= 3; floor++ {
			m := g.Generate(floor, false, nil)
			if !m.Reachable(m.Start(), m.Vault()) {
				t.Fatalf("seed=%d floor=%d: vault unreachable\n%s", seed, floor, m.Render())
			}
			if stairs, ok := m.Stairs(); ok && !m.Reachable(m.Start(), stairs) {
				t.Fatalf("seed=%d floor=%d: stairs unreachable\n%s", seed, floor, m.Render())
			}
		}
	}
}

func TestRegenerateKeepsCornersAndResetsMarkers(t *testing.T) {
	g := testGenerator(3, 2)
	prev := g.Generate(1, false, nil)
	prev.PlacePlayer(prev.Vault())

	m := g.Generate(1, true, prev)
	if m.Size != prev.Size {
		t.Fatalf("Expected regenerated size %d, got %d", prev.Size, m.Size)
	}
	if m.Terrain(m.Start()) != CellStart || m.Terrain(m.Vault()) != CellVault {
		t.Fatalf("Expected corners to be preserved, got start=%v vault=%v", m.Terrain(m.Start()), m.Terrain(m.Vault()))
	}
	if n := len(m.Find(CellPlayer)); n != 0 {
		t.Errorf("Expected no player markers in regenerated terrain, got %d", n)
	}
	if _, ok := m.Stairs(); !ok {
		t.Error("Expected regenerated floor below the last to carry a stairwell")
	}
}

func TestGenerateInvalidSizePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic for a non-positive grid size")
		}
	}()
	g := NewGenerator(-5, 1, rand.New(rand.NewSource(1)))
	g.Generate(1, false, nil)
}
