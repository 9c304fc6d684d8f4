package pathing

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"actorcraft.ai/internal/sim/walkmesh"
)

func box(id int32, name string, x0, y0, x1, y1 float32) walkmesh.Sector {
	return walkmesh.NewSector(id, name, walkmesh.WalkType, []mgl32.Vec3{
		{x0, y0, 0}, {x1, y0, 0}, {x1, y1, 0}, {x0, y1, 0},
	})
}

func insideAny(sc *walkmesh.Scene, p mgl32.Vec3) bool {
	for i := 0; i < sc.SectorCount(); i++ {
		if sc.Sector(i).ContainsPoint(p) {
			return true
		}
	}
	return false
}

func TestPlan_TwoAdjacentSectors(t *testing.T) {
	sc := walkmesh.NewScene("two", box(1, "a", 0, 0, 10, 10), box(2, "b", 10, 0, 20, 10))
	dest := mgl32.Vec3{18, 5, 0}

	path, ok := Plan(sc, mgl32.Vec3{2, 5, 0}, dest)
	if !ok {
		t.Fatalf("expected a path")
	}
	if len(path) < 2 {
		t.Fatalf("path too short: %v", path)
	}
	if path[0] != dest {
		t.Fatalf("path must start with the destination: %v", path)
	}
	for _, p := range path {
		if !insideAny(sc, p) {
			t.Fatalf("waypoint %v leaves the mesh", p)
		}
	}
	if !path[1].ApproxEqual(mgl32.Vec3{14, 5, 0}) {
		t.Fatalf("entry waypoint=%v", path[1])
	}
}

func TestPlan_LShapedDetour(t *testing.T) {
	sc := walkmesh.NewScene("ell",
		box(1, "a", 0, 0, 10, 10),
		box(2, "b", 10, 0, 20, 10),
		box(3, "c", 10, 10, 20, 20),
	)
	start := mgl32.Vec3{5, 5, 0}
	path, ok := Plan(sc, start, mgl32.Vec3{15, 18, 0})
	if !ok {
		t.Fatalf("expected a path")
	}
	if len(path) != 3 {
		t.Fatalf("want dest + 2 sector waypoints, got %v", path)
	}
	for _, p := range path {
		if p == start {
			t.Fatalf("start must not be part of the path")
		}
		if !insideAny(sc, p) {
			t.Fatalf("waypoint %v leaves the mesh", p)
		}
	}
	// Consumed from the back: first waypoint must be in b.
	if !sc.Sector(1).ContainsPoint(path[len(path)-1]) {
		t.Fatalf("first step %v should be in sector b", path[len(path)-1])
	}
}

func TestPlan_SameSector(t *testing.T) {
	sc := walkmesh.NewScene("one", box(1, "a", 0, 0, 10, 10))
	path, ok := Plan(sc, mgl32.Vec3{1, 1, 0}, mgl32.Vec3{8, 8, 0})
	if !ok || len(path) != 1 {
		t.Fatalf("same-sector plan=%v ok=%v", path, ok)
	}
}

func TestPlan_DisconnectedDestination(t *testing.T) {
	sc := walkmesh.NewScene("islands", box(1, "a", 0, 0, 10, 10), box(2, "far", 30, 0, 40, 10))
	path, ok := Plan(sc, mgl32.Vec3{5, 5, 0}, mgl32.Vec3{35, 5, 0})
	if ok || len(path) != 0 {
		t.Fatalf("disconnected plan=%v ok=%v", path, ok)
	}
}

func TestPlan_HiddenBridgeIsIgnored(t *testing.T) {
	bridge := box(2, "bridge", 10, 0, 20, 10)
	bridge.Visible = false
	sc := walkmesh.NewScene("bridge", box(1, "a", 0, 0, 10, 10), bridge, box(3, "c", 20, 0, 30, 10))
	if _, ok := Plan(sc, mgl32.Vec3{5, 5, 0}, mgl32.Vec3{25, 5, 0}); ok {
		t.Fatalf("hidden sector must not connect the mesh")
	}
	sc.SetSectorVisible("bridge", true)
	if _, ok := Plan(sc, mgl32.Vec3{5, 5, 0}, mgl32.Vec3{25, 5, 0}); !ok {
		t.Fatalf("visible bridge should connect the mesh")
	}
}
