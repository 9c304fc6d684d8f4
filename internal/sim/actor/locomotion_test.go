package actor

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"actorcraft.ai/internal/sim/mathx"
	"actorcraft.ai/internal/sim/walkmesh"
)

func TestSetYaw_Normalizes(t *testing.T) {
	a := New(nil, 1, "manny", DefaultParams())
	a.SetYaw(370)
	if a.Yaw() != 10 {
		t.Fatalf("SetYaw(370)=%v", a.Yaw())
	}
	a.SetYaw(-10)
	if a.Yaw() != 350 {
		t.Fatalf("SetYaw(-10)=%v", a.Yaw())
	}
	for x := float32(-1000); x <= 1000; x += 7.25 {
		a.SetYaw(x)
		if y := a.Yaw(); y < 0 || y >= 360 {
			t.Fatalf("SetYaw(%v)=%v out of range", x, y)
		}
	}
}

func TestTurn_ConvergesMonotonically(t *testing.T) {
	h := newHarness(nil)
	a := New(h.env, 1, "manny", DefaultParams())
	a.SetRot(0, 350, 0)
	a.TurnTo(0, 170, 0)

	remaining := func() float32 { return mathx.Abs32(mathx.WrapDelta(170 - a.Yaw())) }
	prev := remaining()
	for i := 0; i < 100 && a.turning; i++ {
		h.step(a)
		cur := remaining()
		if cur >= prev && cur != 0 {
			t.Fatalf("tick %d: remaining %v did not shrink from %v", i, cur, prev)
		}
		prev = cur
	}
	if a.turning {
		t.Fatalf("still turning")
	}
	if a.Yaw() != 170 {
		t.Fatalf("yaw=%v want 170", a.Yaw())
	}
}

func TestTurn_ZeroRateSnaps(t *testing.T) {
	h := newHarness(nil)
	a := New(h.env, 1, "glottis", DefaultParams())
	a.SetTurnRate(0)
	a.TurnTo(0, 90, 0)
	h.step(a)
	if a.turning || a.Yaw() != 90 {
		t.Fatalf("turning=%v yaw=%v", a.turning, a.Yaw())
	}
}

func TestWalkForward_ShallowHitSlidesAlongEdge(t *testing.T) {
	sc := walkmesh.NewScene("room", box(1, "floor", 0, 0, 10, 10))
	h := newHarness(sc)
	a := New(h.env, 1, "manny", DefaultParams())
	a.SetConstrained(true)
	a.SetWalkRate(50)
	a.SetPos(mgl32.Vec3{5, 9.5, 0})
	a.SetRot(0, 80, 0)

	a.WalkForward()

	if a.Yaw() <= 80 {
		t.Fatalf("yaw=%v, want a turn towards the edge", a.Yaw())
	}
	if d := mathx.Abs32(a.Pos().Y() - 10); d > 1e-3 {
		t.Fatalf("pos=%v, want on the boundary", a.Pos())
	}
}

func TestWalkForward_SteepHitHalts(t *testing.T) {
	sc := walkmesh.NewScene("room", box(1, "floor", 0, 0, 10, 10))
	h := newHarness(sc)
	a := New(h.env, 1, "manny", DefaultParams())
	a.SetConstrained(true)
	a.SetWalkRate(50)
	a.SetPos(mgl32.Vec3{5, 9.5, 0})
	a.SetRot(0, 5, 0)

	a.WalkForward()

	if a.Yaw() != 5 {
		t.Fatalf("yaw=%v, want unchanged", a.Yaw())
	}
	if d := mathx.Abs32(a.Pos().Y() - 10); d > 1e-3 {
		t.Fatalf("pos=%v, want halted at the boundary", a.Pos())
	}
	if !sc.Sector(0).ContainsPoint(a.Pos().Sub(mgl32.Vec3{0, 1e-3, 0})) {
		t.Fatalf("pos=%v left the floor", a.Pos())
	}
}

func TestWalkForward_CrossesIntoNeighbour(t *testing.T) {
	sc := walkmesh.NewScene("hall", box(1, "a", 0, 0, 10, 10), box(2, "b", 0, 10, 10, 20))
	h := newHarness(sc)
	a := New(h.env, 1, "manny", DefaultParams())
	a.SetConstrained(true)
	a.SetWalkRate(30)
	a.SetPos(mgl32.Vec3{5, 9, 0})
	a.SetRot(0, 0, 0)

	a.WalkForward()

	if !sc.Sector(1).ContainsPoint(a.Pos()) {
		t.Fatalf("pos=%v, want inside sector b", a.Pos())
	}
	if a.Yaw() != 0 {
		t.Fatalf("yaw=%v changed while crossing", a.Yaw())
	}
}

func TestWalkForward_Unconstrained(t *testing.T) {
	h := newHarness(nil)
	a := New(h.env, 1, "bird", DefaultParams())
	a.SetWalkRate(10)
	a.SetRot(0, 90, 0)
	a.WalkForward()
	if !a.Pos().ApproxEqualThreshold(mgl32.Vec3{-1, 0, 0}, 1e-5) {
		t.Fatalf("pos=%v", a.Pos())
	}
	if !a.walkedCur {
		t.Fatalf("walkedCur not set")
	}
}

func TestWalkTo_FollowsPlannedPath(t *testing.T) {
	sc := walkmesh.NewScene("ell",
		box(1, "a", 0, 0, 10, 10),
		box(2, "b", 10, 0, 20, 10),
		box(3, "c", 10, 10, 20, 20),
	)
	h := newHarness(sc)
	a := New(h.env, 1, "manny", DefaultParams())
	a.SetConstrained(true)
	a.SetWalkRate(10)
	a.SetPos(mgl32.Vec3{5, 5, 0})

	dest := mgl32.Vec3{15, 18, 0}
	a.WalkTo(dest)
	if len(a.Path()) < 2 || a.Path()[0] != dest {
		t.Fatalf("path=%v", a.Path())
	}

	for i := 0; i < 200 && a.walking; i++ {
		h.step(a)
		inside := false
		for s := 0; s < sc.SectorCount(); s++ {
			if sc.Sector(s).ContainsPoint(a.Pos()) {
				inside = true
			}
		}
		if !inside {
			t.Fatalf("tick %d: pos %v off the mesh", i, a.Pos())
		}
	}
	if a.walking || a.Pos() != dest {
		t.Fatalf("walking=%v pos=%v", a.walking, a.Pos())
	}
	h.step(a)
	h.step(a)
	if a.IsWalking() {
		t.Fatalf("IsWalking after arrival")
	}
}

func TestWalkTo_UnconstrainedGoesDirect(t *testing.T) {
	sc := walkmesh.NewScene("islands", box(1, "a", 0, 0, 10, 10), box(2, "far", 30, 0, 40, 10))
	h := newHarness(sc)
	a := New(h.env, 1, "manny", DefaultParams())
	a.SetPos(mgl32.Vec3{5, 5, 0})
	a.WalkTo(mgl32.Vec3{35, 5, 0})
	if p := a.Path(); len(p) != 1 || p[0] != (mgl32.Vec3{35, 5, 0}) {
		t.Fatalf("path=%v", p)
	}

	a.SetConstrained(true)
	a.WalkTo(mgl32.Vec3{36, 5, 0})
	if p := a.Path(); len(p) != 1 {
		t.Fatalf("unreachable destination should fall back to a direct path, got %v", p)
	}
}

func TestWalkTo_SamePositionStops(t *testing.T) {
	a := New(nil, 1, "manny", DefaultParams())
	a.WalkTo(mgl32.Vec3{})
	if a.walking {
		t.Fatalf("walking to own position")
	}
}

func TestUpdate_IdleSnapsToVisibleSector(t *testing.T) {
	sc := walkmesh.NewScene("room", box(1, "a", 0, 0, 10, 10), box(2, "b", 10, 0, 20, 10))
	h := newHarness(sc)
	a := New(h.env, 1, "manny", DefaultParams())
	a.SetConstrained(true)
	a.SetPos(mgl32.Vec3{15, 5, 0})
	sc.SetSectorVisible("b", false)
	h.step(a)
	if a.Pos() != (mgl32.Vec3{10, 5, 0}) {
		t.Fatalf("pos=%v, want snapped to the edge of a", a.Pos())
	}
}

func TestFootsteps_SpacedAndAlternating(t *testing.T) {
	for _, tc := range []struct {
		name    string
		running bool
		spacing int64
	}{
		{"walk", false, 400},
		{"run", true, 300},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(nil)
			h.clock.frame = 16
			a := New(h.env, 1, "manny", DefaultParams())
			a.SetRunning(tc.running)
			for i := 0; i < 500; i++ {
				a.WalkForward()
				h.clock.tick()
			}
			ev := h.markers.events
			if len(ev) < 10 {
				t.Fatalf("only %d footsteps", len(ev))
			}
			for i := 1; i < len(ev); i++ {
				if gap := ev[i].at - ev[i-1].at; gap < tc.spacing {
					t.Fatalf("steps %d,%d only %dms apart", i-1, i, gap)
				}
				if isLeft(ev[i].step) == isLeft(ev[i-1].step) {
					t.Fatalf("steps %d,%d do not alternate: %v %v", i-1, i, ev[i-1].step, ev[i].step)
				}
				wantRun := ev[i].step == LeftRun || ev[i].step == RightRun
				if wantRun != tc.running {
					t.Fatalf("step %v running=%v", ev[i].step, tc.running)
				}
			}
		})
	}
}

func isLeft(s Footstep) bool {
	return s == LeftWalk || s == LeftRun || s == LeftTurn
}

func TestAngleAndYawTo(t *testing.T) {
	a := New(nil, 1, "a", DefaultParams())
	b := New(nil, 2, "b", DefaultParams())
	b.SetPos(mgl32.Vec3{0, 5, 3})
	if got := a.AngleTo(b); mathx.Abs32(got) > 1e-3 {
		t.Fatalf("AngleTo straight ahead=%v", got)
	}
	if got := a.YawTo(mgl32.Vec3{-1, 0, 0}); mathx.Abs32(got-90) > 1e-3 {
		t.Fatalf("YawTo(-x)=%v", got)
	}
	if got := a.PuckVector(); !got.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-5) {
		t.Fatalf("PuckVector=%v", got)
	}
}
