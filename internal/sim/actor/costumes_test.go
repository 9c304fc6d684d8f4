package actor

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"actorcraft.ai/internal/sim/walkmesh"
)

func TestPushCostume_ChainsToPreviousTop(t *testing.T) {
	h := newHarness(nil)
	a := New(h.env, 1, "manny", DefaultParams())
	base := pushed(t, h, a, "base.cos")
	top := pushed(t, h, a, "suit.cos")

	if top.prev != Costume(base) {
		t.Fatalf("top costume not chained to base")
	}
	if base.prev != nil {
		t.Fatalf("base costume has a previous costume")
	}
	if a.CurrentCostume() != Costume(top) {
		t.Fatalf("current costume is not the last pushed")
	}
	if a.FindCostume("SUIT.COS") != Costume(top) {
		t.Fatalf("FindCostume is not case-insensitive")
	}
	if got := a.Costumes(); len(got) != 2 || got[0] != Costume(base) {
		t.Fatalf("stack order=%v", got)
	}
}

func TestPopCostume_InvalidatesEveryChannel(t *testing.T) {
	h := newHarness(nil)
	a := New(h.env, 1, "manny", DefaultParams())
	base := pushed(t, h, a, "base.cos")
	top := pushed(t, h, a, "suit.cos")

	mustNoErr(t, a.SetRestChore(0, base))
	mustNoErr(t, a.SetWalkChore(1, top))
	mustNoErr(t, a.SetTurnChores(2, 3, top))
	mustNoErr(t, a.SetMumbleChore(4, top))
	for i := 1; i <= TalkChannels; i++ {
		mustNoErr(t, a.SetTalkChore(i, i, top))
	}

	a.PopCostume()

	if !top.released {
		t.Fatalf("popped costume not released")
	}
	for ch := ChannelWalk; int(ch) < channelCount; ch++ {
		c, chore := a.Chore(ch)
		if c != nil || chore != -1 {
			t.Fatalf("%v still bound to %v/%d", ch, c, chore)
		}
	}
	if c, chore := a.Chore(ChannelRest); c != Costume(base) || chore != 0 {
		t.Fatalf("rest binding on the remaining costume was lost")
	}
	if a.CurrentCostume() != Costume(base) {
		t.Fatalf("current costume after pop")
	}
}

func TestPopCostume_EmptyStackIsNoop(t *testing.T) {
	h := newHarness(nil)
	a := New(h.env, 1, "manny", DefaultParams())
	a.PopCostume()
	if a.CurrentCostume() != nil {
		t.Fatalf("unexpected costume")
	}
	a.SetColormap("x.cmp")
}

func TestSetCostume_ReplacesTop(t *testing.T) {
	h := newHarness(nil)
	a := New(h.env, 1, "manny", DefaultParams())
	base := pushed(t, h, a, "base.cos")
	old := pushed(t, h, a, "old.cos")
	mustNoErr(t, a.SetCostume("new.cos"))

	if !old.released {
		t.Fatalf("replaced costume not released")
	}
	cur := a.CurrentCostume().(*fakeCostume)
	if cur.name != "new.cos" || cur.prev != Costume(base) {
		t.Fatalf("current=%s prev=%v", cur.name, cur.prev)
	}
	if err := a.SetCostume("missing.cos"); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestRelease_ClearsEverything(t *testing.T) {
	sc := walkmesh.NewScene("room", box(1, "floor", 0, 0, 10, 10))
	h := newHarness(sc)
	a := New(h.env, 1, "manny", DefaultParams())
	c := pushed(t, h, a, "base.cos")
	mustNoErr(t, a.SetActiveShadow(0))
	mustNoErr(t, a.AddShadowPlane("floor"))

	a.Release()

	if !c.released || a.CurrentCostume() != nil {
		t.Fatalf("costumes not released")
	}
	s, _ := a.Shadow(0)
	if len(s.Planes) != 0 || s.Active {
		t.Fatalf("shadow slot not cleared: %+v", s)
	}
}

func TestShadows_SelectAndEdit(t *testing.T) {
	sc := walkmesh.NewScene("room", box(1, "floor", 0, 0, 10, 10), box(2, "rug", 10, 0, 20, 10))
	h := newHarness(sc)
	changed := 0
	h.env.ShadowsChanged = func() { changed++ }
	a := New(h.env, 1, "manny", DefaultParams())

	if err := a.AddShadowPlane("floor"); !errors.Is(err, ErrConfig) {
		t.Fatalf("edit without selected slot: %v", err)
	}
	if err := a.SetActiveShadow(5); !errors.Is(err, ErrConfig) {
		t.Fatalf("slot 5: %v", err)
	}
	if err := a.SetActivateShadow(-1, true); !errors.Is(err, ErrConfig) {
		t.Fatalf("slot -1: %v", err)
	}

	mustNoErr(t, a.SetActiveShadow(2))
	mustNoErr(t, a.SetShadowPlane("shadow1"))
	mustNoErr(t, a.SetShadowPoint(mgl32.Vec3{1, 2, 3}))
	mustNoErr(t, a.AddShadowPlane("rug"))
	mustNoErr(t, a.AddShadowPlane("nope"))
	mustNoErr(t, a.SetShadowValid(-1))

	// The slot keeps a copy, not the live sector.
	sc.Sector(1).Vertices[0] = mgl32.Vec3{99, 99, 0}

	s, ok := a.Shadow(2)
	if !ok || !s.Active || !s.DontNegate || s.Name != "shadow1" || s.Pos != (mgl32.Vec3{1, 2, 3}) {
		t.Fatalf("slot=%+v", s)
	}
	if len(s.Planes) != 1 || s.Planes[0].Name != "rug" || s.Planes[0].Vertices[0] != (mgl32.Vec3{10, 0, 0}) {
		t.Fatalf("planes=%+v", s.Planes)
	}
	if changed != 1 {
		t.Fatalf("ShadowsChanged called %d times", changed)
	}

	mustNoErr(t, a.SetActivateShadow(2, false))
	a.ClearShadowPlanes()
	s, _ = a.Shadow(2)
	if s.Active || len(s.Planes) != 0 || s.DontNegate {
		t.Fatalf("cleared slot=%+v", s)
	}
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
