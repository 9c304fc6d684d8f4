package pathing

import (
	"github.com/go-gl/mathgl/mgl32"

	"actorcraft.ai/internal/sim/walkmesh"
)

// Path is a waypoint list in destination-first order. Walkers consume it
// from the back.
type Path []mgl32.Vec3

type node struct {
	sect   *walkmesh.Sector
	pos    mgl32.Vec3
	cost   float32 // distance travelled so far
	dist   float32 // straight-line estimate to the destination
	parent *node
}

// Plan runs A* over the walkable, visible sectors of mesh. A node's point is
// halfway between its sector's closest point to dest and its closest point to
// the parent node, which cuts corners more cleanly than sector centroids.
//
// The returned path is [dest, goal point, ..., first step] and never contains
// start. ok is false when either endpoint has no sector or the destination
// sector cannot be reached.
func Plan(mesh walkmesh.Mesh, start, dest mgl32.Vec3) (Path, bool) {
	if mesh == nil {
		return nil, false
	}
	startSec, _ := mesh.FindClosestSector(start)
	endSec, _ := mesh.FindClosestSector(dest)
	if startSec == nil || endSec == nil {
		return nil, false
	}

	sectors := make([]*walkmesh.Sector, 0, mesh.SectorCount())
	for i := 0; i < mesh.SectorCount(); i++ {
		if s := mesh.Sector(i); s != nil && s.Walkable() {
			sectors = append(sectors, s)
		}
	}

	open := []*node{{sect: startSec, pos: start}}
	closed := make(map[*walkmesh.Sector]bool, len(sectors))

	for len(open) > 0 {
		bi := 0
		for i := 1; i < len(open); i++ {
			if open[i].cost+open[i].dist < open[bi].cost+open[bi].dist {
				bi = i
			}
		}
		cur := open[bi]
		open = append(open[:bi], open[bi+1:]...)
		closed[cur.sect] = true

		if cur.sect == endSec {
			path := Path{dest}
			for n := cur; n != nil && n.parent != nil; n = n.parent {
				path = append(path, n.pos)
			}
			return path, true
		}

		for _, s := range sectors {
			if closed[s] || !cur.sect.IsAdjacentTo(s) {
				continue
			}
			var existing *node
			for _, n := range open {
				if n.sect == s {
					existing = n
					break
				}
			}
			if existing != nil {
				if c := cur.cost + existing.pos.Sub(cur.pos).Len(); c < existing.cost {
					existing.cost = c
					existing.parent = cur
				}
				continue
			}
			n := &node{sect: s, parent: cur}
			n.pos = s.ClosestPoint(dest).Add(s.ClosestPoint(cur.pos)).Mul(0.5)
			n.dist = n.pos.Sub(dest).Len()
			n.cost = cur.cost + n.pos.Sub(cur.pos).Len()
			open = append(open, n)
		}
	}
	return nil, false
}
