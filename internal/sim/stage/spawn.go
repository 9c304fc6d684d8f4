package stage

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"actorcraft.ai/internal/sim/actor"
	"actorcraft.ai/internal/sim/walkmesh"
)

// Spawn registers an actor from a scene-file placement: costume, pose,
// chore bindings and an optional first walk target.
func (s *Stage) Spawn(sp walkmesh.ActorSpawn) (*actor.Actor, error) {
	a := s.NewActor(sp.Name)
	if err := s.dress(a, sp); err != nil {
		s.Deregister(a.ID())
		return nil, fmt.Errorf("spawn %s: %w", sp.Name, err)
	}
	return a, nil
}

func (s *Stage) dress(a *actor.Actor, sp walkmesh.ActorSpawn) error {
	a.SetConstrained(sp.Constrained)
	a.SetRunning(sp.Running)
	a.SetPos(mgl32.Vec3(sp.Pos))
	a.SetYaw(sp.Yaw)
	if sp.Costume == "" {
		return nil
	}
	if err := a.PushCostume(sp.Costume); err != nil {
		return err
	}
	c := a.CurrentCostume()
	if sp.RestChore != nil {
		if err := a.SetRestChore(*sp.RestChore, c); err != nil {
			return err
		}
	}
	if sp.WalkChore != nil {
		if err := a.SetWalkChore(*sp.WalkChore, c); err != nil {
			return err
		}
	}
	if sp.TurnChores != nil {
		if err := a.SetTurnChores(sp.TurnChores[0], sp.TurnChores[1], c); err != nil {
			return err
		}
	}
	if sp.MumbleChore != nil {
		if err := a.SetMumbleChore(*sp.MumbleChore, c); err != nil {
			return err
		}
	}
	for i, chore := range sp.TalkChores {
		if err := a.SetTalkChore(i+1, chore, c); err != nil {
			return err
		}
	}
	if sp.WalkTo != nil {
		a.WalkTo(mgl32.Vec3(*sp.WalkTo))
	}
	return nil
}

func (s *Stage) SpawnAll(spawns []walkmesh.ActorSpawn) ([]*actor.Actor, error) {
	out := make([]*actor.Actor, 0, len(spawns))
	for _, sp := range spawns {
		a, err := s.Spawn(sp)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}
