package actor

// Update advances the actor by one frame: idle mesh snap, turning, path
// walking, chore reconciliation, lip-sync, then the costume pose push.
func (a *Actor) Update() {
	// Sectors may have been toggled under an idle actor.
	if a.constrain && !a.walking {
		if mesh := a.env.scene(); mesh != nil {
			_, a.pos = mesh.FindClosestSector(a.pos)
		}
	}

	if a.turning {
		a.updateTurn()
	}
	if a.walking {
		a.updateWalk()
	}

	a.reconcileChores()
	a.updateTalk()

	frame := a.env.frameMillis()
	for _, c := range a.costumes {
		c.SetPosRotate(a.pos, a.pitch, a.yaw, a.roll)
		if a.lookingMode {
			c.SetLookAt(a.lookAt, a.lookAtRate)
		}
		c.Update(frame)
	}
	if a.lookingMode {
		for _, c := range a.costumes {
			c.MoveHead()
		}
	}
}
