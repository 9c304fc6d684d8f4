package actor

func (a *Actor) walkMarker() {
	switch {
	case a.lastWasLeft && a.running:
		a.marker(RightRun)
	case a.lastWasLeft:
		a.marker(RightWalk)
	case a.running:
		a.marker(LeftRun)
	default:
		a.marker(LeftWalk)
	}
}

func (a *Actor) turnMarker() {
	if a.lastWasLeft {
		a.marker(RightTurn)
		return
	}
	a.marker(LeftTurn)
}

// marker emits a footstep unless the previous one is closer than the
// walk/run spacing. Each emitted step flips the foot.
func (a *Actor) marker(step Footstep) {
	now := a.env.millis()
	spacing := a.stepMillis
	if a.running {
		spacing = a.runStepMillis
	}
	if a.lastStep >= 0 && now-a.lastStep < spacing {
		return
	}
	a.lastStep = now
	a.lastWasLeft = !a.lastWasLeft
	if a.env.Markers != nil {
		a.env.Markers.Footstep(a.id, step)
	}
}
