package actor

// Draw renders the top costume and its active shadows, then caches the
// screen bounds the draw touched. Software renderers draw shadows before the
// actor, hardware renderers after.
func (a *Actor) Draw(r Renderer) {
	r.ResetBounds()

	for _, c := range a.costumes {
		c.SetupTextures()
	}

	hw := r.HardwareAccelerated()
	if !hw && r.RefreshShadowMask() {
		for i := range a.shadows {
			if !a.shadows[i].Active {
				continue
			}
			r.SetShadow(&a.shadows[i])
			r.DrawShadowPlanes()
			r.SetShadow(nil)
		}
	}

	if top := a.CurrentCostume(); top != nil {
		body := func() {
			r.StartActorDraw(a.pos, a.yaw, a.pitch, a.roll)
			top.Draw()
			r.FinishActorDraw()
		}
		shadow := func(s *Shadow) {
			r.SetShadow(s)
			r.SetShadowMode()
			if hw {
				r.DrawShadowPlanes()
			}
			body()
			r.ClearShadowMode()
			r.SetShadow(nil)
		}

		if hw {
			body()
		}
		for i := range a.shadows {
			if a.shadows[i].Active {
				shadow(&a.shadows[i])
			}
		}
		if !hw {
			body()
		}
	}

	a.winX1, a.winY1, a.winX2, a.winY2 = r.Bounds()
}
