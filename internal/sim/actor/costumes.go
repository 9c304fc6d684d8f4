package actor

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// PushCostume loads name on top of the stack, chained to the current top.
func (a *Actor) PushCostume(name string) error {
	if a.env.Costumes == nil {
		return errors.New("actor: no costume loader")
	}
	c, err := a.env.Costumes.LoadCostume(name, a.CurrentCostume())
	if err != nil {
		return fmt.Errorf("push costume %s: %w", name, err)
	}
	c.SetColormap("")
	a.costumes = append(a.costumes, c)
	return nil
}

// PopCostume releases the top costume after unbinding every channel that
// refers to it. Popping an empty stack only logs.
func (a *Actor) PopCostume() {
	if len(a.costumes) == 0 {
		a.env.logger().Warn("pop on empty costume stack", zap.Int32("actor", a.id))
		return
	}
	top := a.costumes[len(a.costumes)-1]

	a.freeChannel(ChannelRest, top)
	a.freeChannel(ChannelWalk, top)
	if a.slots[ChannelTurnLeft].cost == top || a.slots[ChannelTurnRight].cost == top {
		a.slots[ChannelTurnLeft] = binding{chore: -1}
		a.slots[ChannelTurnRight] = binding{chore: -1}
	}
	a.freeChannel(ChannelMumble, top)
	for i := 0; i < TalkChannels; i++ {
		a.freeChannel(channelTalk0+Channel(i), top)
	}

	a.costumes[len(a.costumes)-1] = nil
	a.costumes = a.costumes[:len(a.costumes)-1]
	top.Release()
	if len(a.costumes) == 0 {
		a.env.logger().Debug("popped last costume", zap.Int32("actor", a.id))
	}
}

func (a *Actor) freeChannel(ch Channel, c Costume) {
	if a.slots[ch].cost == c {
		a.slots[ch] = binding{chore: -1}
	}
}

// SetCostume replaces the top costume.
func (a *Actor) SetCostume(name string) error {
	if len(a.costumes) > 0 {
		a.PopCostume()
	}
	return a.PushCostume(name)
}

// ClearCostumes pops the whole stack, top first.
func (a *Actor) ClearCostumes() {
	for len(a.costumes) > 0 {
		a.PopCostume()
	}
}

func (a *Actor) releaseChain() {
	for _, c := range a.chain {
		c.Release()
	}
	a.chain = nil
}

func (a *Actor) CurrentCostume() Costume {
	if len(a.costumes) == 0 {
		return nil
	}
	return a.costumes[len(a.costumes)-1]
}

// Costumes returns the stack bottom to top.
func (a *Actor) Costumes() []Costume {
	return append([]Costume(nil), a.costumes...)
}

// FindCostume looks a costume up on the stack by filename, ignoring case.
func (a *Actor) FindCostume(name string) Costume {
	for _, c := range a.costumes {
		if strings.EqualFold(c.Filename(), name) {
			return c
		}
	}
	return nil
}

func (a *Actor) SetColormap(name string) {
	c := a.CurrentCostume()
	if c == nil {
		a.env.logger().Warn("set colormap without costumes", zap.Int32("actor", a.id), zap.String("colormap", name))
		return
	}
	c.SetColormap(name)
}

func (a *Actor) SetHead(joint1, joint2, joint3 int, maxRoll, maxPitch, maxYaw float32) {
	if c := a.CurrentCostume(); c != nil {
		c.SetHead(joint1, joint2, joint3, maxRoll, maxPitch, maxYaw)
	}
}
