package actor

import "fmt"

// Channel names one chore slot on an actor.
type Channel int

const (
	ChannelRest Channel = iota
	ChannelWalk
	ChannelTurnLeft
	ChannelTurnRight
	ChannelMumble
	channelTalk0
)

const (
	TalkChannels = 10
	channelCount = int(channelTalk0) + TalkChannels
)

// TalkChannel returns the channel for talk index 1..10.
func TalkChannel(index int) (Channel, error) {
	if index < 1 || index > TalkChannels {
		return 0, fmt.Errorf("%w: talk chore index %d out of range 1..%d", ErrConfig, index, TalkChannels)
	}
	return channelTalk0 + Channel(index-1), nil
}

func (c Channel) String() string {
	switch c {
	case ChannelRest:
		return "rest"
	case ChannelWalk:
		return "walk"
	case ChannelTurnLeft:
		return "turn_left"
	case ChannelTurnRight:
		return "turn_right"
	case ChannelMumble:
		return "mumble"
	}
	if c >= channelTalk0 && int(c) < channelCount {
		return fmt.Sprintf("talk%d", int(c-channelTalk0)+1)
	}
	return "unknown"
}

type binding struct {
	cost  Costume
	chore int
}

func (b binding) bound() bool { return b.cost != nil && b.chore >= 0 }

func (b binding) stop() {
	if b.bound() {
		b.cost.StopChore(b.chore)
	}
}

// Chore reports the (costume, chore) pair bound to ch.
func (a *Actor) Chore(ch Channel) (Costume, int) {
	if ch < 0 || int(ch) >= channelCount {
		return nil, -1
	}
	b := a.slots[ch]
	return b.cost, b.chore
}

func checkChore(cost Costume, chore int) error {
	if chore < 0 {
		return nil
	}
	if cost == nil {
		return fmt.Errorf("%w: chore %d without a costume", ErrConfig, chore)
	}
	if chore >= cost.ChoreCount() {
		return fmt.Errorf("%w: chore %d not in %s (%d chores)", ErrConfig, chore, cost.Filename(), cost.ChoreCount())
	}
	return nil
}

// rebind is the single transition routine for every channel. It stops the
// previous chore and records the new pair. It reports false when the pair is
// already bound.
func (a *Actor) rebind(ch Channel, cost Costume, chore int) bool {
	if chore < 0 {
		chore = -1
	}
	cur := &a.slots[ch]
	if cur.cost == cost && cur.chore == chore {
		return false
	}
	cur.stop()
	cur.cost = cost
	cur.chore = chore
	return true
}

// SetRestChore binds the rest channel and starts it looping.
func (a *Actor) SetRestChore(chore int, cost Costume) error {
	if err := checkChore(cost, chore); err != nil {
		return err
	}
	if a.rebind(ChannelRest, cost, chore) && a.slots[ChannelRest].bound() {
		cost.PlayChoreLooping(chore)
	}
	return nil
}

// SetWalkChore binds the walk channel. It starts playing once the actor
// moves.
func (a *Actor) SetWalkChore(chore int, cost Costume) error {
	if err := checkChore(cost, chore); err != nil {
		return err
	}
	a.rebind(ChannelWalk, cost, chore)
	return nil
}

// SetTurnChores binds both turn channels to one costume. Both chores must be
// set or both unset.
func (a *Actor) SetTurnChores(left, right int, cost Costume) error {
	if (left >= 0) != (right >= 0) {
		return fmt.Errorf("%w: got only one turn chore (left=%d right=%d)", ErrConfig, left, right)
	}
	if err := checkChore(cost, left); err != nil {
		return err
	}
	if err := checkChore(cost, right); err != nil {
		return err
	}
	a.rebind(ChannelTurnLeft, cost, left)
	a.rebind(ChannelTurnRight, cost, right)
	return nil
}

// SetTalkChore binds talk index 1..10.
func (a *Actor) SetTalkChore(index, chore int, cost Costume) error {
	ch, err := TalkChannel(index)
	if err != nil {
		return err
	}
	if err := checkChore(cost, chore); err != nil {
		return err
	}
	a.rebind(ch, cost, chore)
	return nil
}

func (a *Actor) SetMumbleChore(chore int, cost Costume) error {
	if err := checkChore(cost, chore); err != nil {
		return err
	}
	a.rebind(ChannelMumble, cost, chore)
	return nil
}

func (a *Actor) turnChore(dir int32) binding {
	if dir > 0 {
		return a.slots[ChannelTurnRight]
	}
	return a.slots[ChannelTurnLeft]
}

// reconcileChores brings the rest, walk and turn channels in line with the
// motion flags of the current tick.
func (a *Actor) reconcileChores() {
	// The rest chore may have been stopped by a script.
	if rest := a.slots[ChannelRest]; rest.bound() && rest.cost.IsChoring(rest.chore, false) < 0 {
		rest.cost.PlayChoreLooping(rest.chore)
	}

	if walk := a.slots[ChannelWalk]; walk.bound() {
		playing := walk.cost.IsChoring(walk.chore, false) >= 0
		switch {
		case a.walkedCur && !playing:
			walk.cost.PlayChoreLooping(walk.chore)
		case !a.walkedCur && playing:
			walk.cost.StopChore(walk.chore)
		}
	}

	if a.slots[ChannelTurnLeft].bound() {
		if a.walkedCur {
			a.currTurnDir = 0
		}
		if a.lastTurnDir != 0 && a.lastTurnDir != a.currTurnDir {
			a.turnChore(a.lastTurnDir).stop()
		}
		if a.currTurnDir != 0 && a.currTurnDir != a.lastTurnDir {
			if t := a.turnChore(a.currTurnDir); t.bound() {
				t.cost.PlayChore(t.chore)
			}
		}
	} else {
		a.currTurnDir = 0
	}

	a.walkedLast = a.walkedCur
	a.walkedCur = false
	a.lastTurnDir = a.currTurnDir
	a.currTurnDir = 0
}

// updateTalk follows the lip-sync track of the active voice line.
func (a *Actor) updateTalk() {
	if a.lipSync == nil || a.env == nil || a.env.Voice == nil {
		return
	}
	pos := -1
	if a.env.soundPlaying(a.talkSoundName) {
		pos = a.env.Voice.PosIn60HzTicks(a.talkSoundName)
	}
	if pos == -1 {
		return
	}
	anim := int32(a.lipSync.Anim(pos))
	if anim >= TalkChannels {
		anim = -1
	}
	if anim == a.talkAnim {
		return
	}
	if a.talkAnim >= 0 {
		a.slots[channelTalk0+Channel(a.talkAnim)].stop()
	}
	a.talkAnim = anim
	if anim < 0 {
		return
	}
	if t := a.slots[channelTalk0+Channel(anim)]; t.bound() {
		t.cost.PlayChoreLooping(t.chore)
	}
}
