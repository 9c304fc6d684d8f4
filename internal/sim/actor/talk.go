package actor

import (
	"fmt"

	"go.uber.org/zap"
)

// Dialogue text anchors on a 640x480 screen.
const (
	textCenterX   = 640 / 2
	textCutsceneY = 456
	textNoBoundsY = 463
)

// SayLine starts voice line msgID (<msgID>.wav with <msgID>.lip) and shows
// msg. During a fullscreen cutscene only the text is shown. Without lip-sync
// data the mumble chore loops instead.
func (a *Actor) SayLine(msg, msgID string) error {
	if msgID == "" {
		return fmt.Errorf("%w: say line without a message id", ErrConfig)
	}

	if !a.env.cutscenePlaying() || !a.env.cutsceneFullscreen() {
		soundName := msgID + ".wav"
		if a.talkSoundName == soundName {
			return nil
		}
		if a.env.soundPlaying(a.talkSoundName) || msg == "" {
			a.ShutUp()
		}

		a.talkSoundName = soundName
		if v := a.env.Voice; v != nil {
			v.StartVoice(soundName)
			v.SetSoundPosition(soundName, a.pos)
		}

		if a.visible {
			a.lipSync = nil
			if l := a.env.LipSyncs; l != nil {
				if ls, ok := l.LoadLipSync(msgID + ".lip"); ok {
					a.lipSync = ls
				}
			}
			if a.lipSync == nil {
				if m := a.slots[ChannelMumble]; m.bound() {
					m.cost.PlayChoreLooping(m.chore)
				} else {
					a.env.logger().Debug("no lip sync and no mumble chore",
						zap.Int32("actor", a.id), zap.String("line", msgID))
				}
			}
			a.talkAnim = -1
		}
	}

	a.killText()

	if a.env.Text == nil || !a.env.Text.HasFont() {
		return nil
	}
	x, y := textCenterX, textNoBoundsY
	switch {
	case a.env.cutsceneFullscreen():
		y = textCutsceneY
	case a.winX1 != boundsMin && a.winX2 != boundsMax && a.winY2 != boundsMax:
		x = int(a.winX1+a.winX2) / 2
		y = int(a.winY1)
	}
	a.sayLineText = a.env.Text.Show(msg, a.talkColor, x, y)
	return nil
}

func (a *Actor) killText() {
	if a.sayLineText == 0 {
		return
	}
	if a.env.Text != nil {
		a.env.Text.Kill(a.sayLineText)
	}
	a.sayLineText = 0
}

// Talking reports whether the current voice line is still playing. A
// finished line drops its text.
func (a *Actor) Talking() bool {
	if a.talkSoundName == "" || !a.env.soundPlaying(a.talkSoundName) {
		a.killText()
		return false
	}
	return true
}

// ShutUp stops the voice line, its talk or mumble chore and its text.
func (a *Actor) ShutUp() {
	if a.talkSoundName != "" {
		if a.env.Voice != nil {
			a.env.Voice.StopSound(a.talkSoundName)
		}
		a.talkSoundName = ""
	}
	if a.lipSync != nil {
		if a.talkAnim >= 0 {
			a.slots[channelTalk0+Channel(a.talkAnim)].stop()
		}
		a.lipSync = nil
	} else {
		a.slots[ChannelMumble].stop()
	}
	a.killText()
}

// Undraw handles an actor that may be off screen: a finished line is shut.
func (a *Actor) Undraw() {
	voicePlaying := a.env.Voice != nil && a.env.Voice.VoicePlaying()
	if !a.Talking() || !voicePlaying {
		a.ShutUp()
	}
}

func (a *Actor) TalkSoundName() string { return a.talkSoundName }

// SayLineText is the text handle of the active line, or 0.
func (a *Actor) SayLineText() uint32 { return a.sayLineText }

func (a *Actor) LipSync() LipSync { return a.lipSync }
