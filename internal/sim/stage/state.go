package stage

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"actorcraft.ai/internal/sim/actor"
	"actorcraft.ai/internal/sim/encoding"
	"actorcraft.ai/internal/sim/voice"
)

const (
	stateMagic   = "ASTG"
	stateVersion = 2

	// ActorTag marks an actor record in a stage save.
	ActorTag = "ACTR"

	maxRecords = 1 << 16
)

// RestoreFunc rebuilds one tagged record into the stage.
type RestoreFunc func(s *Stage, id int32, r *encoding.Reader) error

// Registry maps record tags to their restore functions.
type Registry struct {
	byTag map[string]RestoreFunc
}

func NewRegistry() *Registry {
	return &Registry{byTag: map[string]RestoreFunc{}}
}

// DefaultRegistry knows how to restore actors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ActorTag, restoreActor)
	return r
}

func (r *Registry) Register(tag string, fn RestoreFunc) { r.byTag[tag] = fn }

func (r *Registry) Lookup(tag string) (RestoreFunc, bool) {
	fn, ok := r.byTag[tag]
	return fn, ok
}

func (r *Registry) Tags() []string {
	out := make([]string, 0, len(r.byTag))
	for t := range r.byTag {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// SaveState writes the stage header, the text board, the built-in mixer's
// live cues and one tagged record per actor in id order. A stage with an
// external voice service saves no cues.
func (s *Stage) SaveState(w *encoding.Writer) error {
	w.WriteString(stateMagic)
	w.WriteUint32(stateVersion)
	w.WriteUint64(s.tick)
	w.WriteInt64(s.clock.now)
	w.WriteString(s.current)
	w.WriteInt32(s.nextID)

	s.text.SaveState(w)
	if s.mixer != nil {
		s.mixer.SaveState(w)
	} else {
		w.WriteUint32(0)
	}

	actors := s.Actors()
	w.WriteUint32(uint32(len(actors)))
	for _, a := range actors {
		w.WriteString(ActorTag)
		w.WriteInt32(a.ID())
		if err := a.SaveState(w); err != nil {
			return fmt.Errorf("save actor %d: %w", a.ID(), err)
		}
	}
	return w.Err()
}

// RestoreState replaces every registered actor with the records in r. Scenes
// and collaborators are not part of the save and must already be in place.
// On error the stage is left without actors.
func (s *Stage) RestoreState(r *encoding.Reader, reg *Registry) error {
	if reg == nil {
		reg = DefaultRegistry()
	}
	magic := r.ReadString()
	version := r.ReadUint32()
	if err := r.Err(); err != nil {
		return err
	}
	if magic != stateMagic || version != stateVersion {
		return fmt.Errorf("%w: stage header %q v%d", actor.ErrInconsistentState, magic, version)
	}
	tick := r.ReadUint64()
	now := r.ReadInt64()
	current := r.ReadString()
	nextID := r.ReadInt32()
	if err := r.Err(); err != nil {
		return err
	}
	if current != "" {
		if _, ok := s.scenes[current]; !ok {
			return fmt.Errorf("%w: %w: %s", actor.ErrInconsistentState, ErrUnknownScene, current)
		}
	}

	s.clearActors()
	s.tick = tick
	s.clock.now = now
	s.current = current
	s.nextID = nextID

	if err := s.text.RestoreState(r); err != nil {
		return fmt.Errorf("restore text: %w", err)
	}
	if err := s.restoreCues(r); err != nil {
		return fmt.Errorf("restore voice: %w", err)
	}

	n := r.ReadUint32()
	if err := r.Err(); err != nil {
		return err
	}
	if n > maxRecords {
		return fmt.Errorf("%w: %d records", actor.ErrInconsistentState, n)
	}

	for i := uint32(0); i < n; i++ {
		tag := r.ReadString()
		id := r.ReadInt32()
		if err := r.Err(); err != nil {
			s.clearActors()
			return err
		}
		fn, ok := reg.Lookup(tag)
		if !ok {
			s.clearActors()
			return fmt.Errorf("%w: unknown record tag %q", actor.ErrInconsistentState, tag)
		}
		if _, dup := s.actors[id]; dup || id <= 0 || id >= nextID {
			s.clearActors()
			return fmt.Errorf("%w: bad actor id %d", actor.ErrInconsistentState, id)
		}
		if err := fn(s, id, r); err != nil {
			s.clearActors()
			return fmt.Errorf("restore %s %d: %w", tag, id, err)
		}
	}
	s.log.Info("stage restored", zap.Uint64("tick", tick), zap.Int("actors", len(s.actors)))
	return nil
}

// restoreCues loads saved cues into the built-in mixer. With an external
// voice service the cues are read and dropped.
func (s *Stage) restoreCues(r *encoding.Reader) error {
	if s.mixer != nil {
		return s.mixer.RestoreState(r)
	}
	scratch := voice.NewMixer(s.clock, nil, 0, nil)
	if err := scratch.RestoreState(r); err != nil {
		return err
	}
	if cues := scratch.Playing(); len(cues) > 0 {
		s.log.Warn("saved voice cues dropped", zap.Strings("cues", cues))
	}
	return nil
}

func restoreActor(s *Stage, id int32, r *encoding.Reader) error {
	a := actor.New(s.env, id, "", s.params)
	if err := a.RestoreState(r); err != nil {
		a.Release()
		return err
	}
	s.actors[id] = a
	return nil
}
