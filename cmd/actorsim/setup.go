package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"actorcraft.ai/internal/persistence/indexdb"
	"actorcraft.ai/internal/persistence/snapshot"
	"actorcraft.ai/internal/sim/actor"
	"actorcraft.ai/internal/sim/costume"
	"actorcraft.ai/internal/sim/encoding"
	"actorcraft.ai/internal/sim/lipsync"
	"actorcraft.ai/internal/sim/stage"
	"actorcraft.ai/internal/sim/tuning"
	"actorcraft.ai/internal/sim/walkmesh"
)

// setup is everything loaded from the config directory.
type setup struct {
	tuning     tuning.Tuning
	tuningPath string // empty when running on defaults
	costumes   *costume.Library
	lips       *lipsync.DirLoader
	scene      *walkmesh.Scene
	spawns     []walkmesh.ActorSpawn
}

func loadSetup(configDir, scenePath string, log *zap.Logger) (*setup, error) {
	su := &setup{tuningPath: filepath.Join(configDir, "tuning.yaml")}

	t, err := tuning.Load(su.tuningPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info("no tuning file, using defaults", zap.String("path", su.tuningPath))
		su.tuningPath = ""
	case err != nil:
		return nil, err
	}
	su.tuning = t

	su.costumes, err = costume.LoadLibrary(filepath.Join(configDir, "costumes.yaml"), log.Named("costume"))
	if err != nil {
		return nil, fmt.Errorf("costumes: %w", err)
	}
	su.lips = lipsync.NewDirLoader(filepath.Join(configDir, "lip"), log.Named("lipsync"))

	if scenePath == "" {
		scenePath = filepath.Join(configDir, "scenes", "mo.yaml")
	}
	su.scene, su.spawns, err = walkmesh.LoadScene(scenePath)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", scenePath, err)
	}
	return su, nil
}

func (su *setup) newStage(log *zap.Logger, markers []actor.MarkerSink, maxTicks uint64, onTick func(uint64, []actor.Pose)) *stage.Stage {
	st := stage.New(stage.Config{
		FrameMillis:    su.tuning.FrameMillis,
		Params:         su.tuning.Params(),
		Costumes:       su.costumes,
		LipSyncs:       su.lips,
		Markers:        markers,
		Log:            log,
		VoiceCues:      su.tuning.Voice.Cues,
		VoiceDefaultMs: su.tuning.Voice.DefaultLengthMs,
		MaxTicks:       maxTicks,
		OnTick:         onTick,
	})
	st.AddScene(su.scene)
	return st
}

// saveSlot writes the stage to path and queues an index row. It must run
// on the goroutine that owns st.
func saveSlot(st *stage.Stage, path, slotID string, idx *indexdb.SQLiteIndex) (snapshot.Header, error) {
	now := time.Now().UTC()
	h := snapshot.Header{
		SlotID:  slotID,
		Set:     st.CurrentSceneName(),
		Tick:    st.Tick(),
		Actors:  len(st.Actors()),
		SavedAt: now.Format(time.RFC3339),
	}
	if err := snapshot.Write(path, h, st.SaveState); err != nil {
		return h, err
	}
	h.Version = snapshot.Version
	idx.RecordSave(indexdb.SaveRecord{
		SlotID:  slotID,
		Path:    path,
		Set:     h.Set,
		Tick:    h.Tick,
		Actors:  h.Actors,
		SavedAt: now,
	})
	return h, nil
}

func loadSlot(st *stage.Stage, path string) (snapshot.Header, error) {
	return snapshot.Read(path, func(r *encoding.Reader) error {
		return st.RestoreState(r, stage.DefaultRegistry())
	})
}
