package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"actorcraft.ai/internal/persistence/indexdb"
	"actorcraft.ai/internal/persistence/snapshot"
)

const configDir = "../../configs"

func TestRunSimThenInspect(t *testing.T) {
	data := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	o := runOptions{
		ConfigDir: configDir,
		DataDir:   data,
		Ticks:     30,
		Snapshot:  filepath.Join(data, "saves", "first.snap.zst"),
		DBPath:    filepath.Join(data, "index.sqlite"),
		Script:    filepath.Join(configDir, "scripts", "footsteps.lua"),
	}
	h, err := runSim(ctx, o, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, uint64(30), h.Tick)
	require.Equal(t, 2, h.Actors)
	require.Equal(t, "mo", h.Set)
	require.NotEmpty(t, h.SlotID)

	onDisk, err := snapshot.ReadHeader(o.Snapshot)
	require.NoError(t, err)
	require.Equal(t, h, onDisk)

	latest, err := latestSnapshot(ctx, o.DBPath)
	require.NoError(t, err)
	require.Equal(t, o.Snapshot, latest)

	var out bytes.Buffer
	err = inspect(ctx, inspectOptions{ConfigDir: configDir, DBPath: o.DBPath, JSON: true}, &out, zap.NewNop())
	require.NoError(t, err)
	var report struct {
		Header snapshot.Header `json:"header"`
		Actors []actorReport   `json:"actors"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.Equal(t, h.SlotID, report.Header.SlotID)
	require.Len(t, report.Actors, 2)
	require.Equal(t, "manny", report.Actors[0].Name)
	require.Equal(t, "manny.cos", report.Actors[0].Costume)
	require.Equal(t, "glottis", report.Actors[1].Name)
}

func TestRunSimContinuesFromLoad(t *testing.T) {
	data := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	first := runOptions{ConfigDir: configDir, DataDir: data, Ticks: 5, Snapshot: filepath.Join(data, "a.snap.zst"), DisableDB: true}
	h1, err := runSim(ctx, first, zap.NewNop())
	require.NoError(t, err)

	second := runOptions{
		ConfigDir: configDir,
		DataDir:   data,
		Ticks:     h1.Tick + 5,
		Snapshot:  filepath.Join(data, "b.snap.zst"),
		Load:      first.Snapshot,
		DBPath:    filepath.Join(data, "index.sqlite"),
	}
	h2, err := runSim(ctx, second, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, h1.Tick+5, h2.Tick)
	require.Equal(t, h1.Actors, h2.Actors)

	idx, err := indexdb.OpenSQLite(second.DBPath)
	require.NoError(t, err)
	defer idx.Close()
	saves, err := idx.Saves(ctx)
	require.NoError(t, err)
	require.Len(t, saves, 1)
	require.Equal(t, h2.SlotID, saves[0].SlotID)
}

func TestRunSimRejectsMissingScene(t *testing.T) {
	_, err := runSim(context.Background(), runOptions{
		ConfigDir: configDir,
		ScenePath: filepath.Join(t.TempDir(), "nope.yaml"),
		DataDir:   t.TempDir(),
		DisableDB: true,
	}, zap.NewNop())
	require.Error(t, err)
}
