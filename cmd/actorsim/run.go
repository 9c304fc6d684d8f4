package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"actorcraft.ai/internal/persistence/indexdb"
	persistlog "actorcraft.ai/internal/persistence/log"
	"actorcraft.ai/internal/persistence/snapshot"
	"actorcraft.ai/internal/script/luamarker"
	"actorcraft.ai/internal/sim/actor"
	"actorcraft.ai/internal/sim/stage"
	"actorcraft.ai/internal/sim/tuning"
	"actorcraft.ai/internal/transport/observer"
)

type runOptions struct {
	ConfigDir string
	ScenePath string
	DataDir   string
	Ticks     uint64
	Snapshot  string
	Load      string
	DBPath    string
	DisableDB bool
	Listen    string
	Script    string
}

func newRunCmd() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a stage and save it when it stops",
		Long: `Build a stage from the config directory, spawn the scene's actors (or
restore --load), and tick until --ticks is reached or the process is
interrupted. The final state is written to --snapshot and indexed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			h, err := runSim(ctx, o, logger)
			if err != nil {
				return err
			}
			cmd.Printf("saved %s tick=%d actors=%d slot=%s\n", o.Snapshot, h.Tick, h.Actors, h.SlotID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.ConfigDir, "configs", "./configs", "config directory")
	f.StringVar(&o.ScenePath, "scene", "", "scene file (default: <configs>/scenes/mo.yaml)")
	f.StringVar(&o.DataDir, "data", "./data", "runtime data directory")
	f.Uint64Var(&o.Ticks, "ticks", 0, "stop after this many ticks (0: until interrupted)")
	f.StringVar(&o.Snapshot, "snapshot", "", "save path (default: <data>/saves/<slot>.snap.zst)")
	f.StringVar(&o.Load, "load", "", "snapshot to restore instead of spawning the scene's actors")
	f.StringVar(&o.DBPath, "db", "", "index database (default: <data>/index/actorsim.sqlite)")
	f.BoolVar(&o.DisableDB, "disable_db", false, "disable the sqlite index")
	f.StringVar(&o.Listen, "listen", "127.0.0.1:8081", "observer listen address (empty to disable)")
	f.StringVar(&o.Script, "script", "", "lua script installing system.costumeMarkerHandler")
	return cmd
}

func runSim(ctx context.Context, o runOptions, log *zap.Logger) (snapshot.Header, error) {
	var h snapshot.Header
	su, err := loadSetup(o.ConfigDir, o.ScenePath, log)
	if err != nil {
		return h, err
	}

	slotID := uuid.NewString()
	if o.Snapshot == "" {
		o.Snapshot = filepath.Join(o.DataDir, "saves", slotID+".snap.zst")
	}

	var idx *indexdb.SQLiteIndex
	if !o.DisableDB {
		if o.DBPath == "" {
			o.DBPath = filepath.Join(o.DataDir, "index", "actorsim.sqlite")
		}
		idx, err = indexdb.OpenSQLite(o.DBPath)
		if err != nil {
			return h, fmt.Errorf("index: %w", err)
		}
		defer idx.Close()
	}

	var st *stage.Stage
	tick := func() uint64 { return st.Tick() }

	steps := persistlog.NewMarkerLogger(o.DataDir, tick, log.Named("footsteps"))
	defer steps.Close()
	markers := []actor.MarkerSink{steps}
	if idx != nil {
		markers = append(markers, idx.FootstepSink(tick))
	}
	if o.Script != "" {
		lua := luamarker.New(log.Named("lua"))
		defer lua.Close()
		if err := lua.DoFile(o.Script); err != nil {
			return h, err
		}
		markers = append(markers, lua)
	}

	obs := observer.NewServer(su.tuning.FrameMillis, log.Named("observer"))
	every := uint64(su.tuning.SnapshotEveryTicks)
	st = su.newStage(log, markers, o.Ticks, func(t uint64, poses []actor.Pose) {
		obs.Publish(t, poses)
		if every > 0 && t%every == 0 {
			if _, err := saveSlot(st, o.Snapshot, slotID, idx); err != nil {
				log.Warn("autosave", zap.String("path", o.Snapshot), zap.Error(err))
			}
		}
	})

	if o.Load != "" {
		lh, err := loadSlot(st, o.Load)
		if err != nil {
			return h, fmt.Errorf("load %s: %w", o.Load, err)
		}
		log.Info("restored", zap.String("path", o.Load), zap.String("from_slot", lh.SlotID), zap.Uint64("tick", lh.Tick))
	} else if _, err := st.SpawnAll(su.spawns); err != nil {
		return h, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		err := st.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if o.Listen != "" {
		ln, err := net.Listen("tcp", o.Listen)
		if err != nil {
			cancel()
			_ = g.Wait()
			return h, fmt.Errorf("observer listen: %w", err)
		}
		srv := &http.Server{Handler: obs.Handler(), ReadHeaderTimeout: 5 * time.Second}
		log.Info("observer listening", zap.String("addr", ln.Addr().String()))
		g.Go(func() error {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	if su.tuningPath != "" {
		g.Go(func() error {
			return tuning.Watch(gctx, su.tuningPath, log.Named("tuning"), func(t tuning.Tuning) {
				if err := st.Do(gctx, func(s *stage.Stage) { s.ApplyParams(t.Params()) }); err != nil {
					log.Debug("tuning not applied", zap.Error(err))
				}
			})
		})
	}

	if err := g.Wait(); err != nil {
		return h, err
	}

	// The loop has exited; this goroutine owns the stage now.
	h, err = saveSlot(st, o.Snapshot, slotID, idx)
	if err != nil {
		return h, fmt.Errorf("save: %w", err)
	}
	if idx != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := idx.Sync(sctx); err != nil {
			log.Warn("index sync", zap.Error(err))
		}
	}
	log.Info("saved", zap.String("path", o.Snapshot), zap.Uint64("tick", h.Tick), zap.Int("actors", h.Actors))
	return h, nil
}
