package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"actorcraft.ai/internal/persistence/indexdb"
	"actorcraft.ai/internal/persistence/snapshot"
)

type inspectOptions struct {
	ConfigDir string
	ScenePath string
	Snapshot  string
	DBPath    string
	JSON      bool
}

// actorReport is one restored actor as printed by inspect.
type actorReport struct {
	ID       int32      `json:"id"`
	Name     string     `json:"name"`
	Set      string     `json:"set"`
	Pos      [3]float32 `json:"pos"`
	Yaw      float32    `json:"yaw"`
	Visible  bool       `json:"visible"`
	Walking  bool       `json:"walking"`
	Costume  string     `json:"costume,omitempty"`
	Costumes []string   `json:"costume_stack,omitempty"`
}

func newInspectCmd() *cobra.Command {
	var o inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Restore a save slot into a fresh stage and print its actors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd.Context(), o, cmd.OutOrStdout(), logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.ConfigDir, "configs", "./configs", "config directory")
	f.StringVar(&o.ScenePath, "scene", "", "scene file (default: <configs>/scenes/mo.yaml)")
	f.StringVar(&o.Snapshot, "snapshot", "", "save slot to inspect (default: latest in --db)")
	f.StringVar(&o.DBPath, "db", "./data/index/actorsim.sqlite", "index database used when --snapshot is empty")
	f.BoolVar(&o.JSON, "json", false, "print JSON instead of a table")
	return cmd
}

func inspect(ctx context.Context, o inspectOptions, out io.Writer, log *zap.Logger) error {
	if o.Snapshot == "" {
		path, err := latestSnapshot(ctx, o.DBPath)
		if err != nil {
			return err
		}
		o.Snapshot = path
	}

	su, err := loadSetup(o.ConfigDir, o.ScenePath, log)
	if err != nil {
		return err
	}
	st := su.newStage(log, nil, 0, nil)
	h, err := loadSlot(st, o.Snapshot)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", o.Snapshot, err)
	}

	reports := make([]actorReport, 0, len(st.Actors()))
	for _, a := range st.Actors() {
		p := a.Pose()
		r := actorReport{
			ID:      p.ID,
			Name:    p.Name,
			Set:     p.Set,
			Pos:     p.Pos,
			Yaw:     p.Yaw,
			Visible: a.Visible(),
			Walking: p.Walking,
			Costume: p.Costume,
		}
		for _, c := range a.Costumes() {
			r.Costumes = append(r.Costumes, c.Filename())
		}
		reports = append(reports, r)
	}

	if o.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Header snapshot.Header `json:"header"`
			Actors []actorReport   `json:"actors"`
		}{h, reports})
	}

	fmt.Fprintf(out, "slot %s  set %s  tick %d  saved %s\n", h.SlotID, h.Set, h.Tick, h.SavedAt)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSET\tPOS\tYAW\tVISIBLE\tCOSTUME")
	for _, r := range reports {
		fmt.Fprintf(tw, "%d\t%s\t%s\t(%.2f, %.2f, %.2f)\t%.1f\t%v\t%s\n",
			r.ID, r.Name, r.Set, r.Pos[0], r.Pos[1], r.Pos[2], r.Yaw, r.Visible, r.Costume)
	}
	return tw.Flush()
}

func latestSnapshot(ctx context.Context, dbPath string) (string, error) {
	if dbPath == "" {
		return "", errors.New("need --snapshot or --db")
	}
	idx, err := indexdb.OpenSQLite(dbPath)
	if err != nil {
		return "", err
	}
	defer idx.Close()
	rec, ok, err := idx.LatestSave(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no saves indexed in %s", filepath.Clean(dbPath))
	}
	return rec.Path, nil
}

func newSavesCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "saves",
		Short: "List indexed save slots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := indexdb.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer idx.Close()
			recs, err := idx.Saves(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLOT\tSET\tTICK\tACTORS\tSAVED\tPATH")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", r.SlotID, r.Set, r.Tick, r.Actors, r.SavedAt.Format("2006-01-02 15:04:05"), r.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "./data/index/actorsim.sqlite", "index database")
	return cmd
}
