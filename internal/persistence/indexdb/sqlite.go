// Package indexdb keeps a queryable sqlite index of save slots and footstep
// markers. The snapshot files and JSONL logs stay the source of truth; the
// index is written asynchronously and may drop rows under pressure.
package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"actorcraft.ai/internal/sim/actor"
)

var ErrClosed = errors.New("indexdb: closed")

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropSave     atomic.Uint64
	dropFootstep atomic.Uint64
}

type reqKind int

const (
	reqSave reqKind = iota + 1
	reqFootstep
	reqSync
)

type req struct {
	kind reqKind

	save     SaveRecord
	footstep FootstepRecord
	done     chan struct{}
}

type SaveRecord struct {
	SlotID  string
	Path    string
	Set     string
	Tick    uint64
	Actors  int
	SavedAt time.Time
}

type FootstepRecord struct {
	Tick    uint64
	ActorID int32
	Step    string
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropSaveTotal     uint64
	DropFootstepTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			slot_id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			set_name TEXT NOT NULL,
			tick INTEGER NOT NULL,
			actors INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_saved_at ON saves(saved_at);`,
		`CREATE TABLE IF NOT EXISTS footsteps (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			actor_id INTEGER NOT NULL,
			step TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_footsteps_actor_tick ON footsteps(actor_id, tick);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		if s.db != nil {
			err = s.db.Close()
		}
	})
	return err
}

func (s *SQLiteIndex) enqueue(r req) bool {
	if s == nil || s.closed.Load() {
		return false
	}
	select {
	case s.ch <- r:
		return true
	default:
		return false
	}
}

func (s *SQLiteIndex) RecordSave(rec SaveRecord) {
	if rec.SlotID == "" || rec.Path == "" {
		return
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now()
	}
	if !s.enqueue(req{kind: reqSave, save: rec}) && s != nil {
		s.dropSave.Add(1)
	}
}

func (s *SQLiteIndex) RecordFootstep(rec FootstepRecord) {
	if !s.enqueue(req{kind: reqFootstep, footstep: rec}) && s != nil {
		s.dropFootstep.Add(1)
	}
}

// Sync waits until every row queued before the call is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropSaveTotal:     s.dropSave.Load(),
		DropFootstepTotal: s.dropFootstep.Load(),
	}
}

func scanSave(row interface{ Scan(...any) error }) (SaveRecord, error) {
	var (
		rec     SaveRecord
		tick    int64
		savedAt string
	)
	if err := row.Scan(&rec.SlotID, &rec.Path, &rec.Set, &tick, &rec.Actors, &savedAt); err != nil {
		return rec, err
	}
	rec.Tick = uint64(tick)
	t, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return rec, fmt.Errorf("saves.saved_at: %w", err)
	}
	rec.SavedAt = t
	return rec, nil
}

// LatestSave returns the most recently saved slot.
func (s *SQLiteIndex) LatestSave(ctx context.Context) (SaveRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT slot_id,path,set_name,tick,actors,saved_at FROM saves ORDER BY saved_at DESC, tick DESC LIMIT 1`)
	rec, err := scanSave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

// Saves lists every slot, newest first.
func (s *SQLiteIndex) Saves(ctx context.Context) ([]SaveRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot_id,path,set_name,tick,actors,saved_at FROM saves ORDER BY saved_at DESC, tick DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SaveRecord
	for rows.Next() {
		rec, err := scanSave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountFootsteps counts indexed markers for one actor; actorID < 0 counts
// all of them.
func (s *SQLiteIndex) CountFootsteps(ctx context.Context, actorID int32) (int, error) {
	var n int
	var err error
	if actorID < 0 {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM footsteps`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM footsteps WHERE actor_id=?`, actorID).Scan(&n)
	}
	return n, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(slot_id,path,set_name,tick,actors,saved_at) VALUES(?,?,?,?,?,?)`)
	insertStep, _ := s.db.Prepare(`INSERT INTO footsteps(tick,actor_id,step) VALUES(?,?,?)`)
	defer func() {
		if insertSave != nil {
			_ = insertSave.Close()
		}
		if insertStep != nil {
			_ = insertStep.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 1000
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSave:
			sv := r.save
			if insertSave != nil {
				if _, err := tx.Stmt(insertSave).Exec(
					sv.SlotID,
					sv.Path,
					sv.Set,
					int64(sv.Tick),
					sv.Actors,
					sv.SavedAt.UTC().Format(time.RFC3339Nano),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		case reqFootstep:
			fs := r.footstep
			if insertStep != nil {
				if _, err := tx.Stmt(insertStep).Exec(int64(fs.Tick), fs.ActorID, fs.Step); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

// FootstepSink indexes footstep markers stamped with the current tick.
type FootstepSink struct {
	idx  *SQLiteIndex
	tick func() uint64
}

func (s *SQLiteIndex) FootstepSink(tick func() uint64) *FootstepSink {
	return &FootstepSink{idx: s, tick: tick}
}

func (f *FootstepSink) Footstep(actorID int32, step actor.Footstep) {
	var tick uint64
	if f.tick != nil {
		tick = f.tick()
	}
	f.idx.RecordFootstep(FootstepRecord{Tick: tick, ActorID: actorID, Step: step.String()})
}
