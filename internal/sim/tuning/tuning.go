package tuning

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"actorcraft.ai/internal/sim/actor"
)

//go:embed tuning.schema.json
var schemaJSON string

const schemaURL = "tuning.schema.json"

type Tuning struct {
	FrameMillis        int64 `yaml:"frame_ms"`
	SnapshotEveryTicks int   `yaml:"snapshot_every_ticks"`

	Actor ActorTuning `yaml:"actor"`
	Voice VoiceTuning `yaml:"voice"`
}

type ActorTuning struct {
	WalkRate        float32 `yaml:"walk_rate"`
	TurnRate        float32 `yaml:"turn_rate"`
	ReflectionAngle float32 `yaml:"reflection_angle"`
	LookAtRate      float32 `yaml:"look_at_rate"`
	StepMs          int64   `yaml:"step_ms"`
	RunStepMs       int64   `yaml:"run_step_ms"`
}

type VoiceTuning struct {
	DefaultLengthMs int64            `yaml:"default_length_ms"`
	Cues            map[string]int64 `yaml:"cues"`
}

func Defaults() Tuning {
	p := actor.DefaultParams()
	return Tuning{
		FrameMillis: 33,
		Actor: ActorTuning{
			WalkRate:        p.WalkRate,
			TurnRate:        p.TurnRate,
			ReflectionAngle: p.ReflectionAngle,
			LookAtRate:      p.LookAtRate,
			StepMs:          p.StepMillis,
			RunStepMs:       p.RunStepMillis,
		},
		Voice: VoiceTuning{DefaultLengthMs: 2000},
	}
}

func (t Tuning) Params() actor.Params {
	return actor.Params{
		WalkRate:        t.Actor.WalkRate,
		TurnRate:        t.Actor.TurnRate,
		ReflectionAngle: t.Actor.ReflectionAngle,
		LookAtRate:      t.Actor.LookAtRate,
		StepMillis:      t.Actor.StepMs,
		RunStepMillis:   t.Actor.RunStepMs,
	}
}

func compileSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
}

// Parse validates raw YAML against the embedded schema and overlays it on
// Defaults.
func Parse(raw []byte) (Tuning, error) {
	t := Defaults()

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	// The validator expects encoding/json shaped values.
	js, err := json.Marshal(doc)
	if err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	var jdoc any
	if err := json.Unmarshal(js, &jdoc); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	schema, err := compileSchema()
	if err != nil {
		return t, fmt.Errorf("tuning schema: %w", err)
	}
	if err := schema.Validate(jdoc); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}

	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func Load(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}
	return Parse(raw)
}
