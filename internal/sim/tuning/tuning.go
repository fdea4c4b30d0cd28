package tuning

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	WorldHeight        int `yaml:"world_height"`
	WorldBoundaryR     int `yaml:"world_boundary_r"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	AutosaveEveryTicks int `yaml:"autosave_every_ticks"`

	Quarry Quarry `yaml:"quarry"`
}

type Quarry struct {
	// DepthFloor is the lowest y a pattern visits; iteration stops below it.
	DepthFloor             int            `yaml:"depth_floor"`
	AllowStructureMutation bool           `yaml:"allow_structure_mutation"`
	DefaultPattern         string         `yaml:"default_pattern"`
	DefaultSpeed           string         `yaml:"default_speed"`
	Speeds                 map[string]int `yaml:"speeds"`
	AnimationStages        int            `yaml:"animation_stages"`
	BranchSpacing          int            `yaml:"branch_spacing"`
	CorridorHalfWidth      int            `yaml:"corridor_half_width"`
	MaxVolume              int            `yaml:"max_volume"`
}

var knownPatterns = []string{"QUARRY", "BRANCH"}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         20,
		WorldHeight:        64,
		WorldBoundaryR:     512,
		SnapshotEveryTicks: 3000,
		AutosaveEveryTicks: 600,
		Quarry: Quarry{
			DepthFloor:      1,
			DefaultPattern:  "QUARRY",
			DefaultSpeed:    "NORMAL",
			Speeds:          map[string]int{"SLOW": 20, "NORMAL": 10, "FAST": 5},
			AnimationStages: 3,
			BranchSpacing:   4,
			// Zero is a valid half width (one-block corridor), so it is not
			// backfilled by Normalize.
			CorridorHalfWidth: 1,
			MaxVolume:         4096,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		t.Normalize()
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("quarry.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("quarry.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.WorldHeight <= 0 {
		t.WorldHeight = d.WorldHeight
	}
	if t.WorldBoundaryR <= 0 {
		t.WorldBoundaryR = d.WorldBoundaryR
	}
	if t.SnapshotEveryTicks < 0 {
		t.SnapshotEveryTicks = 0
	}
	if t.AutosaveEveryTicks < 0 {
		t.AutosaveEveryTicks = 0
	}

	q := &t.Quarry
	q.DefaultPattern = strings.ToUpper(strings.TrimSpace(q.DefaultPattern))
	if q.DefaultPattern == "" {
		q.DefaultPattern = d.Quarry.DefaultPattern
	}
	q.DefaultSpeed = strings.ToUpper(strings.TrimSpace(q.DefaultSpeed))
	if q.DefaultSpeed == "" {
		q.DefaultSpeed = d.Quarry.DefaultSpeed
	}
	if len(q.Speeds) == 0 {
		q.Speeds = d.Quarry.Speeds
	} else {
		speeds := make(map[string]int, len(q.Speeds))
		for name, ticks := range q.Speeds {
			speeds[strings.ToUpper(strings.TrimSpace(name))] = ticks
		}
		q.Speeds = speeds
	}
	if q.AnimationStages < 0 {
		q.AnimationStages = 0
	}
	if q.BranchSpacing <= 0 {
		q.BranchSpacing = d.Quarry.BranchSpacing
	}
	if q.CorridorHalfWidth < 0 {
		q.CorridorHalfWidth = 0
	}
	if q.MaxVolume <= 0 {
		q.MaxVolume = d.Quarry.MaxVolume
	}
}

func (t Tuning) Validate() error {
	q := t.Quarry
	if q.DepthFloor < 0 || q.DepthFloor >= t.WorldHeight {
		return fmt.Errorf("quarry.depth_floor %d outside [0,%d)", q.DepthFloor, t.WorldHeight)
	}
	if !KnownPattern(q.DefaultPattern) {
		return fmt.Errorf("quarry.default_pattern %q unknown", q.DefaultPattern)
	}
	for name, ticks := range q.Speeds {
		if name == "" {
			return fmt.Errorf("quarry.speeds: empty tier name")
		}
		if ticks <= 0 {
			return fmt.Errorf("quarry.speeds.%s must be > 0", name)
		}
	}
	if _, ok := q.Speeds[q.DefaultSpeed]; !ok {
		return fmt.Errorf("quarry.default_speed %q not in speeds", q.DefaultSpeed)
	}
	return nil
}

// SpeedTicks returns the ticks-per-stage interval of a speed tier.
func (q Quarry) SpeedTicks(name string) (int, bool) {
	v, ok := q.Speeds[strings.ToUpper(name)]
	return v, ok
}

func (q Quarry) SpeedNames() []string {
	out := make([]string, 0, len(q.Speeds))
	for name := range q.Speeds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func KnownPattern(name string) bool {
	for _, p := range knownPatterns {
		if p == name {
			return true
		}
	}
	return false
}
