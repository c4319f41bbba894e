package pst

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sankeerth95/rlpy/internal/domain"
	"github.com/sankeerth95/rlpy/internal/randsrc"
)

func newDomain(t *testing.T, cfg Config, seed uint64) *Domain {
	t.Helper()
	d, err := New(cfg, randsrc.New(seed))
	if err != nil {
		t.Fatalf("new pst: %v", err)
	}
	return d
}

func joint(t *testing.T, d *Domain, moves ...Move) domain.Action {
	t.Helper()
	a, err := d.Encode(moves)
	if err != nil {
		t.Fatalf("encode %v: %v", moves, err)
	}
	return a
}

func stateOf(units ...Unit) domain.State {
	return encodeState(units)
}

// reliable removes every stochastic outcome except the ones a test turns back on.
func reliable(units int) Config {
	cfg := DefaultConfig()
	cfg.Units = units
	cfg.PFuelNominal = 1
	cfg.PActuatorFail = 0
	cfg.PSensorFail = 0
	return cfg
}

func TestResetState(t *testing.T) {
	d := newDomain(t, DefaultConfig(), 1)
	s := d.Reset()
	if len(s) != 24 {
		t.Fatalf("expected 24 state values, got %d", len(s))
	}
	for i := 0; i < 6; i++ {
		block := s[i*BlockSize : (i+1)*BlockSize]
		if diff := cmp.Diff([]float64{0, 10, 1, 1}, []float64(block)); diff != "" {
			t.Fatalf("unit %d block (-want +got):\n%s", i, diff)
		}
	}
	spec := d.Spec()
	if spec.ActionCount != 729 || spec.EpisodeCap != 100 || spec.Discount != 0.9 || len(spec.Limits) != 24 {
		t.Fatalf("unexpected spec %+v", spec)
	}
	if spec.Limits[0].Max != 3 || spec.Limits[1].Max != 10 {
		t.Fatalf("unexpected limits %+v", spec.Limits[:4])
	}
	if got := d.LegalActions(s); len(got) != 64 {
		t.Fatalf("expected 2^6 legal actions at reset, got %d", len(got))
	}
}

func TestPerUnitLegality(t *testing.T) {
	cfg := reliable(4)
	d := newDomain(t, cfg, 1)
	s := stateOf(
		Unit{Location: 0, Fuel: 9, Actuator: Running, Sensor: Running},  // partial fuel at base
		Unit{Location: 3, Fuel: 0, Actuator: Failed, Sensor: Failed},    // crashed
		Unit{Location: 2, Fuel: 5, Actuator: Running, Sensor: Running},  // surveillance
		Unit{Location: 1, Fuel: 5, Actuator: Running, Sensor: Running},  // relay
	)
	var want []domain.Action
	for _, surveil := range []Move{Retreat, Loiter} {
		for _, relay := range []Move{Retreat, Loiter, Advance} {
			want = append(want, joint(t, d, Loiter, Loiter, surveil, relay))
		}
	}
	got := d.LegalActions(s)
	if len(got) != len(want) {
		t.Fatalf("expected %d legal actions, got %d: %v", len(want), len(got), got)
	}
	for _, a := range want {
		if !domain.ContainsAction(got, a) {
			t.Fatalf("expected action %d in legal set %v", a, got)
		}
	}
	if d.LegalActions(domain.State{1, 2}) != nil {
		t.Fatal("expected nil legal actions for malformed state")
	}
}

func TestIllegalActionLeavesStateUnchanged(t *testing.T) {
	d := newDomain(t, reliable(2), 1)
	d.Reset()
	before := d.Snapshot()
	for _, a := range []domain.Action{
		joint(t, d, Retreat, Loiter),
		joint(t, d, Loiter, Retreat),
		9,
		-1,
	} {
		if _, _, _, err := d.Step(a); !errors.Is(err, domain.ErrIllegalAction) {
			t.Fatalf("action %d: expected ErrIllegalAction, got %v", a, err)
		}
	}
	if diff := cmp.Diff(before, d.Snapshot()); diff != "" {
		t.Fatalf("state changed on illegal action (-before +after):\n%s", diff)
	}
}

func TestFuelExhaustionCrashIsAbsorbing(t *testing.T) {
	cfg := reliable(1)
	cfg.FullFuel = 1
	d := newDomain(t, cfg, 1)
	d.Reset()

	reward, next, terminal, err := d.Step(joint(t, d, Advance))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if terminal {
		t.Fatal("pst never terminates")
	}
	if int(next[FieldLocation]) != cfg.CrashedLocation() {
		t.Fatalf("expected crash, got state %v", next)
	}
	if got := d.Aggregates().NumCrashed; got != 1 {
		t.Fatalf("expected crash counter 1, got %d", got)
	}
	if reward != -2 {
		t.Fatalf("expected crash penalty -2, got %v", reward)
	}

	legal := d.LegalActions(next)
	if diff := cmp.Diff([]domain.Action{joint(t, d, Loiter)}, legal); diff != "" {
		t.Fatalf("crashed unit legal set (-want +got):\n%s", diff)
	}
	for i := 0; i < 5; i++ {
		reward, again, _, err := d.Step(joint(t, d, Loiter))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if diff := cmp.Diff(next, again); diff != "" {
			t.Fatalf("crashed unit moved (-want +got):\n%s", diff)
		}
		if reward != -2 {
			t.Fatalf("expected cumulative crash penalty every step, got %v", reward)
		}
	}
	if got := d.Aggregates().NumCrashed; got != 1 {
		t.Fatalf("crash counter must not grow for absorbed units, got %d", got)
	}
}

func TestCrashPenaltyAccumulates(t *testing.T) {
	cfg := reliable(3)
	cfg.FullFuel = 2
	cfg.PFuelNominal = 0
	d := newDomain(t, cfg, 1)
	d.Reset()

	reward, _, _, err := d.Step(joint(t, d, Advance, Loiter, Loiter))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if reward != -2 {
		t.Fatalf("expected one crash penalty, got %v", reward)
	}
	reward, _, _, err = d.Step(joint(t, d, Loiter, Advance, Loiter))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if reward != -4 {
		t.Fatalf("expected penalty for both crashes, got %v", reward)
	}
	if got := d.Aggregates().NumCrashed; got != 2 {
		t.Fatalf("expected 2 crashes, got %d", got)
	}
	d.Reset()
	if got := d.Aggregates().NumCrashed; got != 0 {
		t.Fatalf("reset must clear crash counter, got %d", got)
	}
}

func TestBaseServicing(t *testing.T) {
	cfg := reliable(2)
	cfg.PActuatorFail = 1
	cfg.PSensorFail = 1
	d := newDomain(t, cfg, 1)
	err := d.SetState(stateOf(
		Unit{Location: 0, Fuel: 3, Actuator: Failed, Sensor: Failed},
		Unit{Location: 1, Fuel: 5, Actuator: Failed, Sensor: Running},
	))
	if err != nil {
		t.Fatalf("set state: %v", err)
	}
	_, _, _, err = d.Step(joint(t, d, Loiter, Retreat))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	want := []Unit{
		{Location: 0, Fuel: 4, Actuator: Running, Sensor: Running},
		{Location: 0, Fuel: 6, Actuator: Running, Sensor: Running},
	}
	if diff := cmp.Diff(want, d.Units()); diff != "" {
		t.Fatalf("base servicing (-want +got):\n%s", diff)
	}
	if d.Aggregates().FuelBurned != 0 {
		t.Fatalf("no fuel burns at base, got %d", d.Aggregates().FuelBurned)
	}

	if err := d.SetState(stateOf(
		Unit{Location: 0, Fuel: 10, Actuator: Running, Sensor: Running},
		Unit{Location: 0, Fuel: 10, Actuator: Running, Sensor: Running},
	)); err != nil {
		t.Fatalf("set state: %v", err)
	}
	if _, _, _, err := d.Step(joint(t, d, Loiter, Loiter)); err != nil {
		t.Fatalf("step: %v", err)
	}
	for i, u := range d.Units() {
		if u.Fuel != 10 {
			t.Fatalf("unit %d refuel must cap at full fuel, got %d", i, u.Fuel)
		}
	}
}

func TestFailuresAreOneWay(t *testing.T) {
	d := newDomain(t, reliable(1), 1)
	if err := d.SetState(stateOf(Unit{Location: 1, Fuel: 8, Actuator: Failed, Sensor: Failed})); err != nil {
		t.Fatalf("set state: %v", err)
	}
	if _, _, _, err := d.Step(joint(t, d, Loiter)); err != nil {
		t.Fatalf("step: %v", err)
	}
	u := d.Units()[0]
	if u.Actuator != Failed || u.Sensor != Failed || u.Fuel != 7 {
		t.Fatalf("unexpected unit after loiter away from base: %+v", u)
	}

	cfg := reliable(1)
	cfg.PActuatorFail = 1
	cfg.PSensorFail = 1
	d = newDomain(t, cfg, 1)
	d.Reset()
	if _, _, _, err := d.Step(joint(t, d, Advance)); err != nil {
		t.Fatalf("step: %v", err)
	}
	u = d.Units()[0]
	if u.Location != 1 || u.Actuator != Failed || u.Sensor != Failed {
		t.Fatalf("expected certain failures after leaving base: %+v", u)
	}
	if d.Aggregates().AllCommLocationsCovered {
		t.Fatal("relay held only by a failed actuator must not be covered")
	}
}

func TestSurveillanceRewardNeedsRelay(t *testing.T) {
	d := newDomain(t, reliable(2), 1)
	relay := Unit{Location: 1, Fuel: 10, Actuator: Running, Sensor: Running}
	watcher := Unit{Location: 2, Fuel: 10, Actuator: Running, Sensor: Running}

	if err := d.SetState(stateOf(relay, watcher)); err != nil {
		t.Fatalf("set state: %v", err)
	}
	reward, _, _, err := d.Step(joint(t, d, Loiter, Loiter))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	agg := d.Aggregates()
	if !agg.AllCommLocationsCovered || agg.NumHealthySurveilling != 1 || reward != 1.5 {
		t.Fatalf("expected covered surveillance reward 1.5, got %v with %+v", reward, agg)
	}
	if agg.FuelBurned != 2 {
		t.Fatalf("expected 2 fuel burned, got %d", agg.FuelBurned)
	}

	if err := d.SetState(stateOf(relay, watcher)); err != nil {
		t.Fatalf("set state: %v", err)
	}
	reward, _, _, err = d.Step(joint(t, d, Retreat, Loiter))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	agg = d.Aggregates()
	if agg.AllCommLocationsCovered || agg.NumHealthySurveilling != 1 || reward != 0 {
		t.Fatalf("expected no reward without relay, got %v with %+v", reward, agg)
	}
}

func TestFuelBurnReward(t *testing.T) {
	cfg := reliable(1)
	cfg.FuelBurnReward = -0.5
	d := newDomain(t, cfg, 1)
	d.Reset()
	reward, _, _, err := d.Step(joint(t, d, Advance))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if reward != -0.5 {
		t.Fatalf("expected fuel burn penalty -0.5, got %v", reward)
	}
}

func TestMotionNoiseSuppressesMoves(t *testing.T) {
	cfg := reliable(1)
	cfg.PMotionNoise = 1
	d := newDomain(t, cfg, 1)
	d.Reset()
	for i := 0; i < 3; i++ {
		if _, _, _, err := d.Step(joint(t, d, Advance)); err != nil {
			t.Fatalf("step: %v", err)
		}
		if u := d.Units()[0]; u.Location != BaseLocation || u.Fuel != cfg.FullFuel {
			t.Fatalf("expected unit held at base, got %+v", u)
		}
	}
}

func TestCoverageInvariantAcrossSeeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Units = 4
	cfg.CommLocations = 2
	cfg.FullFuel = 6
	cfg.PActuatorFail = 0.2
	cfg.PSensorFail = 0.2
	cfg.PMotionNoise = 0.1

	for seed := uint64(0); seed < 200; seed++ {
		d := newDomain(t, cfg, seed)
		picker := randsrc.New(seed + 10_000)
		s := d.Reset()
		for step := 0; step < 40; step++ {
			legal := d.LegalActions(s)
			if len(legal) == 0 {
				t.Fatalf("seed %d step %d: empty legal set for %v", seed, step, s)
			}
			a := legal[int(picker.Float64()*float64(len(legal)))]
			reward, next, _, err := d.Step(a)
			if err != nil {
				t.Fatalf("seed %d step %d: %v", seed, step, err)
			}
			units, err := d.decodeState(next)
			if err != nil {
				t.Fatalf("seed %d step %d: invalid state %v: %v", seed, step, next, err)
			}

			covered := true
			for loc := 1; loc <= cfg.CommLocations; loc++ {
				held := false
				for _, u := range units {
					if u.Location == loc && u.Actuator == Running {
						held = true
					}
				}
				covered = covered && held
			}
			healthy, crashed := 0, 0
			for _, u := range units {
				if u.Location == cfg.SurveilLocation() && u.Actuator == Running && u.Sensor == Running {
					healthy++
				}
				if u.Location == cfg.CrashedLocation() {
					crashed++
				}
			}

			agg := d.Aggregates()
			if agg.AllCommLocationsCovered != covered || agg.NumHealthySurveilling != healthy || agg.NumCrashed != crashed {
				t.Fatalf("seed %d step %d: aggregates %+v disagree with state %v", seed, step, agg, next)
			}
			want := cfg.CrashReward * float64(crashed)
			if covered {
				want += cfg.SurveilReward * float64(healthy)
			}
			if reward != want {
				t.Fatalf("seed %d step %d: reward %v want %v", seed, step, reward, want)
			}
			s = next
		}
	}
}

func TestDeterministicForSeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PActuatorFail = 0.3
	run := func() []domain.State {
		d := newDomain(t, cfg, 42)
		s := d.Reset()
		out := []domain.State{s}
		for i := 0; i < 30; i++ {
			legal := d.LegalActions(s)
			_, next, _, err := d.Step(legal[len(legal)-1])
			if err != nil {
				t.Fatalf("step: %v", err)
			}
			out = append(out, next)
			s = next
		}
		return out
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Fatalf("trajectories diverged (-first +second):\n%s", diff)
	}
}

func TestSetStateValidation(t *testing.T) {
	d := newDomain(t, reliable(1), 1)
	bad := []domain.State{
		{0, 10, 1},
		{4, 10, 1, 1},
		{0, 11, 1, 1},
		{0, 10, 2, 1},
		{0, 9.5, 1, 1},
	}
	for _, s := range bad {
		if err := d.SetState(s); err == nil {
			t.Fatalf("expected error for state %v", s)
		}
	}
	if err := d.SetState(domain.State{3, 0, 0, 0}); err != nil {
		t.Fatalf("set crashed state: %v", err)
	}
	if d.Aggregates().NumCrashed != 1 {
		t.Fatalf("expected pre-crashed unit to count, got %+v", d.Aggregates())
	}
}

func TestConfigValidation(t *testing.T) {
	mutations := map[string]func(*Config){
		"no units":         func(c *Config) { c.Units = 0 },
		"negative comms":   func(c *Config) { c.CommLocations = -1 },
		"no fuel":          func(c *Config) { c.FullFuel = 0 },
		"bad probability":  func(c *Config) { c.PSensorFail = 1.1 },
		"positive crash":   func(c *Config) { c.CrashReward = 1 },
		"negative surveil": func(c *Config) { c.SurveilReward = -1 },
		"negative burn":    func(c *Config) { c.StochasticBurn = -1 },
		"codec overflow":   func(c *Config) { c.Units = 64 },
		"negative cap":     func(c *Config) { c.EpisodeCap = -1 },
	}
	for name, mutate := range mutations {
		cfg := DefaultConfig()
		mutate(&cfg)
		if _, err := New(cfg, randsrc.New(1)); !errors.Is(err, domain.ErrConfiguration) {
			t.Fatalf("%s: expected ErrConfiguration, got %v", name, err)
		}
	}
	if _, err := New(DefaultConfig(), nil); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration without random source, got %v", err)
	}
}
