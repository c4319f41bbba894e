// Package rlpy is the public entry point: it runs seeded batches of episodes
// on the built-in domains, persists them, and exports them.
package rlpy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sankeerth95/rlpy/internal/catalog"
	"github.com/sankeerth95/rlpy/internal/domain"
	"github.com/sankeerth95/rlpy/internal/domainid"
	"github.com/sankeerth95/rlpy/internal/model"
	"github.com/sankeerth95/rlpy/internal/randsrc"
	"github.com/sankeerth95/rlpy/internal/report"
	"github.com/sankeerth95/rlpy/internal/rollout"
	"github.com/sankeerth95/rlpy/internal/storage"
)

const (
	defaultExportsDir = "exports"
	defaultDBPath     = "rlpy.db"
	defaultEpisodes   = 10

	PolicyRandom = "random"
	PolicyFixed  = "fixed"
)

// DefaultDomain is run when a RunRequest names no domain.
const DefaultDomain = domainid.CartPoleBalanceModern

var ErrRunNotFound = errors.New("run not found")

type (
	Domain        = domain.Domain
	State         = domain.State
	Action        = domain.Action
	DomainOptions = catalog.Options
)

// NewDomain builds a single domain instance for callers driving it directly.
func NewDomain(name string, opts DomainOptions) (Domain, error) {
	return catalog.New(name, opts)
}

type Options struct {
	StoreKind  string
	DBPath     string
	ExportsDir string
	Logger     *log.Logger
}

type Client struct {
	store      storage.Store
	exportsDir string
	logger     *log.Logger
	now        func() time.Time

	initMu      sync.Mutex
	initialized bool
}

type RunRequest struct {
	Domain   string
	Episodes int
	Workers  int
	MaxSteps int
	// Seed 0 draws a fresh seed; the one used is reported in RunSummary.
	Seed     uint64
	// Policy is PolicyRandom or PolicyFixed; Action is used by PolicyFixed.
	Policy   string
	Action   int

	Integrator    string
	Substeps      int
	GoodReward    float64
	Units         int
	// CommLocations nil keeps the domain's default relay count.
	CommLocations *int
	MotionNoise   float64
}

type RunSummary struct {
	RunID                string
	Domain               string
	Seed                 uint64
	Episodes             int
	MeanReturn           float64
	MinReturn            float64
	MaxReturn            float64
	MeanDiscountedReturn float64
	MeanSteps            float64
	TerminalRate         float64
}

type RunsRequest struct {
	Limit  int
	Domain string
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Domain       string
	Seed         uint64
	Policy       string
	Episodes     int
	MeanReturn   float64
	MeanSteps    float64
	TerminalRate float64
}

type EpisodesRequest struct {
	RunID  string
	Latest bool
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
	Format string
}

type ExportSummary struct {
	RunID string
	Files []string
}

type DomainInfo struct {
	Name        string
	StateDims   int
	ActionCount int
	EpisodeCap  int
	Discount    float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		exportsDir: exportsDir,
		logger:     opts.Logger,
		now:        time.Now,
	}, nil
}

// SetLogger replaces the batch logger for later runs. nil disables logging.
// It must not be called while a Run is in flight.
func (c *Client) SetLogger(logger *log.Logger) {
	c.logger = logger
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureStore(ctx)
	return err
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Domain == "" {
		req.Domain = DefaultDomain
	}
	if req.Episodes <= 0 {
		req.Episodes = defaultEpisodes
	}
	if req.Workers <= 0 {
		req.Workers = 1
	}
	if req.MaxSteps < 0 {
		return RunSummary{}, errors.New("max steps must be >= 0")
	}

	policies, policyName, err := policyFromRequest(req)
	if err != nil {
		return RunSummary{}, err
	}
	if req.Seed == 0 {
		if req.Seed, err = randsrc.NewSeed(); err != nil {
			return RunSummary{}, err
		}
	}
	store, err := c.ensureStore(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	result, err := rollout.RunBatch(ctx, rollout.BatchRequest{
		Domain: req.Domain,
		Options: catalog.Options{
			Integrator:    req.Integrator,
			Substeps:      req.Substeps,
			GoodReward:    req.GoodReward,
			Units:         req.Units,
			CommLocations: req.CommLocations,
			MotionNoise:   req.MotionNoise,
		},
		Seed:     req.Seed,
		Episodes: req.Episodes,
		Workers:  req.Workers,
		MaxSteps: req.MaxSteps,
		Policy:   policies,
		Logger:   c.logger,
	})
	if err != nil {
		return RunSummary{}, err
	}

	run := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              uuid.NewString(),
		Domain:          result.Domain,
		Seed:            req.Seed,
		Integrator:      result.Integrator,
		Policy:          policyName,
		Episodes:        req.Episodes,
		Workers:         req.Workers,
		MaxSteps:        req.MaxSteps,
		CreatedAt:       c.now().UTC(),
		Summary:         runSummary(result.Summary),
	}
	episodes := make([]model.EpisodeRecord, len(result.Episodes))
	for i, ep := range result.Episodes {
		episodes[i] = model.EpisodeRecord{
			VersionedRecord:  storage.CurrentVersion(),
			RunID:            run.ID,
			Index:            ep.Index,
			Seed:             ep.Seed,
			Steps:            ep.Steps,
			Return:           ep.Return,
			DiscountedReturn: ep.DiscountedReturn,
			Terminated:       ep.Terminated,
			Truncated:        ep.Truncated,
			FinalState:       []float64(ep.FinalState),
		}
	}
	if err := store.SaveEpisodes(ctx, run.ID, episodes); err != nil {
		return RunSummary{}, fmt.Errorf("save episodes: %w", err)
	}
	if err := store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, fmt.Errorf("save run: %w", err)
	}

	return RunSummary{
		RunID:                run.ID,
		Domain:               run.Domain,
		Seed:                 run.Seed,
		Episodes:             run.Episodes,
		MeanReturn:           run.Summary.MeanReturn,
		MinReturn:            run.Summary.MinReturn,
		MaxReturn:            run.Summary.MaxReturn,
		MeanDiscountedReturn: run.Summary.MeanDiscountedReturn,
		MeanSteps:            run.Summary.MeanSteps,
		TerminalRate:         run.Summary.TerminalRate,
	}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	filter := domainid.Normalize(req.Domain)
	out := make([]RunItem, 0, min(len(runs), req.Limit))
	for _, run := range runs {
		if filter != "" && run.Domain != filter {
			continue
		}
		out = append(out, RunItem{
			RunID:        run.ID,
			CreatedAtUTC: run.CreatedAt.UTC().Format(time.RFC3339),
			Domain:       run.Domain,
			Seed:         run.Seed,
			Policy:       run.Policy,
			Episodes:     run.Episodes,
			MeanReturn:   run.Summary.MeanReturn,
			MeanSteps:    run.Summary.MeanSteps,
			TerminalRate: run.Summary.TerminalRate,
		})
		if len(out) == req.Limit {
			break
		}
	}
	return out, nil
}

func (c *Client) Episodes(ctx context.Context, req EpisodesRequest) ([]model.EpisodeRecord, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	run, err := c.resolveRun(ctx, store, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	episodes, ok, err := store.GetEpisodes(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no episodes for %s", ErrRunNotFound, run.ID)
	}
	return episodes, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	store, err := c.ensureStore(ctx)
	if err != nil {
		return ExportSummary{}, err
	}
	run, err := c.resolveRun(ctx, store, req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	episodes, _, err := store.GetEpisodes(ctx, run.ID)
	if err != nil {
		return ExportSummary{}, err
	}
	files, err := report.Export(req.OutDir, req.Format, run, episodes)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: run.ID, Files: files}, nil
}

func (c *Client) Delete(ctx context.Context, runID string) error {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return err
	}
	if _, err := c.resolveRun(ctx, store, runID, false); err != nil {
		return err
	}
	return store.DeleteRun(ctx, runID)
}

// Domains describes every registered domain with its default settings.
func (c *Client) Domains() ([]DomainInfo, error) {
	names := catalog.Names()
	out := make([]DomainInfo, 0, len(names))
	for _, name := range names {
		d, err := catalog.New(name, catalog.Options{})
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", name, err)
		}
		spec := d.Spec()
		out = append(out, DomainInfo{
			Name:        d.Name(),
			StateDims:   spec.StateDims,
			ActionCount: spec.ActionCount,
			EpisodeCap:  spec.EpisodeCap,
			Discount:    spec.Discount,
		})
	}
	return out, nil
}

func (c *Client) resolveRun(ctx context.Context, store storage.Store, runID string, latest bool) (model.RunRecord, error) {
	if runID != "" && latest {
		return model.RunRecord{}, errors.New("use either run id or latest")
	}
	if runID == "" && !latest {
		return model.RunRecord{}, errors.New("run id or latest is required")
	}
	if latest {
		runs, err := store.ListRuns(ctx)
		if err != nil {
			return model.RunRecord{}, err
		}
		if len(runs) == 0 {
			return model.RunRecord{}, fmt.Errorf("%w: no runs available", ErrRunNotFound)
		}
		return runs[0], nil
	}
	run, ok, err := store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

func (c *Client) ensureStore(ctx context.Context) (storage.Store, error) {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return c.store, nil
	}
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	c.initialized = true
	return c.store, nil
}

func policyFromRequest(req RunRequest) (rollout.PolicyFactory, string, error) {
	switch strings.ToLower(strings.TrimSpace(req.Policy)) {
	case "", PolicyRandom:
		return rollout.RandomPolicies, PolicyRandom, nil
	case PolicyFixed:
		if req.Action < 0 {
			return nil, "", fmt.Errorf("fixed policy action must be >= 0, got %d", req.Action)
		}
		return rollout.FixedPolicies(domain.Action(req.Action)), fmt.Sprintf("%s:%d", PolicyFixed, req.Action), nil
	default:
		return nil, "", fmt.Errorf("unknown policy: %s", req.Policy)
	}
}

func runSummary(s rollout.Summary) model.RunSummary {
	return model.RunSummary{
		MeanReturn:           s.MeanReturn,
		MinReturn:            s.MinReturn,
		MaxReturn:            s.MaxReturn,
		MeanDiscountedReturn: s.MeanDiscountedReturn,
		MeanSteps:            s.MeanSteps,
		TerminalRate:         s.TerminalRate,
	}
}
