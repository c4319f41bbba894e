package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one batch of episodes on a single domain.
type RunRecord struct {
	VersionedRecord
	ID         string     `json:"id"`
	Domain     string     `json:"domain"`
	Seed       uint64     `json:"seed"`
	Integrator string     `json:"integrator,omitempty"`
	Policy     string     `json:"policy"`
	Episodes   int        `json:"episodes"`
	Workers    int        `json:"workers"`
	MaxSteps   int        `json:"max_steps"`
	CreatedAt  time.Time  `json:"created_at"`
	Summary    RunSummary `json:"summary"`
}

type RunSummary struct {
	MeanReturn           float64 `json:"mean_return"`
	MinReturn            float64 `json:"min_return"`
	MaxReturn            float64 `json:"max_return"`
	MeanDiscountedReturn float64 `json:"mean_discounted_return"`
	MeanSteps            float64 `json:"mean_steps"`
	TerminalRate         float64 `json:"terminal_rate"`
}

type EpisodeRecord struct {
	VersionedRecord
	RunID            string    `json:"run_id"`
	Index            int       `json:"index"`
	Seed             uint64    `json:"seed"`
	Steps            int       `json:"steps"`
	Return           float64   `json:"return"`
	DiscountedReturn float64   `json:"discounted_return"`
	Terminated       bool      `json:"terminated"`
	Truncated        bool      `json:"truncated"`
	FinalState       []float64 `json:"final_state"`
}
