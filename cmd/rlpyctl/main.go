package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sankeerth95/rlpy/internal/config"
	"github.com/sankeerth95/rlpy/pkg/rlpy"
)

func main() {
	if path := config.LoadDotEnv(); path != "" {
		log.Printf("loaded environment from %s", path)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(newApp(cfg)).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the settings shared by every command. open is swapped in tests
// so several commands can share one in-memory store.
type app struct {
	cfg     config.Config
	verbose bool
	open    func(opts rlpy.Options) (*rlpy.Client, error)
}

func newApp(cfg config.Config) *app {
	return &app{cfg: cfg, open: rlpy.New}
}

func (a *app) client(cmd *cobra.Command) (*rlpy.Client, error) {
	opts := rlpy.Options{
		StoreKind:  a.cfg.Store,
		DBPath:     a.cfg.DBPath,
		ExportsDir: a.cfg.ExportsDir,
	}
	if a.verbose {
		opts.Logger = log.New(cmd.ErrOrStderr(), "rlpyctl ", log.LstdFlags)
	}
	return a.open(opts)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "rlpyctl",
		Short:         "Run, store and export seeded episodes on the built-in MDP domains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.Store, "store", a.cfg.Store, "store backend: memory|sqlite")
	flags.StringVar(&a.cfg.DBPath, "db-path", a.cfg.DBPath, "sqlite database path")
	flags.StringVar(&a.cfg.ExportsDir, "exports-dir", a.cfg.ExportsDir, "default export directory")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log every episode to stderr")

	root.AddCommand(
		newInitCmd(a),
		newDomainsCmd(a),
		newRunCmd(a),
		newRunsCmd(a),
		newEpisodesCmd(a),
		newExportCmd(a),
		newDeleteCmd(a),
	)
	return root
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Init(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized store=%s\n", a.cfg.Store)
			return nil
		},
	}
}

func newDomainsCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "List the registered domains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			domains, err := client.Domains()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), domains)
			}
			for _, d := range domains {
				fmt.Fprintf(cmd.OutOrStdout(), "%s state_dims=%d actions=%d episode_cap=%d discount=%g\n",
					d.Name, d.StateDims, d.ActionCount, d.EpisodeCap, d.Discount)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit domains as JSON")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	req := rlpy.RunRequest{}
	var (
		commLocations int
		jsonOut       bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a seeded batch of episodes and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("comm-locations") {
				req.CommLocations = &commLocations
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			summary, err := client.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run_id=%s domain=%s seed=%d episodes=%d mean_return=%.6f min_return=%.6f max_return=%.6f mean_discounted=%.6f mean_steps=%.2f terminal_rate=%.3f\n",
				summary.RunID, summary.Domain, summary.Seed, summary.Episodes,
				summary.MeanReturn, summary.MinReturn, summary.MaxReturn,
				summary.MeanDiscountedReturn, summary.MeanSteps, summary.TerminalRate)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Domain, "domain", rlpy.DefaultDomain, "domain name or alias")
	f.IntVar(&req.Episodes, "episodes", a.cfg.Episodes, "number of episodes")
	f.IntVar(&req.Workers, "workers", a.cfg.Workers, "parallel episode workers")
	f.Uint64Var(&req.Seed, "seed", a.cfg.Seed, "batch seed")
	f.IntVar(&req.MaxSteps, "max-steps", 0, "step limit per episode, 0 uses the domain cap")
	f.StringVar(&req.Policy, "policy", rlpy.PolicyRandom, "policy: random|fixed")
	f.IntVar(&req.Action, "action", 0, "joint action id for the fixed policy")
	f.StringVar(&req.Integrator, "integrator", a.cfg.Integrator, "cart-pole integrator: euler|rk4|adaptive")
	f.IntVar(&req.Substeps, "substeps", 0, "integrator substeps for euler and rk4")
	f.Float64Var(&req.GoodReward, "good-reward", 0, "per-step reward for the original cart-pole variant")
	f.IntVar(&req.Units, "units", 0, "pst unit count")
	f.IntVar(&commLocations, "comm-locations", 0, "pst relay locations, unset keeps the default")
	f.Float64Var(&req.MotionNoise, "motion-noise", 0, "pst probability that a move is suppressed")
	f.BoolVar(&jsonOut, "json", false, "emit the run summary as JSON")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	req := rlpy.RunsRequest{}
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Limit <= 0 {
				return errors.New("limit must be > 0")
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			runs, err := client.Runs(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s created_at=%s domain=%s seed=%d policy=%s episodes=%d mean_return=%.6f mean_steps=%.2f terminal_rate=%.3f\n",
					r.RunID, r.CreatedAtUTC, r.Domain, r.Seed, r.Policy, r.Episodes, r.MeanReturn, r.MeanSteps, r.TerminalRate)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&req.Limit, "limit", 20, "max runs to list")
	cmd.Flags().StringVar(&req.Domain, "domain", "", "only list runs of this domain")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit runs as JSON")
	return cmd
}

func newEpisodesCmd(a *app) *cobra.Command {
	req := rlpy.EpisodesRequest{}
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "Show the episodes of a stored run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			episodes, err := client.Episodes(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), episodes)
			}
			for _, ep := range episodes {
				fmt.Fprintf(cmd.OutOrStdout(), "episode=%d seed=%d steps=%d return=%.6f discounted=%.6f terminated=%t truncated=%t\n",
					ep.Index, ep.Seed, ep.Steps, ep.Return, ep.DiscountedReturn, ep.Terminated, ep.Truncated)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.RunID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&req.Latest, "latest", false, "use the most recent run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit episodes as JSON")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	req := rlpy.ExportRequest{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a stored run to csv and xlsx files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			exported, err := client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			for _, path := range exported.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s to=%s\n", exported.RunID, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.RunID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&req.Latest, "latest", false, "export the most recent run")
	cmd.Flags().StringVar(&req.OutDir, "out", "", "export output directory, defaults to --exports-dir")
	cmd.Flags().StringVar(&req.Format, "format", "all", "export format: csv|xlsx|all")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a stored run and its episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runID == "" {
				return errors.New("delete requires --run-id")
			}
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Delete(cmd.Context(), runID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted run_id=%s\n", runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run id")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
