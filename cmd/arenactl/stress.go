package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/slabkit/arena/registry"
	"github.com/joshuapare/slabkit/kernel"
	"github.com/joshuapare/slabkit/kernel/id"
)

var (
	stressWorkers int
	stressOps     int
	stressKeep    int
	stressSeed    uint64
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVarP(&stressWorkers, "workers", "w", 8, "Concurrent workers")
	cmd.Flags().IntVarP(&stressOps, "ops", "n", 10000, "Operations per worker")
	cmd.Flags().IntVar(&stressKeep, "keep", 64, "Objects each worker keeps alive at most")
	cmd.Flags().Uint64Var(&stressSeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Create and drop kernel objects from many goroutines",
		Long: `The stress command boots the kernel state and has every worker create
rings, instances, threads, and ports, dropping them at random. Afterwards it
checks that every object was released and that no frame was misused.

Example:
  arenactl stress
  arenactl stress --workers 16 --ops 50000 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runStress(ctx)
		},
	}
	return cmd
}

// StressReport is the result of a stress run.
type StressReport struct {
	Workers     int              `json:"workers"`
	Ops         int              `json:"ops"`
	Registries  []registry.Stats `json:"registries"`
	FramesInUse int              `json:"frames_in_use"`
	Issues      []string         `json:"issues,omitempty"`
}

func runStress(ctx context.Context) error {
	if stressWorkers <= 0 || stressOps < 0 || stressKeep <= 0 {
		return errors.New("workers and keep must be positive, ops must not be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := kernel.Boot(cfg)
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}
	defer s.Close()

	mid, err := id.Random[id.ModuleKind]()
	if err != nil {
		return err
	}
	module, err := s.CreateModule(mid)
	if err != nil {
		return err
	}
	defer module.Drop()

	total := int64(stressWorkers) * int64(stressOps)
	bar := progressbar.DefaultSilent(total)
	if !quiet && !jsonOut {
		bar = progressbar.Default(total, "stress")
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := range stressWorkers {
		rng := rand.New(rand.NewPCG(stressSeed, uint64(w)))
		g.Go(func() error {
			return stressWorker(gctx, s, module, rng, bar)
		})
	}
	err = g.Wait()
	_ = bar.Finish()
	if err != nil {
		return err
	}

	report := StressReport{
		Workers:     stressWorkers,
		Ops:         stressOps,
		Registries:  s.Stats(),
		FramesInUse: s.FramesInUse(),
	}
	for _, issue := range s.FrameIssues() {
		report.Issues = append(report.Issues, issue.String())
	}
	for _, st := range report.Registries {
		if st.Name == kernel.KindThread && st.Live != 0 {
			report.Issues = append(report.Issues, fmt.Sprintf("%d threads still live", st.Live))
		}
	}

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printReport(report.Registries, report.FramesInUse, cfg.Frames)
		for _, issue := range report.Issues {
			printInfo("  ! %s\n", issue)
		}
	}
	if len(report.Issues) > 0 {
		return fmt.Errorf("stress found %d issue(s)", len(report.Issues))
	}
	return nil
}

// stressWorker runs one worker's share of operations. Each operation
// creates a thread in a fresh or existing instance, or drops a kept one.
func stressWorker(ctx context.Context, s *kernel.State, module registry.Handle[kernel.Module], rng *rand.Rand, bar *progressbar.ProgressBar) error {
	root := s.RootRing()
	defer root.Drop()

	var (
		ring      registry.Handle[kernel.Ring]
		instances []registry.Handle[kernel.Instance]
		threads   []registry.Handle[kernel.Thread]
	)
	defer func() {
		for i := range threads {
			threads[i].Drop()
		}
		for i := range instances {
			dropInstance(s, instances[i])
		}
		ring.Release()
	}()

	var err error
	if ring, err = s.CreateRing(root); err != nil {
		return err
	}

	for range stressOps {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch {
		case len(instances) == 0 || rng.IntN(8) == 0:
			inst, err := s.CreateInstance(module, ring)
			if err != nil {
				return err
			}
			instances = append(instances, inst)
		case len(threads) < stressKeep && rng.IntN(2) == 0:
			th, err := s.CreateThread(instances[rng.IntN(len(instances))])
			if err != nil {
				return err
			}
			th.With(func(t *kernel.Thread) { t.State = kernel.ThreadRunning })
			threads = append(threads, th)
		case len(threads) > 0:
			i := rng.IntN(len(threads))
			threads[i].Drop()
			threads[i] = threads[len(threads)-1]
			threads = threads[:len(threads)-1]
		}

		if len(instances) > stressKeep {
			dropInstance(s, instances[0])
			instances = instances[1:]
		}
		_ = bar.Add(1)
	}
	return nil
}

// dropInstance unlinks every thread of inst and then inst itself from its
// lists, so nothing keeps it alive once the caller's handle is dropped.
func dropInstance(s *kernel.State, inst registry.Handle[kernel.Instance]) {
	s.DetachInstance(inst)
	inst.Drop()
}
