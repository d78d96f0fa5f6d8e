package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/contentauth/session"
)

type loadtestOptions struct {
	sessions    int
	concurrency int
	ops         int
	redisURL    string
	prefix      string
}

// NewLoadtestCmd creates the loadtest subcommand.
func NewLoadtestCmd() *cobra.Command {
	var opts loadtestOptions

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure session store throughput",
		Long: `Seed sessions, then run lookup and put/remove phases against the
session store and report latency percentiles. Without --redis-url an embedded
miniredis instance is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.sessions, "sessions", 10000, "number of sessions to seed")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 50000, "operations per phase")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", "", "redis URL; empty starts miniredis")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "lt", "session key prefix")
	return cmd
}

func runLoadtest(ctx context.Context, out io.Writer, opts loadtestOptions) error {
	if opts.sessions <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
		return oops.Code("INPUT_INVALID").Errorf("sessions, concurrency and ops must be > 0")
	}

	client, cleanup, err := loadtestRedis(out, opts.redisURL)
	if err != nil {
		return err
	}
	defer cleanup()

	store := session.NewStore(client, session.Config{Prefix: opts.prefix, OpTimeout: 2 * time.Second})

	fmt.Fprintf(out, "seeding %d sessions...\n", opts.sessions)
	start := time.Now()
	for i := 0; i < opts.sessions; i++ {
		if err := store.Put(ctx, tokenIDFor(i), userIDFor(i), time.Hour); err != nil {
			return oops.Code("SEED_FAILED").With("index", i).Wrap(err)
		}
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(start).Round(time.Millisecond))

	lookup := runPhase(opts.ops, opts.concurrency, func(r *rand.Rand, _ int) error {
		i := r.Intn(opts.sessions)
		userID, found, err := store.Get(ctx, tokenIDFor(i))
		if err != nil {
			return err
		}
		if !found || userID != userIDFor(i) {
			return fmt.Errorf("session %d missing", i)
		}
		return nil
	})

	churn := runPhase(opts.ops, opts.concurrency, func(_ *rand.Rand, op int) error {
		tokenID := fmt.Sprintf("churn-%d", op)
		if err := store.Put(ctx, tokenID, userIDFor(op), time.Minute); err != nil {
			return err
		}
		return store.Remove(ctx, tokenID)
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "lookup", lookup)
	printStats(out, "put+remove", churn)
	return nil
}

func loadtestRedis(out io.Writer, url string) (redis.UniversalClient, func(), error) {
	if url != "" {
		client, err := openRedis(url)
		if err != nil {
			return nil, nil, err
		}
		fmt.Fprintf(out, "using redis at %s\n", client.Options().Addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, oops.Code("MINIREDIS_START_FAILED").Wrap(err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func tokenIDFor(i int) string { return fmt.Sprintf("tok-%d", i) }

// Spread sessions over a bounded set of users so the per-user index grows.
func userIDFor(i int) string { return fmt.Sprintf("u-%d", i%1000) }

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

// samples must be sorted.
func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
