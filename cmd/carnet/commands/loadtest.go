package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/carnet-digital/carnet/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type loadtestOptions struct {
	sessions    int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

type tokenState struct {
	mu    sync.Mutex
	token string
	gen   int
}

// NewLoadtestCommand creates the command that measures refresh rotation and
// blacklist lookups against the session store.
func NewLoadtestCommand() *cobra.Command {
	o := loadtestOptions{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure session store latency for rotation and blacklist checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.sessions <= 0 || o.concurrency <= 0 || o.ops <= 0 {
				return errors.New("sessions, concurrency, and ops must be > 0")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runLoadtest(ctx, cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().IntVar(&o.sessions, "sessions", 10000, "number of refresh tokens to seed")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().IntVar(&o.ops, "ops", 50000, "operations per phase")
	cmd.Flags().StringVar(&o.redisAddr, "redis-addr", "", "redis address; miniredis when empty")
	cmd.Flags().StringVar(&o.prefix, "prefix", "carnet-loadtest", "key prefix")
	return cmd
}

func runLoadtest(ctx context.Context, out io.Writer, o loadtestOptions) error {
	addr := o.redisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("failed to start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = rdb.Close() }()

	store := session.NewStore(rdb, o.prefix)

	states := make([]tokenState, o.sessions)
	start := time.Now()
	for i := range states {
		states[i].token = fmt.Sprintf("rt-%d-0", i)
		if err := store.SaveRefresh(ctx, states[i].token, record(i), time.Hour); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
		if i%2 == 0 {
			if err := store.Blacklist(ctx, fmt.Sprintf("at-%d", i), time.Hour); err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
		}
	}
	fmt.Fprintf(out, "seeded %d sessions in %s\n", o.sessions, time.Since(start).Round(time.Millisecond))

	blacklist := runPhase(o.ops, o.concurrency, func(r *rand.Rand) error {
		_, err := store.IsBlacklisted(ctx, fmt.Sprintf("at-%d", r.Intn(len(states))))
		return err
	})
	rotate := runPhase(o.ops, o.concurrency, func(r *rand.Rand) error {
		idx := r.Intn(len(states))
		st := &states[idx]
		st.mu.Lock()
		defer st.mu.Unlock()

		rec, err := store.RedeemRefresh(ctx, st.token)
		if err != nil {
			return err
		}
		next := fmt.Sprintf("rt-%d-%d", idx, st.gen+1)
		if err := store.SaveRefresh(ctx, next, rec, time.Hour); err != nil {
			return err
		}
		st.token = next
		st.gen++
		return nil
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "blacklist", blacklist)
	printStats(out, "rotate", rotate)
	return nil
}

func record(i int) *session.RefreshRecord {
	now := time.Now()
	return &session.RefreshRecord{
		UserID:    fmt.Sprintf("user-%d", i),
		Email:     fmt.Sprintf("user%d@cuc.cr", i),
		UserType:  "estudiante",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

// runPhase spreads ops calls of op over concurrency workers.
func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
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
				err := op(r)
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

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
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
