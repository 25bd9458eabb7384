package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	regAuth "github.com/MrEthical07/regAuth"
	"github.com/MrEthical07/regAuth/directory"
	"github.com/MrEthical07/regAuth/notify"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

const loadtestPassword = "Loadtest-Pass-2024!"

type loadtestOptions struct {
	users       int
	concurrency int
	ops         int
	rate        float64
	redisAddr   string
	bcryptCost  int
}

var loadOpts loadtestOptions

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Measure login, validate and refresh throughput in process",
	Long: `Seed accounts into an in-process engine backed by Redis, then run login, validate
and refresh phases and print latency percentiles.

Without --redis-addr (or REDIS_ADDR) an embedded miniredis is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runLoadtest(cmd.Context(), loadOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := loadtestCmd.Flags()
	f.IntVar(&loadOpts.users, "users", 1000, "number of accounts to seed")
	f.IntVar(&loadOpts.concurrency, "concurrency", 64, "number of concurrent workers")
	f.IntVar(&loadOpts.ops, "ops", 20000, "operations per phase")
	f.Float64Var(&loadOpts.rate, "rate", 0, "operations per second across workers; 0 means unpaced")
	f.StringVar(&loadOpts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	f.IntVar(&loadOpts.bcryptCost, "bcrypt-cost", 4, "bcrypt cost for seeded accounts")
	rootCmd.AddCommand(loadtestCmd)
}

type accountState struct {
	username string
	access   string
	refresh  string
	mu       sync.Mutex
}

func runLoadtest(ctx context.Context, opts loadtestOptions, w io.Writer) error {
	if opts.users <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
		return errors.New("users, concurrency, and ops must be > 0")
	}

	addr := opts.redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Fprintf(w, "using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Fprintf(w, "using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	engine, err := newLoadtestEngine(client, opts.bcryptCost)
	if err != nil {
		return err
	}
	defer engine.Close()

	states := make([]accountState, opts.users)
	fmt.Fprintf(w, "seeding %d accounts...\n", opts.users)
	startSeed := time.Now()
	for i := range states {
		username := fmt.Sprintf("load%06d", i)
		res, err := engine.Register(ctx, regAuth.RegisterRequest{
			Username: username,
			FullName: "Load " + username,
			Email:    username + "@load.test",
			Password: loadtestPassword,
		})
		if err != nil {
			return fmt.Errorf("seed %s: %w", username, err)
		}
		states[i].username = username
		states[i].access = res.Tokens.AccessToken
		states[i].refresh = res.Tokens.RefreshToken
	}
	fmt.Fprintf(w, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	limiter := newPacer(opts.rate, opts.concurrency)

	loginStats := runPhase(ctx, limiter, opts.ops, opts.concurrency, func(r *mrand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		_, err := engine.Login(ctx, state.username, loadtestPassword)
		return err
	})

	validateStats := runPhase(ctx, limiter, opts.ops, opts.concurrency, func(r *mrand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		access := state.access
		state.mu.Unlock()
		_, err := engine.Validate(ctx, access)
		return err
	})

	refreshStats := runPhase(ctx, limiter, opts.ops, opts.concurrency, func(r *mrand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()
		pair, err := engine.Refresh(ctx, state.refresh)
		if err != nil {
			return err
		}
		state.access = pair.AccessToken
		state.refresh = pair.RefreshToken
		return nil
	})

	fmt.Fprintln(w, "---- results ----")
	printStats(w, "login", loginStats)
	printStats(w, "validate", validateStats)
	printStats(w, "refresh", refreshStats)
	return nil
}

func newLoadtestEngine(client redis.UniversalClient, bcryptCost int) (*regAuth.Engine, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}

	cfg := regAuth.DefaultConfig()
	cfg.JWT.PrivateKey = secret
	cfg.Password.BcryptCost = bcryptCost
	cfg.Password.UpgradeOnLogin = false
	cfg.MFA.DefaultEnabled = false
	cfg.RateLimit.Enabled = false
	cfg.Audit.Enabled = false

	return regAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserDirectory(directory.NewMemory(nil)).
		WithNotifier(notify.Func(func(context.Context, string, string, string) (bool, error) { return true, nil })).
		Build()
}

func newPacer(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func runPhase(ctx context.Context, limiter *rate.Limiter, ops, concurrency int, op func(r *mrand.Rand, i int) error) phaseStats {
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
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				if err := limiter.Wait(ctx); err != nil {
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
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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
		return phaseStats{total: total}
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
