// Command goaccess-soak drives one access manager with short-lived tokens,
// concurrent updaters and churning listeners, then prints latency and counter
// summaries. Audit events go to a Redis stream; without -redis-addr or
// REDIS_ADDR an in-process miniredis is used.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	goAccess "github.com/MrEthical07/goAccess"
	"github.com/MrEthical07/goAccess/audit/redisstream"
	"github.com/MrEthical07/goAccess/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var signingKey = []byte("goaccess-soak-signing-key-not-secret")

// client is a listener key. Its counter is a separate allocation so the
// callback does not pin the client.
type client struct {
	id       int
	received *atomic.Int64
}

func main() {
	var (
		clients     = flag.Int("clients", 1000, "listeners registered up front")
		churn       = flag.Int("churn", 200, "listeners dropped without unregistering, left to the collector")
		concurrency = flag.Int("concurrency", 32, "concurrent updater goroutines")
		ops         = flag.Int("ops", 20000, "total UpdateToken calls")
		ttl         = flag.Duration("ttl", 4*time.Second, "lifetime of minted tokens")
		lead        = flag.Duration("lead", 2*time.Second, "will-expire lead")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		stream      = flag.String("stream", redisstream.DefaultStream, "audit stream key")
		logLevel    = flag.String("log-level", "warn", "debug, info, warn or error")
		logJSON     = flag.Bool("log-json", false, "emit JSON logs")
		dumpMetrics = flag.Bool("metrics", false, "print Prometheus exposition at the end")
	)
	flag.Parse()

	if *clients <= 0 || *concurrency <= 0 || *ops <= 0 || *churn < 0 || *churn > *clients {
		fmt.Fprintln(os.Stderr, "clients, concurrency and ops must be > 0 and churn within [0, clients]")
		os.Exit(2)
	}
	if *lead >= *ttl {
		fmt.Fprintln(os.Stderr, "lead must be shorter than ttl")
		os.Exit(2)
	}

	logger := newLogger(*logLevel, *logJSON)
	defer func() { _ = logger.Sync() }()

	rdb, cleanup, err := connectRedis(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	sink, err := redisstream.New(rdb, redisstream.Config{Stream: *stream, MaxLen: 100000, ApproxTrim: true}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit sink: %v\n", err)
		os.Exit(1)
	}

	tally := newEventTally()
	var renewals atomic.Int64
	delegate := goAccess.DelegateFuncs{
		OnWillExpire: func(m *goAccess.Manager) {
			if err := m.UpdateToken(mint(*ttl)); err != nil {
				logger.Warn("renewal rejected", zap.Error(err))
				return
			}
			renewals.Add(1)
		},
		OnExpired: func(*goAccess.Manager) {
			logger.Error("token expired before renewal")
		},
	}

	cfg := goAccess.DefaultConfig()
	cfg.Expiry.WillExpireLead = *lead
	cfg.Audit = goAccess.AuditConfig{Enabled: true, BufferSize: 4096, DropIfFull: true}
	cfg.Metrics = goAccess.MetricsConfig{Enabled: true, EnableLatencyHistograms: true}

	m, err := goAccess.New().
		WithConfig(cfg).
		WithDelegate(delegate).
		WithLogger(logger).
		WithAuditSink(goAccess.MultiSink{sink, goAccess.SinkFunc(tally.record)}).
		Build(mint(*ttl))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build manager: %v\n", err)
		os.Exit(1)
	}

	kept := registerClients(m, *clients, *churn)
	fmt.Printf("registered %d listeners (%d left to the collector)\n", *clients, *churn)

	updateStats := runUpdatePhase(m, *ops, *concurrency, *ttl)

	runtime.GC()
	time.Sleep(100 * time.Millisecond)

	fmt.Println("---- results ----")
	printStats("update", updateStats)
	fmt.Printf("renewals=%d live_listeners=%d audit_dropped=%d\n", renewals.Load(), m.ListenerCount(), m.AuditDropped())

	var minReceived, maxReceived int64 = -1, 0
	for _, c := range kept {
		n := c.received.Load()
		if minReceived < 0 || n < minReceived {
			minReceived = n
		}
		if n > maxReceived {
			maxReceived = n
		}
	}
	fmt.Printf("deliveries per kept listener: min=%d max=%d\n", minReceived, maxReceived)

	if *dumpMetrics {
		fmt.Print(prometheus.NewPrometheusExporter(m).Render())
	}

	m.Shutdown()
	fmt.Printf("audit stream %s: written=%d failed=%d\n", sink.Stream(), sink.Written(), sink.Failed())
	fmt.Printf("audit events: %s\n", tally)
	runtime.KeepAlive(kept)
}

func connectRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", addr, err)
	}
	fmt.Printf("using redis at %s\n", addr)
	return client, func() { _ = client.Close() }, nil
}

// registerClients registers n listeners and returns the ones the caller keeps
// reachable. The first churn clients are dropped immediately.
func registerClients(m *goAccess.Manager, n, churn int) []*client {
	kept := make([]*client, 0, n-churn)
	for i := 0; i < n; i++ {
		received := new(atomic.Int64)
		c := &client{id: i, received: received}
		if err := goAccess.RegisterClient(m, c, func(string) { received.Add(1) }); err != nil {
			fmt.Fprintf(os.Stderr, "register client %d: %v\n", i, err)
			os.Exit(1)
		}
		if i >= churn {
			kept = append(kept, c)
		}
	}
	return kept
}

func runUpdatePhase(m *goAccess.Manager, ops, concurrency int, ttl time.Duration) phaseStats {
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
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				tok := mint(ttl)
				t0 := time.Now()
				err := m.UpdateToken(tok)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func mint(ttl time.Duration) string {
	now := time.Now()
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.RegisteredClaims{
		Subject:   "soak",
		IssuedAt:  gjwt.NewNumericDate(now),
		ExpiresAt: gjwt.NewNumericDate(now.Add(ttl)),
	}).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return tok
}
