// trace-loadgen is a tiny, dependency-free HTTP load generator tailored
// for the trace store demo. It reuses HTTP connections (keep-alive) and
// supports concurrency so demo scripts run fast without relying on
// external tools.
//
// Modes:
//   - install: repeatedly POST /install with a synthetic batch of
//     envelopes for a handful of keys at increasing logical times
//   - query: repeatedly GET /collection for a fixed (operator, key, time)
//
// Usage examples:
//
//	trace-loadgen -base=http://127.0.0.1:8080 -mode=install -operator=demo -keys=50 -n=5000 -c=16
//	trace-loadgen -base=http://127.0.0.1:8080 -mode=query -operator=demo -key=key-1 -n=5000 -c=8
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tracestore/internal/tracestore/ingest"
)

type modeType string

const (
	modeInstall modeType = "install"
	modeQuery   modeType = "query"
)

func main() {
	var (
		base     = flag.String("base", "http://127.0.0.1:8080", "Base URL including scheme and host")
		modeS    = flag.String("mode", string(modeInstall), "Mode: install|query")
		operator = flag.String("operator", "demo", "Operator name to target")
		key      = flag.String("key", "key-1", "Key for query mode")
		keys     = flag.Int("keys", 50, "Number of distinct keys to round-robin in install mode")
		N        = flag.Int("n", 5000, "Total requests to send")
		conc     = flag.Int("c", 8, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", 20*time.Second, "Overall timeout for the loadgen run")
		connIdle = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle  = flag.Int("max_idle", 256, "Max idle connections total")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeInstall && m != modeQuery {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want install|query)\n", *modeS)
		os.Exit(2)
	}
	if *N <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}

	baseURL := strings.TrimRight(*base, "/")

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdle,
		IdleConnTimeout:     *connIdle,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var logicalTime int64
	start := time.Now()
	var done int64

	worker := func(id, count int) {
		defer atomic.AddInt64(&done, int64(count))
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			switch m {
			case modeInstall:
				t := atomic.AddInt64(&logicalTime, 1)
				envs := []ingest.Envelope{{
					Operator: *operator,
					Key:      fmt.Sprintf("key-%d", (i+id)%*keys),
					Time:     t,
					Value:    "v",
					Weight:   1,
				}}
				body, _ := json.Marshal(struct {
					Envelopes []ingest.Envelope `json:"envelopes"`
				}{Envelopes: envs})
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/install", bytes.NewReader(body))
				req.Header.Set("Content-Type", "application/json")
				doRequest(client, req)
			case modeQuery:
				u := baseURL + "/collection?" + url.Values{
					"operator": {*operator},
					"key":      {*key},
					"time":     {strconv.FormatInt(atomic.LoadInt64(&logicalTime), 10)},
				}.Encode()
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
				doRequest(client, req)
			}
		}
	}

	per := *N / *conc
	rem := *N - per*(*conc)
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, n int) {
			defer wg.Done()
			worker(id, n)
		}(w, count)
	}
	wg.Wait()
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*N) / elapsed.Seconds()
	fmt.Printf("LoadGen: mode=%s N=%d c=%d go=%d Duration=%s Throughput=%.0f req/s\n", m, *N, *conc, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond), ops)
}

func doRequest(client *http.Client, req *http.Request) {
	resp, err := client.Do(req)
	if err == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	} else {
		time.Sleep(200 * time.Microsecond)
	}
}
