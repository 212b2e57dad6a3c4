// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// weir-loadgen is a tiny, dependency-free HTTP load generator for exercising
// a running weir instance. It reuses HTTP connections (keep-alive) and
// supports concurrency so ad-hoc traffic shaping runs fast without external
// tools.
//
// Modes:
//   - single: send N requests for a single path, hammering one rate-limit key
//   - zipf:   approximate 80/20 skew (hot/cold) across several distinct paths
//     without a PRNG: the hot path gets most of the traffic, by deterministic
//     period rather than chance.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type modeType string

const (
	modeSingle modeType = "single"
	modeZipf   modeType = "zipf"
)

func main() {
	var (
		base       = flag.String("base", "http://127.0.0.1:8080", "Base URL including scheme and host")
		path       = flag.String("path", "/", "Hot path for single mode / zipf mode")
		modeS      = flag.String("mode", string(modeSingle), "Mode: single|zipf")
		coldN      = flag.Int("cold_paths", 50, "Number of distinct cold paths to round-robin in zipf mode")
		n          = flag.Int("n", 5000, "Total requests to send")
		conc       = flag.Int("c", 8, "Number of concurrent workers")
		hotEvery   = flag.Int("hot_every", 5, "Zipf-like skew period (hot_every-1 of this period go to the hot path; minimum 2)")
		timeout    = flag.Duration("timeout", 20*time.Second, "Overall timeout for the run")
		connIdle   = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle    = flag.Int("max_idle", 256, "Max idle connections total")
		maxIdlePer = flag.Int("max_idle_per_host", 256, "Max idle connections per host")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeZipf {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|zipf)\n", *modeS)
		os.Exit(2)
	}
	if *n <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}
	if m == modeZipf {
		if *coldN <= 0 {
			fmt.Fprintln(os.Stderr, "-cold_paths must be > 0 in zipf mode")
			os.Exit(2)
		}
		if *hotEvery < 2 {
			*hotEvery = 2
		}
	}

	baseURL := strings.TrimRight(*base, "/")
	hotPath := *path
	if !strings.HasPrefix(hotPath, "/") {
		hotPath = "/" + hotPath
	}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdlePer,
		IdleConnTimeout:     *connIdle,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	var approved, declined int64

	worker := func(id, count int) {
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			p := hotPath
			if m == modeZipf && ((i+id)%*hotEvery) == 0 {
				idx := (((i + id) / *hotEvery) % *coldN) + 1
				p = fmt.Sprintf("/cold-%d", idx)
			}
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+p, nil)
			resp, err := client.Do(req)
			if err != nil {
				time.Sleep(200 * time.Microsecond)
				continue
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests {
				atomic.AddInt64(&declined, 1)
			} else {
				atomic.AddInt64(&approved, 1)
			}
		}
	}

	per := *n / *conc
	rem := *n - per**conc
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, count int) {
			defer wg.Done()
			worker(id, count)
		}(w, count)
	}
	wg.Wait()

	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*n) / elapsed.Seconds()
	fmt.Printf("weir-loadgen: mode=%s n=%d c=%d go=%d duration=%s throughput=%.0f req/s approved=%d declined=%d\n",
		m, *n, *conc, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond), ops, approved, declined)
}
