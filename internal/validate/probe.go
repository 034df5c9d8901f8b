package validate

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultProbeTimeout bounds one reachability probe.
	DefaultProbeTimeout = 5 * time.Second
	// DefaultMaxRedirects is the per-probe redirect budget.
	DefaultMaxRedirects = 10
	// DefaultProbeWorkers bounds concurrent probes.
	DefaultProbeWorkers = 8
)

// ProbeConfig tunes reachability probing of external references.
type ProbeConfig struct {
	// Timeout bounds each probe; zero means DefaultProbeTimeout.
	Timeout time.Duration `json:"timeout,omitempty"`
	// MaxRedirects bounds redirect following; zero means DefaultMaxRedirects.
	MaxRedirects int `json:"max_redirects,omitempty"`
	// Method is the HTTP method; empty means HEAD.
	Method string `json:"method,omitempty"`
	// Workers bounds the probe pool; zero means DefaultProbeWorkers.
	Workers int `json:"workers,omitempty"`
}

func (p ProbeConfig) withDefaults() ProbeConfig {
	if p.Timeout <= 0 {
		p.Timeout = DefaultProbeTimeout
	}
	if p.MaxRedirects <= 0 {
		p.MaxRedirects = DefaultMaxRedirects
	}
	if p.Method == "" {
		p.Method = http.MethodHead
	}
	if p.Workers <= 0 {
		p.Workers = DefaultProbeWorkers
	}
	return p
}

// probeAll checks each distinct external URL on a bounded worker pool.
// Every failure is a warning finding scoped to that one reference; a
// stuck probe is bounded by its own timeout and cannot delay the others
// beyond that bound. Findings come back sorted by URL so concurrent
// completion order never shows in the report.
func probeAll(externals map[string][]string, cfg ProbeConfig) []Finding {
	cfg = cfg.withDefaults()
	urls := make([]string, 0, len(externals))
	for u := range externals {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	var (
		mu       sync.Mutex
		findings []Finding
		wg       sync.WaitGroup
		sem      = make(chan struct{}, cfg.Workers)
	)
	for _, u := range urls {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := probeOne(target, cfg); err != nil {
				mu.Lock()
				findings = append(findings, Finding{
					Category: CategoryReferences, Severity: SeverityWarning,
					Message:     fmt.Sprintf("external reference unreachable: %v", err),
					Identifiers: append([]string{target}, externals[target]...),
				})
				mu.Unlock()
			}
		}(u)
	}
	wg.Wait()

	sort.Slice(findings, func(i, j int) bool {
		return findings[i].Identifiers[0] < findings[j].Identifiers[0]
	})
	return findings
}

// probeOne issues one bounded request. Any 2xx/3xx terminal response
// counts as reachable; timeouts, connection failures, an exhausted
// redirect budget, and 4xx/5xx responses do not.
func probeOne(target string, cfg ProbeConfig) error {
	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		},
	}
	req, err := http.NewRequest(cfg.Method, target, nil)
	if err != nil {
		return fmt.Errorf("building probe request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned %s", cfg.Method, resp.Status)
	}
	return nil
}
