//go:build linux

// Package rapl is a concrete, optional power.Sampler implementation that
// reads Intel RAPL energy counters from sysfs. It is an external
// collaborator per spec.md §1 ("optional platform-specific power
// samplers"): the benchmark core never imports this package directly, only
// the power.Sampler interface it satisfies.
//
// Grounded on the teacher's pkg/system/proc readers (bufio.Scanner over a
// hand-opened /proc file, e.g. ReadSystemCPU), applied here to
// /sys/class/powercap/intel-rapl:*/energy_uj instead.
package rapl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jaml/xmembench/internal/power"
	"github.com/jaml/xmembench/pkg/system/util"
)

// ErrNoDomains indicates no intel-rapl powercap domains were found.
var ErrNoDomains = errors.New("rapl: no intel-rapl powercap domains found")

// Sampler periodically polls every discovered RAPL domain's cumulative
// energy counter and derives instantaneous watts between polls.
type Sampler struct {
	domains  []string
	interval time.Duration

	mu       sync.Mutex
	stopCh   chan struct{}
	done     chan struct{}
	samples  []power.Sample
	prevUJ   map[string]uint64
	prevAt   time.Time
	smooth   *util.EMA
}

// New discovers available RAPL domains under /sys/class/powercap and
// returns a Sampler polling every interval.
func New(interval time.Duration) (*Sampler, error) {
	domains, err := filepath.Glob("/sys/class/powercap/intel-rapl:*/energy_uj")
	if err != nil {
		return nil, fmt.Errorf("rapl: glob powercap: %w", err)
	}
	if len(domains) == 0 {
		return nil, ErrNoDomains
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Sampler{domains: domains, interval: interval, prevUJ: map[string]uint64{}, smooth: util.NewEMA(0.5)}, nil
}

// Start begins polling on a background goroutine.
func (s *Sampler) Start() error {
	s.mu.Lock()
	s.samples = nil
	s.prevAt = time.Now()
	s.smooth = util.NewEMA(0.5)
	for _, d := range s.domains {
		if uj, err := readEnergyUJ(d); err == nil {
			s.prevUJ[d] = uj
		}
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop()
	return nil
}

// Stop halts polling and waits for the background goroutine to exit.
func (s *Sampler) Stop() error {
	s.mu.Lock()
	stopCh := s.stopCh
	done := s.done
	s.mu.Unlock()
	if stopCh == nil {
		return nil
	}
	close(stopCh)
	<-done
	return nil
}

// Samples returns every (timestamp, watts) observation collected since the
// last Start.
func (s *Sampler) Samples() []power.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]power.Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

func (s *Sampler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.poll(now)
		}
	}
}

func (s *Sampler) poll(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var totalWatts float64
	dt := now.Sub(s.prevAt).Seconds()
	if dt <= 0 {
		return
	}
	for _, d := range s.domains {
		uj, err := readEnergyUJ(d)
		if err != nil {
			continue
		}
		prev, ok := s.prevUJ[d]
		if ok {
			joules := float64(util.DeltaU64(uj, prev)) / 1e6
			totalWatts += util.SafeDiv(joules, dt)
		}
		s.prevUJ[d] = uj
	}
	s.prevAt = now
	s.samples = append(s.samples, power.Sample{At: now, Watts: s.smooth.Next(totalWatts)})
}

func readEnergyUJ(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
}

var _ power.Sampler = (*Sampler)(nil)
