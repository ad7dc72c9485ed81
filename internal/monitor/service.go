// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package monitor

import (
	"fmt"
	"net"
	"sync"
	"time"

	"grimm.is/linkmgr/internal/logging"

	probing "github.com/prometheus-community/pro-bing"
)

// Target is one gateway to watch while its device is active.
type Target struct {
	Iface   string
	Gateway net.IP
}

// Result holds the latest reachability result for a target.
type Result struct {
	Iface     string        `json:"iface"`
	Gateway   string        `json:"gateway"`
	IsUp      bool          `json:"is_up"`
	Latency   time.Duration `json:"latency"`
	LastCheck time.Time     `json:"last_check"`
	Error     string        `json:"error,omitempty"`
}

// Service watches gateway reachability for activated devices.  It is
// observability only; it never drives activation state.
type Service struct {
	logger     *logging.Logger
	interval   time.Duration
	targets    map[string]Target // Key: Iface
	targetsMu  sync.Mutex
	results    map[string]*Result // Key: Iface
	resultsMu  sync.RWMutex
	stopCh     chan struct{}
	wg         sync.WaitGroup
	isTestMode bool
}

// NewService creates a connectivity monitor.
func NewService(logger *logging.Logger, interval time.Duration) *Service {
	if logger == nil {
		logger = logging.WithComponent("monitor")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Service{
		logger:   logger,
		interval: interval,
		targets:  make(map[string]Target),
		results:  make(map[string]*Result),
		stopCh:   make(chan struct{}),
	}
}

// Watch adds or replaces a target for an interface.
func (s *Service) Watch(t Target) {
	s.targetsMu.Lock()
	s.targets[t.Iface] = t
	s.targetsMu.Unlock()
	s.logger.Debug("Watching gateway", "iface", t.Iface, "gateway", t.Gateway)
}

// Unwatch removes an interface's target and its last result.
func (s *Service) Unwatch(iface string) {
	s.targetsMu.Lock()
	delete(s.targets, iface)
	s.targetsMu.Unlock()

	s.resultsMu.Lock()
	delete(s.results, iface)
	s.resultsMu.Unlock()
}

// Start begins the monitoring loop.
func (s *Service) Start() {
	s.logger.Info("Starting connectivity monitor", "interval", s.interval)
	s.wg.Add(1)
	go s.loop()
}

// Stop stops the loop.
func (s *Service) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Connectivity monitor stopped")
}

// GetResults returns the latest results.
func (s *Service) GetResults() []Result {
	s.resultsMu.RLock()
	defer s.resultsMu.RUnlock()

	results := make([]Result, 0, len(s.results))
	for _, res := range s.results {
		results = append(results, *res)
	}
	return results
}

// SetTestMode enables test mode (single sweep and exit).
func (s *Service) SetTestMode(enabled bool) {
	s.isTestMode = enabled
}

func (s *Service) loop() {
	defer s.wg.Done()

	s.sweep()
	if s.isTestMode {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Service) sweep() {
	s.targetsMu.Lock()
	targets := make([]Target, 0, len(s.targets))
	for _, t := range s.targets {
		targets = append(targets, t)
	}
	s.targetsMu.Unlock()

	for _, t := range targets {
		s.check(t)
	}
}

func (s *Service) check(t Target) {
	latency, err := checkPing(t.Gateway.String())

	s.resultsMu.Lock()
	prev := s.results[t.Iface]
	res := &Result{
		Iface:     t.Iface,
		Gateway:   t.Gateway.String(),
		IsUp:      err == nil,
		Latency:   latency,
		LastCheck: time.Now(),
	}
	if err != nil {
		res.Error = err.Error()
	}
	s.results[t.Iface] = res
	s.resultsMu.Unlock()

	if err != nil && (prev == nil || prev.IsUp) {
		s.logger.Warn("Gateway unreachable", "iface", t.Iface, "gateway", t.Gateway, "error", err)
	} else if err == nil && prev != nil && !prev.IsUp {
		s.logger.Info("Gateway reachable again", "iface", t.Iface, "gateway", t.Gateway)
	}
}

var CheckPingFunc = func(ip string) (time.Duration, error) {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		return 0, fmt.Errorf("failed to create pinger: %w", err)
	}

	pinger.Count = 1
	pinger.Timeout = 1 * time.Second
	pinger.SetPrivileged(false)

	err = pinger.Run()
	if err != nil {
		return 0, err
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("packet loss")
	}
	return stats.AvgRtt, nil
}

func checkPing(ip string) (time.Duration, error) {
	return CheckPingFunc(ip)
}
