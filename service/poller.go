package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

const defaultPollInterval = 10 * time.Second

// Poller mirrors asynchronous job status onto contract rows. At most one
// watcher runs per contract: Watch on an already watched contract is a
// no-op. Each check writes the mapped status unconditionally; writes are
// idempotent "set to known value" operations, so concurrent watchers from
// other processes are harmless (last writer wins, all derive from the same
// job row).
type Poller struct {
	contracts ContractStore
	jobs      JobStore
	interval  time.Duration

	mu       sync.Mutex
	watchers map[string]chan struct{}
	wg       sync.WaitGroup
}

func NewPoller(contracts ContractStore, jobs JobStore, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		contracts: contracts,
		jobs:      jobs,
		interval:  interval,
		watchers:  make(map[string]chan struct{}),
	}
}

// Watch starts polling the latest job for a contract until a terminal status
// is observed. An immediate check runs before the first interval tick.
func (p *Poller) Watch(contractID string) {
	p.mu.Lock()
	if _, active := p.watchers[contractID]; active {
		p.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	p.watchers[contractID] = stop
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(contractID, stop)
}

// Stop cancels the watcher for a contract, if any.
func (p *Poller) Stop(contractID string) {
	p.mu.Lock()
	if stop, active := p.watchers[contractID]; active {
		close(stop)
		delete(p.watchers, contractID)
	}
	p.mu.Unlock()
}

// StopAll cancels every watcher and waits for them to exit.
func (p *Poller) StopAll() {
	p.mu.Lock()
	for id, stop := range p.watchers {
		close(stop)
		delete(p.watchers, id)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Watching reports whether a watcher is active for the contract.
func (p *Poller) Watching(contractID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, active := p.watchers[contractID]
	return active
}

func (p *Poller) run(contractID string, stop chan struct{}) {
	defer func() {
		p.mu.Lock()
		if current, active := p.watchers[contractID]; active && current == stop {
			delete(p.watchers, contractID)
		}
		p.mu.Unlock()
		p.wg.Done()
	}()

	if p.check(contractID) {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if p.check(contractID) {
				return
			}
		}
	}
}

// check reads the latest job and writes its mapped status onto the contract.
// Returns true when polling should stop. A transient read failure is logged
// and skipped; the next tick retries.
func (p *Poller) check(contractID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	job, err := p.jobs.LatestByContract(ctx, contractID)
	if err != nil {
		slog.Warn("poll check failed, will retry",
			"contract_id", contractID,
			"error", err,
		)
		return false
	}
	if job == nil {
		slog.Warn("no validation job to watch", "contract_id", contractID)
		return true
	}

	status := model.ContractStatusForJob(job.Status)
	if err := p.contracts.UpdateValidationStatus(ctx, contractID, status); err != nil {
		slog.Warn("failed to mirror job status onto contract",
			"contract_id", contractID,
			"status", status,
			"error", err,
		)
		return false
	}

	return model.JobTerminal(job.Status)
}
