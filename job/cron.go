package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/lifecycle"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/service"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/store"
)

const sweepTimeout = 2 * time.Minute

// Scheduler runs the background sweeps: a nightly pass that expires
// active contracts whose termination date has passed, and a periodic
// cleanup of stale impersonation sessions.
type Scheduler struct {
	cron      *cron.Cron
	contracts *store.ContractRepo
	events    *service.EventService
	manager   *service.ImpersonationManager
}

func NewScheduler(contracts *store.ContractRepo, events *service.EventService, manager *service.ImpersonationManager) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		contracts: contracts,
		events:    events,
		manager:   manager,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 2 * * *", s.expireContracts); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("*/10 * * * *", s.expireImpersonationSessions); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// expireContracts records an expiration event for every active contract
// whose data_termo is in the past. Each contract is handled independently
// so one bad row does not block the rest of the sweep.
func (s *Scheduler) expireContracts() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	now := time.Now().UTC()
	contracts, err := s.contracts.ActivePastTermination(ctx, now)
	if err != nil {
		slog.Error("contract expiration sweep failed", "error", err)
		return
	}
	var expired int
	for _, contract := range contracts {
		_, err := s.events.RecordEvent(ctx, contract.ID,
			lifecycle.EventExpiration,
			"Contrato expirado automaticamente: data de termo ultrapassada",
			&now, "system")
		if err != nil {
			slog.Warn("failed to expire contract",
				"contract_id", contract.ID, "error", err)
			continue
		}
		expired++
	}
	if len(contracts) > 0 {
		slog.Info("contract expiration sweep finished",
			"candidates", len(contracts), "expired", expired)
	}
}

func (s *Scheduler) expireImpersonationSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.manager.ExpireStaleSessions(ctx)
	if err != nil {
		slog.Error("impersonation session sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("expired stale impersonation sessions", "count", n)
	}
}
