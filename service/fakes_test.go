package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/lifecycle"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// In-memory store fakes shared by the service tests.

type fakeContracts struct {
	mu        sync.Mutex
	contracts map[string]*model.Contract
	statusLog []string
}

func newFakeContracts(contracts ...*model.Contract) *fakeContracts {
	f := &fakeContracts{contracts: make(map[string]*model.Contract)}
	for _, c := range contracts {
		f.contracts[c.ID] = c
	}
	return f
}

func (f *fakeContracts) GetByID(ctx context.Context, id string) (*model.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeContracts) UpdateEstado(ctx context.Context, id string, estado lifecycle.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Estado = estado
	return nil
}

func (f *fakeContracts) UpdateValidationStatus(ctx context.Context, id string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.ValidationStatus = &status
	f.statusLog = append(f.statusLog, status)
	return nil
}

func (f *fakeContracts) validationStatus(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok || c.ValidationStatus == nil {
		return ""
	}
	return *c.ValidationStatus
}

func (f *fakeContracts) statuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.statusLog))
	copy(out, f.statusLog)
	return out
}

type fakeExtractions struct {
	mu   sync.Mutex
	rows map[string]*model.ContractExtraction // keyed contractID + "|" + source
}

func newFakeExtractions() *fakeExtractions {
	return &fakeExtractions{rows: make(map[string]*model.ContractExtraction)}
}

func (f *fakeExtractions) Upsert(ctx context.Context, extraction *model.ContractExtraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *extraction
	f.rows[extraction.ContratoID+"|"+extraction.Source] = &copied
	return nil
}

func (f *fakeExtractions) GetByContractAndSource(ctx context.Context, contractID, source string) (*model.ContractExtraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[contractID+"|"+source]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeExtractions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*model.ContractAIJob
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]*model.ContractAIJob)}
}

func (f *fakeJobs) Create(ctx context.Context, job *model.ContractAIJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeJobs) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	job.Status = status
	job.ErrorMsg = errMsg
	return nil
}

func (f *fakeJobs) LatestByContract(ctx context.Context, contractID string) (*model.ContractAIJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.ContractAIJob
	for _, job := range f.jobs {
		if job.ContratoID != contractID {
			continue
		}
		if latest == nil || job.StartedAt.After(latest.StartedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeJobs) status(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return ""
	}
	return job.Status
}

func (f *fakeJobs) setStatus(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		job.Status = status
	}
}

type fakeAudits struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

func newFakeAudits() *fakeAudits {
	return &fakeAudits{}
}

func (f *fakeAudits) Append(ctx context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *entry
	f.entries = append(f.entries, &copied)
	return nil
}

func (f *fakeAudits) byAction(action string) []*model.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AuditLog
	for _, e := range f.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*model.ImpersonationSession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]*model.ImpersonationSession)}
}

func (f *fakeSessions) Create(ctx context.Context, session *model.ImpersonationSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeSessions) GetByID(ctx context.Context, id string) (*model.ImpersonationSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessions) End(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if session.Status == model.ImpersonationStatusActive {
		session.Status = model.ImpersonationStatusEnded
		session.EndedAt = &at
	}
	return nil
}

func (f *fakeSessions) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for _, session := range f.sessions {
		if session.Status == model.ImpersonationStatusActive && session.StartedAt.Before(cutoff) {
			session.Status = model.ImpersonationStatusEnded
			session.EndedAt = &now
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) active() []*model.ImpersonationSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ImpersonationSession
	for _, session := range f.sessions {
		if session.Status == model.ImpersonationStatusActive {
			copied := *session
			out = append(out, &copied)
		}
	}
	return out
}

type fakeAuthority struct {
	admins map[string]bool
	err    error
}

func (f *fakeAuthority) IsPlatformAdmin(ctx context.Context, actorID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.admins[actorID], nil
}

// fakeAgent returns a scripted response or error.
type fakeAgent struct {
	resp  *CCAValidateResponse
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeAgent) ValidateContract(ctx context.Context, req *CCAValidateRequest) (*CCAValidateResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

var errFakeUnavailable = errors.New("agent unavailable")
