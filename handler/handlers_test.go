package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/lifecycle"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser injects the claims the auth middleware would set.
func asUser(userID, orgID string, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("username", userID)
		c.Set("organization_id", orgID)
		c.Set("platform_admin", admin)
		c.Next()
	}
}

// In-memory fakes backing the handler tests.

type memContracts struct {
	mu        sync.Mutex
	contracts map[string]*model.Contract
}

func newMemContracts(contracts ...*model.Contract) *memContracts {
	m := &memContracts{contracts: make(map[string]*model.Contract)}
	for _, c := range contracts {
		m.contracts[c.ID] = c
	}
	return m
}

func (m *memContracts) Create(ctx context.Context, contract *model.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *contract
	m.contracts[contract.ID] = &copied
	return nil
}

func (m *memContracts) GetByID(ctx context.Context, id string) (*model.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *memContracts) ListByOrganization(ctx context.Context, orgID string) ([]model.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Contract
	for _, c := range m.contracts {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memContracts) SetDocumentObject(ctx context.Context, id string, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.DocumentObject = objectName
	return nil
}

func (m *memContracts) UpdateEstado(ctx context.Context, id string, estado lifecycle.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Estado = estado
	return nil
}

func (m *memContracts) UpdateValidationStatus(ctx context.Context, id string, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.ValidationStatus = &status
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	events []model.ContractEvent
}

func (m *memEvents) Append(ctx context.Context, event *model.ContractEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *memEvents) ListByContract(ctx context.Context, contractID string) ([]model.ContractEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ContractEvent
	for _, e := range m.events {
		if e.ContratoID == contractID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.After(out[j].EventDate) })
	return out, nil
}

type memExtractions struct {
	mu   sync.Mutex
	rows map[string]*model.ContractExtraction
}

func newMemExtractions() *memExtractions {
	return &memExtractions{rows: make(map[string]*model.ContractExtraction)}
}

func (m *memExtractions) Upsert(ctx context.Context, extraction *model.ContractExtraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *extraction
	m.rows[extraction.ContratoID+"|"+extraction.Source] = &copied
	return nil
}

func (m *memExtractions) GetByContractAndSource(ctx context.Context, contractID, source string) (*model.ContractExtraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[contractID+"|"+source]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*model.ContractAIJob
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*model.ContractAIJob)}
}

func (m *memJobs) Create(ctx context.Context, job *model.ContractAIJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobs) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	job.Status = status
	job.ErrorMsg = errMsg
	return nil
}

func (m *memJobs) LatestByContract(ctx context.Context, contractID string) (*model.ContractAIJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.ContractAIJob
	for _, job := range m.jobs {
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

type memAudits struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

func (m *memAudits) Append(ctx context.Context, entry *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	m.entries = append(m.entries, &copied)
	return nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*model.ImpersonationSession
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]*model.ImpersonationSession)}
}

func (m *memSessions) Create(ctx context.Context, session *model.ImpersonationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *memSessions) GetByID(ctx context.Context, id string) (*model.ImpersonationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *memSessions) End(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if session.Status == model.ImpersonationStatusActive {
		session.Status = model.ImpersonationStatusEnded
		session.EndedAt = &at
	}
	return nil
}

func (m *memSessions) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for _, session := range m.sessions {
		if session.Status == model.ImpersonationStatusActive && session.StartedAt.Before(cutoff) {
			session.Status = model.ImpersonationStatusEnded
			session.EndedAt = &now
			n++
		}
	}
	return n, nil
}

type memAuthority struct {
	admins map[string]bool
}

func (a *memAuthority) IsPlatformAdmin(ctx context.Context, actorID string) (bool, error) {
	return a.admins[actorID], nil
}

func newTestManager(admins ...string) *service.ImpersonationManager {
	adminSet := make(map[string]bool)
	for _, id := range admins {
		adminSet[id] = true
	}
	return service.NewImpersonationManager(
		newMemSessions(),
		service.NewMemoryKVStore(),
		service.NewMemoryTenantCache(),
		&memAuthority{admins: adminSet},
		5,
		8*time.Hour,
	)
}
