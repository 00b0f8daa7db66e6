package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/config"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// SessionStore is the server-side truth for impersonation sessions.
type SessionStore interface {
	Create(ctx context.Context, session *model.ImpersonationSession) error
	GetByID(ctx context.Context, id string) (*model.ImpersonationSession, error)
	End(ctx context.Context, id string, at time.Time) error
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// AdminAuthority verifies platform-admin privilege server-side. Token claims
// are never trusted for impersonation: the check runs against server truth
// on every start.
type AdminAuthority interface {
	IsPlatformAdmin(ctx context.Context, actorID string) (bool, error)
}

// Actor identifies the real admin performing impersonation.
type Actor struct {
	ID        string
	UserAgent string
}

// ImpersonationState is the in-memory overlay for one actor. At most one of
// OrgID and UserID is non-empty; Type disambiguates.
type ImpersonationState struct {
	SessionID  string `json:"session_id"`
	Type       string `json:"type"`
	OrgID      string `json:"org_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	TargetName string `json:"target_name"`
}

// ImpersonationManager issues, verifies and terminates admin impersonation
// sessions. State is keyed by the real actor id; the KV store mirrors the
// browser session-storage role so a restored page load can re-verify.
type ImpersonationManager struct {
	sessions  SessionStore
	kv        KVStore
	cache     TenantCache
	authority AdminAuthority

	minReasonLen int
	staleAfter   time.Duration

	mu     sync.Mutex
	active map[string]*ImpersonationState
}

func NewImpersonationManager(sessions SessionStore, kv KVStore, cache TenantCache, authority AdminAuthority, minReasonLen int, staleAfter time.Duration) *ImpersonationManager {
	if minReasonLen <= 0 {
		minReasonLen = 5
	}
	if staleAfter <= 0 {
		staleAfter = 8 * time.Hour
	}
	return &ImpersonationManager{
		sessions:     sessions,
		kv:           kv,
		cache:        cache,
		authority:    authority,
		minReasonLen: minReasonLen,
		staleAfter:   staleAfter,
		active:       make(map[string]*ImpersonationState),
	}
}

// StartOrgImpersonation begins impersonating an organization. A session
// already active for the actor is fully replaced, so the org/user targets
// can never both be set.
func (m *ImpersonationManager) StartOrgImpersonation(ctx context.Context, actor Actor, orgID, orgName, reason string) error {
	return m.start(ctx, actor, model.ImpersonationTypeOrg, orgID, orgName, reason)
}

// StartUserImpersonation begins impersonating a user.
func (m *ImpersonationManager) StartUserImpersonation(ctx context.Context, actor Actor, userID, userName, reason string) error {
	return m.start(ctx, actor, model.ImpersonationTypeUser, userID, userName, reason)
}

func (m *ImpersonationManager) start(ctx context.Context, actor Actor, targetType, targetID, targetName, reason string) error {
	// Preconditions run before any side effect.
	if utf8.RuneCountInString(reason) < m.minReasonLen {
		return fmt.Errorf("%w: need at least %d characters", ErrReasonTooShort, m.minReasonLen)
	}

	isAdmin, err := m.authority.IsPlatformAdmin(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("admin verification failed: %w", err)
	}
	if !isAdmin {
		return ErrNotPlatformAdmin
	}

	// Replace any active session; the previous identity is fully cleared
	// before the new one is set.
	if err := m.StopImpersonation(ctx, actor.ID); err != nil {
		slog.Warn("failed to end previous impersonation session", "actor_id", actor.ID, "error", err)
	}

	session := &model.ImpersonationSession{
		ID:         uuid.New().String(),
		ActorID:    actor.ID,
		TargetName: targetName,
		Reason:     reason,
		Status:     model.ImpersonationStatusActive,
		UserAgent:  actor.UserAgent,
		StartedAt:  time.Now(),
	}
	state := &ImpersonationState{
		SessionID:  session.ID,
		Type:       targetType,
		TargetName: targetName,
	}
	if targetType == model.ImpersonationTypeOrg {
		session.TargetOrgID = &targetID
		state.OrgID = targetID
	} else {
		session.TargetUserID = &targetID
		state.UserID = targetID
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return fmt.Errorf("failed to create impersonation session: %w", err)
	}

	if err := m.kv.Set(ctx, sessionKey(actor.ID), session.ID); err != nil {
		slog.Warn("failed to mirror impersonation session", "actor_id", actor.ID, "error", err)
	}

	m.mu.Lock()
	m.active[actor.ID] = state
	m.mu.Unlock()

	m.invalidateCaches(ctx, state)

	slog.Info("impersonation started",
		"actor_id", actor.ID,
		"type", targetType,
		"target", targetID,
		"session_id", session.ID,
	)
	return nil
}

// StopImpersonation ends the actor's session: server row marked ended, KV
// mirror cleared, in-memory state reset, tenant caches invalidated. A stop
// with no active session is a no-op.
func (m *ImpersonationManager) StopImpersonation(ctx context.Context, actorID string) error {
	m.mu.Lock()
	state := m.active[actorID]
	delete(m.active, actorID)
	m.mu.Unlock()

	sessionID := ""
	if state != nil {
		sessionID = state.SessionID
	} else if stored, ok, err := m.kv.Get(ctx, sessionKey(actorID)); err == nil && ok {
		sessionID = stored
		// The overlay is gone (process restart); recover the target from
		// the server row so the stop still invalidates its tenant caches.
		session, err := m.sessions.GetByID(ctx, stored)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("failed to load session for stop", "actor_id", actorID, "session_id", stored, "error", err)
		} else if session != nil {
			state = stateFromSession(session)
		}
	}

	if sessionID == "" {
		return nil
	}

	if err := m.sessions.End(ctx, sessionID, time.Now()); err != nil {
		return fmt.Errorf("failed to end impersonation session: %w", err)
	}
	if err := m.kv.Delete(ctx, sessionKey(actorID)); err != nil {
		slog.Warn("failed to clear impersonation mirror", "actor_id", actorID, "error", err)
	}

	m.invalidateCaches(ctx, state)

	slog.Info("impersonation stopped", "actor_id", actorID, "session_id", sessionID)
	return nil
}

// Restore re-verifies a mirrored session against server truth. Stale
// sessions are expired first; a session that fails verification is
// discarded silently and the actor resumes in their own context.
func (m *ImpersonationManager) Restore(ctx context.Context, actorID string) (*ImpersonationState, error) {
	sessionID, ok, err := m.kv.Get(ctx, sessionKey(actorID))
	if err != nil {
		return nil, fmt.Errorf("failed to read impersonation mirror: %w", err)
	}
	if !ok {
		return nil, nil
	}

	if _, err := m.sessions.ExpireStale(ctx, time.Now().Add(-m.staleAfter)); err != nil {
		slog.Warn("stale session sweep failed", "error", err)
	}

	session, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify impersonation session: %w", err)
	}
	if session == nil || session.Status != model.ImpersonationStatusActive {
		m.discard(ctx, actorID)
		return nil, nil
	}

	state := stateFromSession(session)

	m.mu.Lock()
	m.active[actorID] = state
	m.mu.Unlock()

	return state, nil
}

// Current returns the actor's in-memory state, if any.
func (m *ImpersonationManager) Current(actorID string) *ImpersonationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[actorID]
}

// EffectiveOrganizationID is the sole read surface other components use to
// learn whose data they are looking at. It returns the impersonated org id
// only for an active org-type session.
func (m *ImpersonationManager) EffectiveOrganizationID(actorID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.active[actorID]
	if state == nil || state.Type != model.ImpersonationTypeOrg {
		return "", false
	}
	return state.OrgID, true
}

// ExpireStaleSessions ends every server-side session older than the
// staleness threshold. Run periodically.
func (m *ImpersonationManager) ExpireStaleSessions(ctx context.Context) (int64, error) {
	return m.sessions.ExpireStale(ctx, time.Now().Add(-m.staleAfter))
}

func (m *ImpersonationManager) discard(ctx context.Context, actorID string) {
	if err := m.kv.Delete(ctx, sessionKey(actorID)); err != nil {
		slog.Warn("failed to discard impersonation mirror", "actor_id", actorID, "error", err)
	}
	m.mu.Lock()
	delete(m.active, actorID)
	m.mu.Unlock()
}

// invalidateCaches drops tenant-scoped caches for the impersonated org.
// Stale tenant reads after a context switch are a correctness bug, so this
// runs on both start and stop.
func (m *ImpersonationManager) invalidateCaches(ctx context.Context, state *ImpersonationState) {
	if state == nil || state.OrgID == "" {
		return
	}
	if err := m.cache.Invalidate(ctx, state.OrgID); err != nil {
		slog.Warn("tenant cache invalidation failed", "org_id", state.OrgID, "error", err)
	}
}

func stateFromSession(session *model.ImpersonationSession) *ImpersonationState {
	state := &ImpersonationState{
		SessionID:  session.ID,
		Type:       session.Type(),
		TargetName: session.TargetName,
	}
	if session.TargetOrgID != nil {
		state.OrgID = *session.TargetOrgID
	}
	if session.TargetUserID != nil {
		state.UserID = *session.TargetUserID
	}
	return state
}

func sessionKey(actorID string) string {
	return "impersonation:" + actorID
}

// ConfigAdminAuthority verifies platform-admin privilege against the
// configured user list.
type ConfigAdminAuthority struct {
	cfg *config.Config
}

func NewConfigAdminAuthority(cfg *config.Config) *ConfigAdminAuthority {
	return &ConfigAdminAuthority{cfg: cfg}
}

func (a *ConfigAdminAuthority) IsPlatformAdmin(ctx context.Context, actorID string) (bool, error) {
	user := a.cfg.FindUserByID(actorID)
	if user == nil {
		return false, nil
	}
	return user.PlatformAdmin, nil
}
