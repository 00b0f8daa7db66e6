package model

import "time"

// Impersonation session status and target types.
const (
	ImpersonationStatusActive = "active"
	ImpersonationStatusEnded  = "ended"

	ImpersonationTypeOrg  = "org"
	ImpersonationTypeUser = "user"
)

// ImpersonationSession records a platform admin temporarily assuming another
// organization's or user's context. Exactly one of TargetOrgID and
// TargetUserID is set, never both, never neither.
type ImpersonationSession struct {
	ID           string     `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	ActorID      string     `gorm:"column:actor_id;type:varchar(100);not null;index" json:"actor_id"`
	TargetOrgID  *string    `gorm:"column:target_org_id;type:uuid" json:"target_org_id,omitempty"`
	TargetUserID *string    `gorm:"column:target_user_id;type:uuid" json:"target_user_id,omitempty"`
	TargetName   string     `gorm:"column:target_name;type:varchar(255)" json:"target_name"`
	Reason       string     `gorm:"column:reason;type:text;not null" json:"reason"`
	Status       string     `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	UserAgent    string     `gorm:"column:user_agent;type:varchar(512)" json:"user_agent,omitempty"`
	StartedAt    time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	EndedAt      *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`
}

func (ImpersonationSession) TableName() string {
	return "impersonation_sessions"
}

// Type returns which kind of target the session overlays.
func (s *ImpersonationSession) Type() string {
	if s.TargetOrgID != nil {
		return ImpersonationTypeOrg
	}
	return ImpersonationTypeUser
}
