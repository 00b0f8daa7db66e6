package service

import "errors"

// Sentinel errors surfaced to handlers. Handlers map these onto HTTP
// responses; nothing below the handler layer inspects HTTP status codes.
var (
	ErrContractNotFound  = errors.New("contract not found")
	ErrInvalidEventType  = errors.New("unknown lifecycle event type")
	ErrEventNotPermitted = errors.New("event type not permitted in current state")
	ErrInvalidTransition = errors.New("forced state transition not allowed from current state")
	ErrReasonTooShort    = errors.New("impersonation reason too short")
	ErrNotPlatformAdmin  = errors.New("platform admin privilege required")
	ErrQueueFull         = errors.New("validation queue full")
)
