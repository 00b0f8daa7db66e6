package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/lifecycle"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

type EventStore interface {
	Append(ctx context.Context, event *model.ContractEvent) error
	ListByContract(ctx context.Context, contractID string) ([]model.ContractEvent, error)
}

// EventService appends lifecycle events and applies any state transition
// they force.
type EventService struct {
	contracts ContractStore
	events    EventStore
}

func NewEventService(contracts ContractStore, events EventStore) *EventService {
	return &EventService{contracts: contracts, events: events}
}

// RecordEvent appends an immutable lifecycle event. If the event type forces
// a state change, the contract state is updated as a second write, but only
// when the transition table allows it: an event whose forced target is
// unreachable from the current state is rejected before anything is written.
// An omitted eventDate defaults to today; dates carry no time of day.
func (s *EventService) RecordEvent(ctx context.Context, contractID string, eventType lifecycle.EventType, description string, eventDate *time.Time, createdBy string) (*model.ContractEvent, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}

	if !lifecycle.KnownEventType(eventType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEventType, eventType)
	}
	if !lifecycle.EventPermitted(contract.Estado, eventType) {
		return nil, fmt.Errorf("%w: %s in state %s", ErrEventNotPermitted, eventType, contract.Estado)
	}

	forced, hasForced := lifecycle.ForcedStateFor(eventType)
	// A forced target equal to the current state (renewal on an already
	// active contract) needs no transition and bypasses the guard.
	applyTransition := hasForced && forced != contract.Estado
	if applyTransition && !lifecycle.CanTransition(contract.Estado, forced) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, contract.Estado, forced)
	}

	date := time.Now()
	if eventDate != nil {
		date = *eventDate
	}
	date = truncateToDate(date)

	event := &model.ContractEvent{
		ID:          uuid.New().String(),
		ContratoID:  contractID,
		EventType:   eventType,
		Description: description,
		EventDate:   date,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
	if err := s.events.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	if applyTransition {
		if err := s.contracts.UpdateEstado(ctx, contractID, forced); err != nil {
			// The event is already durable; the caller learns the
			// transition write failed and may retry it.
			return event, fmt.Errorf("event recorded but state update failed: %w", err)
		}
		slog.Info("contract state changed",
			"contract_id", contractID,
			"from", contract.Estado,
			"to", forced,
			"event_type", eventType,
		)
	}

	return event, nil
}

// ListEvents returns the contract's event history, newest first.
func (s *EventService) ListEvents(ctx context.Context, contractID string) ([]model.ContractEvent, error) {
	if _, err := s.contracts.GetByID(ctx, contractID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return s.events.ListByContract(ctx, contractID)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
