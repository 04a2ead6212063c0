package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_heatpump/internal/models"
	"controlling_heatpump/internal/repository"
)

var (
	// ErrInvalidTimeRange is returned when From is after To.
	ErrInvalidTimeRange = errors.New("invalid time range: from must not be after to")
	// ErrUnknownEventType is returned for a type filter outside models.EventTypes.
	ErrUnknownEventType = errors.New("unknown event type")
)

// EventLogService reads the heatpump's event history.
type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

// List returns events matching f, oldest first.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.HeatpumpEvent, error) {
	q, err := f.normalize()
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, q.From, q.To, q.Type)
}

// normalize moves both bounds to UTC and canonicalizes the type.
func (f LogFilter) normalize() (LogFilter, error) {
	q := LogFilter{From: inUTC(f.From), To: inUTC(f.To)}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return LogFilter{}, ErrInvalidTimeRange
	}
	if strings.TrimSpace(f.Type) != "" {
		typ, ok := models.ParseEventType(f.Type)
		if !ok {
			return LogFilter{}, fmt.Errorf("%w %q, want one of %s", ErrUnknownEventType, f.Type, strings.Join(models.EventTypes, ", "))
		}
		q.Type = typ
	}
	return q, nil
}

func inUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
