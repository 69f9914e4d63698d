// Package observe lets users watch application objects and be notified
// when a named signal fires for them.
package observe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
	"notice-dispatch/internal/usecase/notify"
)

// ErrObservationNotFound is returned by StopObserving when nothing matches.
var ErrObservationNotFound = fmt.Errorf("observation: %w", entity.ErrNotFound)

// Observable is an application object that can be watched.
type Observable interface {
	ContentType() string
	ObjectID() int64
}

// Ref is a plain Observable, for callers that only hold identifiers.
type Ref struct {
	Type string
	ID   int64
}

func (r Ref) ContentType() string { return r.Type }
func (r Ref) ObjectID() int64     { return r.ID }

// Sender is the part of *notify.Dispatcher this package uses.
type Sender interface {
	Send(ctx context.Context, recipients notify.Recipients, label string, extra map[string]any, opts ...notify.Option) (bool, error)
}

// Service manages observations.
type Service struct {
	Observations repository.ObservationRepository
	Types        repository.NoticeTypeRepository
	Users        repository.UserRepository
	Sender       Sender
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func signalOrDefault(signal string) string {
	if signal == "" {
		return entity.DefaultSignal
	}
	return signal
}

// Observe registers observer's interest in obj for signal and returns the
// record. Observing twice returns the existing record unchanged.
func (s *Service) Observe(ctx context.Context, obj Observable, observer *entity.User, label, messageTemplate, signal string) (*entity.Observation, error) {
	signal = signalOrDefault(signal)

	nt, err := s.Types.GetByLabel(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("get notice type: %w", err)
	}
	if nt == nil {
		return nil, &notify.NotFoundError{Label: label}
	}

	existing, err := s.Observations.Find(ctx, obj.ContentType(), obj.ObjectID(), observer.ID, signal)
	if err != nil {
		return nil, fmt.Errorf("find observation: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	o := &entity.Observation{
		ContentType:     obj.ContentType(),
		ObjectID:        obj.ObjectID(),
		NoticeTypeID:    nt.ID,
		ObserverID:      observer.ID,
		SignalName:      signal,
		MessageTemplate: messageTemplate,
		Added:           s.now(),
	}
	if err := s.Observations.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create observation: %w", err)
	}
	return o, nil
}

// StopObserving removes the matching observation.
func (s *Service) StopObserving(ctx context.Context, obj Observable, observer *entity.User, signal string) error {
	o, err := s.Observations.Find(ctx, obj.ContentType(), obj.ObjectID(), observer.ID, signalOrDefault(signal))
	if err != nil {
		return fmt.Errorf("find observation: %w", err)
	}
	if o == nil {
		return ErrObservationNotFound
	}
	if err := s.Observations.Delete(ctx, o.ID); err != nil {
		return fmt.Errorf("delete observation: %w", err)
	}
	return nil
}

// IsObserving reports whether observer watches obj for signal.
func (s *Service) IsObserving(ctx context.Context, obj Observable, observer *entity.User, signal string) (bool, error) {
	o, err := s.Observations.Find(ctx, obj.ContentType(), obj.ObjectID(), observer.ID, signalOrDefault(signal))
	if err != nil {
		return false, fmt.Errorf("find observation: %w", err)
	}
	return o != nil, nil
}

// SendObservationNotices sends one notice per watcher of obj for signal.
// Each call carries the watcher's stored message template and a reference
// to obj in its extra context. It returns how many watchers were sent to.
func (s *Service) SendObservationNotices(ctx context.Context, obj Observable, signal string, extra map[string]any, opts ...notify.Option) (int, error) {
	observations, err := s.Observations.ListFor(ctx, obj.ContentType(), obj.ObjectID(), signalOrDefault(signal))
	if err != nil {
		return 0, fmt.Errorf("list observations: %w", err)
	}

	sent := 0
	for _, o := range observations {
		observer, err := s.Users.Get(ctx, o.ObserverID)
		if err != nil {
			return sent, fmt.Errorf("load observer %d: %w", o.ObserverID, err)
		}
		if observer == nil {
			slog.Warn("observer no longer exists", slog.Int64("observation_id", o.ID))
			continue
		}
		nt, err := s.Types.Get(ctx, o.NoticeTypeID)
		if err != nil {
			return sent, fmt.Errorf("get notice type: %w", err)
		}
		if nt == nil {
			slog.Warn("observed notice type no longer exists", slog.Int64("observation_id", o.ID))
			continue
		}

		ctxData := make(map[string]any, len(extra)+2)
		for k, v := range extra {
			ctxData[k] = v
		}
		ctxData["observed"] = map[string]any{
			"content_type": obj.ContentType(),
			"object_id":    obj.ObjectID(),
		}
		ctxData["message"] = o.MessageTemplate

		if _, err := s.Sender.Send(ctx, notify.Users(observer), nt.Label, ctxData, opts...); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
