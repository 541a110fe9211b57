// Package service implements the server-side operations behind the HTTP
// API: validation, storage mutation, and change publication.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/storage"
)

// Publisher delivers change notifications to subscribed clients, in the
// order the server committed them. The SSE hub implements it.
type Publisher interface {
	Publish(ch models.Change)
}

// createRetries bounds invite-code regeneration on collision. With 32^6
// possible codes, more than a couple of collisions means something else
// is wrong.
const createRetries = 5

// EventService implements event-level operations.
type EventService struct {
	store storage.Store
	pub   Publisher
}

// NewEventService creates an EventService with the given storage backend
// and change publisher.
func NewEventService(store storage.Store, pub Publisher) *EventService {
	return &EventService{store: store, pub: pub}
}

// CreateEvent creates an event with a fresh random invite code, retrying
// on a code collision.
func (s *EventService) CreateEvent(ctx context.Context, title string) (*models.Event, error) {
	if strings.TrimSpace(title) == "" {
		return nil, models.ValidationErrors{"title": "title must not be empty"}
	}

	for i := 0; i < createRetries; i++ {
		ev := models.NewEvent(title)
		err := s.store.CreateEvent(ctx, ev)
		if errors.Is(err, storage.ErrCodeTaken) {
			slog.Warn("invite code collision, regenerating", "code", ev.ID)
			continue
		}
		if err != nil {
			slog.Error("CreateEvent failed", "error", err)
			return nil, err
		}
		slog.Info("event created", "event_id", ev.ID, "title", title)
		return ev, nil
	}
	return nil, fmt.Errorf("could not find a free invite code after %d attempts", createRetries)
}

// GetEvent fetches the full event state by invite code.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.store.GetEvent(ctx, eventID)
}

// EditTitle renames an event and notifies subscribers.
func (s *EventService) EditTitle(ctx context.Context, eventID, title string) (*models.Event, error) {
	if strings.TrimSpace(title) == "" {
		return nil, models.ValidationErrors{"title": "title must not be empty"}
	}
	if err := s.store.SetEventTitle(ctx, eventID, title); err != nil {
		return nil, err
	}
	s.pub.Publish(models.Change{
		EventID: eventID,
		Kind:    models.ChangeTitleEdited,
		Title:   title,
	})
	slog.Info("event title edited", "event_id", eventID)
	return s.store.GetEvent(ctx, eventID)
}

// DeleteEvent destroys an event and notifies subscribers, whose
// subscriptions end with this final change.
func (s *EventService) DeleteEvent(ctx context.Context, eventID string) error {
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	s.pub.Publish(models.Change{
		EventID: eventID,
		Kind:    models.ChangeEventDeleted,
	})
	slog.Info("event deleted", "event_id", eventID)
	return nil
}

// AddParticipant adds a participant and notifies subscribers. The
// returned participant carries its server-assigned ID.
func (s *EventService) AddParticipant(ctx context.Context, eventID string, p *models.Participant) (*models.Participant, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, models.ValidationErrors{"name": "name must not be empty"}
	}
	if err := s.store.AddParticipant(ctx, eventID, p); err != nil {
		slog.Error("AddParticipant failed", "event_id", eventID, "error", err)
		return nil, err
	}
	s.pub.Publish(models.Change{
		EventID:     eventID,
		Kind:        models.ChangeParticipantAdded,
		Participant: p,
	})
	slog.Info("participant added", "event_id", eventID, "participant_id", p.ID)
	return p, nil
}

// RemoveParticipant removes a participant, cascading through expense
// payer and split references, and notifies subscribers.
func (s *EventService) RemoveParticipant(ctx context.Context, eventID, participantID string) error {
	if err := s.store.RemoveParticipant(ctx, eventID, participantID); err != nil {
		return err
	}
	s.pub.Publish(models.Change{
		EventID:       eventID,
		Kind:          models.ChangeParticipantRemoved,
		ParticipantID: participantID,
	})
	slog.Info("participant removed", "event_id", eventID, "participant_id", participantID)
	return nil
}

// UpsertTag adds or recolors a tag and notifies subscribers.
func (s *EventService) UpsertTag(ctx context.Context, eventID string, tag models.Tag) error {
	if strings.TrimSpace(tag.Name) == "" {
		return models.ValidationErrors{"name": "tag name must not be empty"}
	}
	if err := s.store.UpsertTag(ctx, eventID, tag); err != nil {
		return err
	}
	s.pub.Publish(models.Change{
		EventID: eventID,
		Kind:    models.ChangeTagUpserted,
		Tag:     &tag,
	})
	return nil
}

// RemoveTag removes a tag and notifies subscribers; expenses carrying it
// fall back to the default tag on every client the same way.
func (s *EventService) RemoveTag(ctx context.Context, eventID, name string) error {
	if err := s.store.RemoveTag(ctx, eventID, name); err != nil {
		return err
	}
	s.pub.Publish(models.Change{
		EventID: eventID,
		Kind:    models.ChangeTagRemoved,
		TagName: name,
	})
	return nil
}
