// Package service mediates message operations against the store: it owns
// validation, the error taxonomy exposed to the HTTP boundary, and the
// trigger for deferred replies to user messages.
package service

import (
	"errors"
	"strings"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/responder"
	"chatrelay/pkg/store"
)

// Service wires the store and the reply scheduler. The scheduler may be nil,
// in which case user messages simply get no synthetic reply.
type Service struct {
	st      store.Store
	replies *responder.Scheduler
}

// New returns a Service over st. replies may be nil.
func New(st store.Store, replies *responder.Scheduler) *Service {
	return &Service{st: st, replies: replies}
}

// ListMessages returns all live messages in conversation order.
func (s *Service) ListMessages() ([]models.Message, error) {
	msgs, err := s.st.List()
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return msgs, nil
}

// CreateMessage validates and appends a message. A user-authored creation
// schedules exactly one deferred reply; the reply never blocks or fails this
// call.
func (s *Service) CreateMessage(content string, origin models.Origin, state models.DeliveryState) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, errValidation("content must not be empty")
	}
	if !origin.Valid() {
		return models.Message{}, errValidation("unknown origin %q", origin)
	}
	if state != "" && !state.Valid() {
		return models.Message{}, errValidation("unknown delivery state %q", state)
	}
	msg, err := s.st.Create(models.Draft{Content: content, Origin: origin, DeliveryState: state})
	if err != nil {
		return models.Message{}, &StorageError{Op: "create", Err: err}
	}
	logger.Info("message_created", "id", msg.ID, "origin", msg.Origin)
	if origin == models.OriginUser && s.replies != nil {
		s.replies.Schedule(msg)
	}
	return msg, nil
}

// EditMessage replaces a message's content. Identity, origin and timestamp
// are untouched; edited/editedAt are stamped by the store.
func (s *Service) EditMessage(id int64, content string, edited bool) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, errValidation("content must not be empty")
	}
	msg, err := s.st.Update(id, content, edited)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Message{}, ErrNotFound
		}
		return models.Message{}, &StorageError{Op: "update", Err: err}
	}
	logger.Info("message_edited", "id", id)
	return msg, nil
}

// DeleteMessage removes a message permanently and cancels any reply still
// pending against it, so a deleted conversation turn cannot spawn a reply
// after it is gone.
func (s *Service) DeleteMessage(id int64) (bool, error) {
	ok, err := s.st.Delete(id)
	if err != nil {
		return false, &StorageError{Op: "delete", Err: err}
	}
	if ok && s.replies != nil {
		s.replies.Cancel(id)
	}
	if ok {
		logger.Info("message_deleted", "id", id)
	}
	return ok, nil
}
