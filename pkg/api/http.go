// Package api exposes the message lifecycle over HTTP and hosts the
// realtime relay endpoint.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/service"
	"chatrelay/pkg/utils"
)

// Server holds the handlers' collaborators.
type Server struct {
	svc *service.Service
	hub *Hub
}

// NewServer returns a Server over svc. hub may be nil to disable /ws.
func NewServer(svc *service.Service, hub *Hub) *Server {
	return &Server{svc: svc, hub: hub}
}

// Router builds the mux router with all message endpoints registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	r.HandleFunc("/messages", s.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/messages", s.createMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}", s.updateMessage).Methods(http.MethodPut)
	r.HandleFunc("/messages/{id}", s.deleteMessage).Methods(http.MethodDelete)
	if s.hub != nil {
		r.HandleFunc("/ws", s.hub.Serve)
	}
	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.svc.ListMessages()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	logger.Debug("messages_list", "count", len(msgs))
	_ = utils.JSONWrite(w, http.StatusOK, msgs)
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content       string               `json:"content"`
		Origin        models.Origin        `json:"origin"`
		DeliveryState models.DeliveryState `json:"deliveryState"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	msg, err := s.svc.CreateMessage(body.Content, body.Origin, body.DeliveryState)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, msg)
}

func (s *Server) updateMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Content string `json:"content"`
		Edited  *bool  `json:"edited"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	edited := true
	if body.Edited != nil {
		edited = *body.Edited
	}
	msg, err := s.svc.EditMessage(id, body.Content, edited)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, msg)
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := s.svc.DeleteMessage(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !deleted {
		utils.JSONError(w, http.StatusNotFound, "message not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"success": true})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid message id")
		return 0, false
	}
	return id, true
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.JSONError(w, http.StatusBadRequest, ve.Reason)
	case errors.Is(err, service.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, "message not found")
	default:
		logger.Error("request_failed", "error", err)
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}
