package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chatrelay/pkg/models"
)

var (
	messagesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_messages_created_total",
		Help: "Messages committed to the store, labelled by origin.",
	}, []string{"origin"})

	messagesEdited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_messages_edited_total",
		Help: "Successful message edits.",
	})

	messagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_messages_deleted_total",
		Help: "Messages removed from the store.",
	})
)

func observeCreate(origin models.Origin) {
	messagesCreated.WithLabelValues(string(origin)).Inc()
}

func observeUpdate() { messagesEdited.Inc() }

func observeDelete() { messagesDeleted.Inc() }
