package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_channel_connects_total",
		Help: "Successful channel connections, including reconnects.",
	})

	reconnectsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_channel_reconnects_scheduled_total",
		Help: "Reconnect attempts scheduled after unclean closes.",
	})
)

func observeConnect() { connectsTotal.Inc() }

func observeReconnectScheduled() { reconnectsScheduled.Inc() }
