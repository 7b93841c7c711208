package responder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
)

func newTestScheduler(t *testing.T, st store.Store) *Scheduler {
	t.Helper()
	s := NewScheduler(NewGenerator(1), st, 1, WithDelay(10*time.Millisecond, 0))
	t.Cleanup(s.Stop)
	return s
}

func userMessage(t *testing.T, st store.Store, text string) models.Message {
	t.Helper()
	m, err := st.Create(models.Draft{Content: text, Origin: models.OriginUser})
	require.NoError(t, err)
	return m
}

func TestSchedulerCommitsReply(t *testing.T) {
	st := store.NewMemoryStore()
	s := newTestScheduler(t, st)

	m := userMessage(t, st, "hello")
	s.Schedule(m)

	require.Eventually(t, func() bool {
		msgs, err := st.List()
		return err == nil && len(msgs) == 3
	}, time.Second, 5*time.Millisecond)

	msgs, _ := st.List()
	reply := msgs[len(msgs)-1]
	require.Equal(t, ReplyGreeting, reply.Content)
	require.Equal(t, models.OriginSystem, reply.Origin)
	require.Equal(t, models.DeliveryRead, reply.DeliveryState)
	require.Equal(t, 0, s.PendingCount())
}

func TestSchedulerCancelSuppressesReply(t *testing.T) {
	st := store.NewMemoryStore()
	s := NewScheduler(NewGenerator(1), st, 1, WithDelay(50*time.Millisecond, 0))
	t.Cleanup(s.Stop)

	m := userMessage(t, st, "hello")
	s.Schedule(m)
	require.True(t, s.Cancel(m.ID))
	require.False(t, s.Cancel(m.ID), "second cancel finds nothing pending")

	time.Sleep(120 * time.Millisecond)
	msgs, _ := st.List()
	require.Len(t, msgs, 2, "no reply may land after cancel")
}

func TestSchedulerDeduplicatesTrigger(t *testing.T) {
	st := store.NewMemoryStore()
	s := newTestScheduler(t, st)

	m := userMessage(t, st, "hi")
	s.Schedule(m)
	s.Schedule(m)
	require.Equal(t, 1, s.PendingCount())
}

func TestSchedulerDropsOverCapacity(t *testing.T) {
	st := store.NewMemoryStore()
	s := NewScheduler(NewGenerator(1), st, 1,
		WithDelay(time.Minute, 0), WithMaxPending(2))
	t.Cleanup(s.Stop)

	for i := 0; i < 3; i++ {
		s.Schedule(userMessage(t, st, "hello"))
	}
	require.Equal(t, 2, s.PendingCount())
}

func TestSchedulerStop(t *testing.T) {
	st := store.NewMemoryStore()
	s := NewScheduler(NewGenerator(1), st, 1, WithDelay(time.Minute, 0))

	s.Schedule(userMessage(t, st, "hello"))
	s.Stop()
	require.Equal(t, 0, s.PendingCount())

	// Scheduling after Stop is a no-op.
	s.Schedule(userMessage(t, st, "hello again"))
	require.Equal(t, 0, s.PendingCount())
}
