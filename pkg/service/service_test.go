package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatrelay/pkg/models"
	"chatrelay/pkg/responder"
	"chatrelay/pkg/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	sched := responder.NewScheduler(responder.NewGenerator(1), st, 1,
		responder.WithDelay(10*time.Millisecond, 0))
	t.Cleanup(sched.Stop)
	return New(st, sched), st
}

func TestCreateMessageValidation(t *testing.T) {
	svc, _ := newTestService(t)

	var ve *ValidationError
	_, err := svc.CreateMessage("", models.OriginUser, "")
	require.ErrorAs(t, err, &ve)

	_, err = svc.CreateMessage("   \t  ", models.OriginUser, "")
	require.ErrorAs(t, err, &ve, "whitespace-only content is empty")

	_, err = svc.CreateMessage("hi", models.Origin("bot"), "")
	require.ErrorAs(t, err, &ve)

	_, err = svc.CreateMessage("hi", models.OriginUser, models.DeliveryState("teleported"))
	require.ErrorAs(t, err, &ve)
}

func TestCreateMessageSchedulesReplyForUser(t *testing.T) {
	svc, st := newTestService(t)

	m, err := svc.CreateMessage("hello", models.OriginUser, "")
	require.NoError(t, err)
	require.Equal(t, models.OriginUser, m.Origin)

	require.Eventually(t, func() bool {
		msgs, lerr := st.List()
		return lerr == nil && len(msgs) == 3
	}, time.Second, 5*time.Millisecond, "user message gets a deferred reply")
}

func TestCreateMessageNoReplyForSystem(t *testing.T) {
	svc, st := newTestService(t)

	_, err := svc.CreateMessage("maintenance notice", models.OriginSystem, models.DeliveryRead)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	msgs, _ := st.List()
	require.Len(t, msgs, 2, "system messages never trigger replies")
}

func TestEditMessage(t *testing.T) {
	svc, _ := newTestService(t)

	m, err := svc.CreateMessage("orig", models.OriginUser, "")
	require.NoError(t, err)

	got, err := svc.EditMessage(m.ID, "changed", true)
	require.NoError(t, err)
	require.Equal(t, "changed", got.Content)
	require.True(t, got.Edited)
	require.NotNil(t, got.EditedAt)

	var ve *ValidationError
	_, err = svc.EditMessage(m.ID, "  ", true)
	require.ErrorAs(t, err, &ve)

	_, err = svc.EditMessage(99999, "x", true)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteMessageCancelsPendingReply(t *testing.T) {
	st := store.NewMemoryStore()
	sched := responder.NewScheduler(responder.NewGenerator(1), st, 1,
		responder.WithDelay(50*time.Millisecond, 0))
	t.Cleanup(sched.Stop)
	svc := New(st, sched)

	m, err := svc.CreateMessage("hello", models.OriginUser, "")
	require.NoError(t, err)

	ok, err := svc.DeleteMessage(m.ID)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(120 * time.Millisecond)
	msgs, _ := st.List()
	require.Len(t, msgs, 1, "deleting the trigger suppresses its reply")

	ok, err = svc.DeleteMessage(m.ID)
	require.NoError(t, err)
	require.False(t, ok, "second delete reports absence")
}
