package notifications_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"care-connect/internal/adapters/storage/memory"
	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name string
	err  error
	sent []notifications.Notification
}

func (s *recordingSender) Name() string { return s.name }

func (s *recordingSender) Send(_ context.Context, n notifications.Notification) error {
	s.sent = append(s.sent, n)
	return s.err
}

func TestNotify_PersistsAndFansOut(t *testing.T) {
	ok := &recordingSender{name: "ok"}
	failing := &recordingSender{name: "failing", err: errors.New("503")}
	svc := notifications.NewService(memory.NewNotificationsRepo(), nil, nil, failing, ok)
	ctx := context.Background()

	n, err := svc.Notify(ctx, notifications.Input{
		UserID:   "p-1",
		Type:     notifications.TypeMedicationAdded,
		Message:  "New medication: Metformin",
		Metadata: map[string]string{"medicationId": "m-1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.IsRead)

	// un sender caído no frena a los demás
	require.Len(t, failing.sent, 1)
	require.Len(t, ok.sent, 1)
	assert.Equal(t, n.ID, ok.sent[0].ID)

	page, err := svc.List(ctx, "p-1", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "m-1", page.Items[0].Metadata["medicationId"])
}

func TestNotify_Validation(t *testing.T) {
	svc := notifications.NewService(memory.NewNotificationsRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.Notify(ctx, notifications.Input{Type: notifications.TypeSystem, Message: "hi"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Notify(ctx, notifications.Input{UserID: "u", Type: "sms", Message: "hi"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Notify(ctx, notifications.Input{UserID: "u", Type: notifications.TypeSystem, Message: "  "})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestList_PaginatesNewestFirst(t *testing.T) {
	svc := notifications.NewService(memory.NewNotificationsRepo(), nil, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Notify(ctx, notifications.Input{
			UserID:  "u-1",
			Type:    notifications.TypeSystem,
			Message: fmt.Sprintf("msg %d", i),
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	page, err := svc.List(ctx, "u-1", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "msg 2", page.Items[0].Message)
	assert.Equal(t, "msg 1", page.Items[1].Message)

	_, err = svc.List(ctx, " ", 1, 10)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestMarkRead(t *testing.T) {
	svc := notifications.NewService(memory.NewNotificationsRepo(), nil, nil)
	ctx := context.Background()

	a, err := svc.Notify(ctx, notifications.Input{UserID: "u-1", Type: notifications.TypeSystem, Message: "a"})
	require.NoError(t, err)
	_, err = svc.Notify(ctx, notifications.Input{UserID: "u-1", Type: notifications.TypeSystem, Message: "b"})
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// otro usuario no puede marcarla
	_, err = svc.MarkRead(ctx, a.ID, "u-2")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	read, err := svc.MarkRead(ctx, a.ID, "u-1")
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	n, err := svc.MarkAllRead(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err = svc.UnreadCount(ctx, "u-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}
