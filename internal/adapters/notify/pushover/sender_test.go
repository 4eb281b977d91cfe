package pushover

import (
	"context"
	"errors"
	"testing"

	"care-connect/internal/domain/notifications"

	po "github.com/gregdel/pushover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keys map[string]string

func (k keys) PushoverKey(_ context.Context, userID string) (string, error) {
	v, ok := k[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return v, nil
}

type fakeApp struct {
	messages   []*po.Message
	recipients []*po.Recipient
	err        error
}

func (f *fakeApp) SendMessage(m *po.Message, r *po.Recipient) (*po.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.messages = append(f.messages, m)
	f.recipients = append(f.recipients, r)
	return &po.Response{Status: 1}, nil
}

func newTestSender(app *fakeApp, k keys) *Sender {
	return &Sender{app: app, recipients: k, title: "CareConnect"}
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New("  ", keys{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSend_DeliversToUserKey(t *testing.T) {
	app := &fakeApp{}
	s := newTestSender(app, keys{"u-1": "ukey123"})

	err := s.Send(context.Background(), notifications.Notification{
		UserID:  "u-1",
		Type:    notifications.TypeAdherenceAlert,
		Message: "Adherence dropped to 60%",
	})
	require.NoError(t, err)

	require.Len(t, app.messages, 1)
	assert.Equal(t, "Adherence dropped to 60%", app.messages[0].Message)
	assert.Equal(t, "CareConnect", app.messages[0].Title)
	assert.Equal(t, po.PriorityHigh, app.messages[0].Priority)
	assert.Equal(t, []*po.Recipient{po.NewRecipient("ukey123")}, app.recipients)
}

func TestSend_SkipsUsersWithoutKey(t *testing.T) {
	app := &fakeApp{}
	s := newTestSender(app, keys{"u-1": ""})

	require.NoError(t, s.Send(context.Background(), notifications.Notification{UserID: "u-1", Message: "hi"}))
	assert.Empty(t, app.messages)
}

func TestSend_PropagatesErrors(t *testing.T) {
	s := newTestSender(&fakeApp{}, keys{})
	assert.Error(t, s.Send(context.Background(), notifications.Notification{UserID: "missing", Message: "hi"}))

	s = newTestSender(&fakeApp{err: errors.New("503")}, keys{"u-1": "k"})
	assert.Error(t, s.Send(context.Background(), notifications.Notification{UserID: "u-1", Message: "hi"}))
}
