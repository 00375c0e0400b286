package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	queue string
	body  []byte
}

type fakePublisher struct {
	got []published
	err error
}

func (f *fakePublisher) Publish(_ context.Context, queue string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, published{queue: queue, body: body})
	return nil
}

func TestQueueDispatcher_RoutesByChannel(t *testing.T) {
	pub := &fakePublisher{}
	d := NewQueueDispatcher(pub, logging.Nop{})
	ctx := context.Background()

	require.NoError(t, d.Send(ctx, Message{Destination: "a@b.io", Token: "t1", Purpose: PurposeEmailVerification, Channel: ChannelEmail}))
	require.NoError(t, d.Send(ctx, Message{Destination: "+15551234", Token: "t2", Purpose: PurposePasswordReset, Channel: ChannelSMS}))

	require.Len(t, pub.got, 2)
	assert.Equal(t, EmailQueue, pub.got[0].queue)
	assert.Equal(t, SMSQueue, pub.got[1].queue)

	var m Message
	require.NoError(t, json.Unmarshal(pub.got[1].body, &m))
	assert.Equal(t, "+15551234", m.Destination)
	assert.Equal(t, PurposePasswordReset, m.Purpose)
}

func TestQueueDispatcher_PublishError(t *testing.T) {
	d := NewQueueDispatcher(&fakePublisher{err: errors.New("broker down")}, logging.Nop{})

	err := d.Send(context.Background(), Message{Channel: ChannelEmail})
	assert.ErrorIs(t, err, common.ErrNotificationDeliveryFailed)
}

func TestLogDispatcher(t *testing.T) {
	assert.NoError(t, NewLogDispatcher(logging.Nop{}).Send(context.Background(), Message{}))
}
