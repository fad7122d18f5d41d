package email

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSender struct {
	calls atomic.Int32
}

func (c *countingSender) Send(_ context.Context, _ SendRequest) (SendResult, error) {
	c.calls.Add(1)
	return SendResult{MessageID: "m", SentAt: time.Now()}, nil
}

func TestNoopSender(t *testing.T) {
	res, err := NewNoopSender().Send(context.Background(), SendRequest{To: "a@example.org", Subject: "Hallo"})
	require.NoError(t, err)
	assert.Contains(t, res.MessageID, "noop-")
	assert.False(t, res.SentAt.IsZero())
}

func TestNoopSender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewNoopSender().Send(ctx, SendRequest{To: "a@example.org"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimitedSender_Unlimited(t *testing.T) {
	next := &countingSender{}
	s := NewRateLimitedSender(next, 0)
	for i := 0; i < 5; i++ {
		_, err := s.Send(context.Background(), SendRequest{To: "a@example.org"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(5), next.calls.Load())
}

func TestRateLimitedSender_WaitHonoursDeadline(t *testing.T) {
	next := &countingSender{}
	s := NewRateLimitedSender(next, 0.001)

	_, err := s.Send(context.Background(), SendRequest{To: "a@example.org"})
	require.NoError(t, err, "burst of one is available immediately")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Send(ctx, SendRequest{To: "a@example.org"})
	require.Error(t, err)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestResendSender_RequiresRecipient(t *testing.T) {
	_, err := NewResendSender("re_test", "vog@example.org").Send(context.Background(), SendRequest{Subject: "x"})
	assert.Error(t, err)
}

func TestToTags(t *testing.T) {
	assert.Nil(t, toTags(nil))
	tags := toTags(map[string]string{"kind": "vog_reminder", "category": "new"})
	require.Len(t, tags, 2)
	assert.Equal(t, "category", tags[0].Name)
	assert.Equal(t, "vog_reminder", tags[1].Value)
}
