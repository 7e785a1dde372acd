package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	topics []string
	err    error
}

func (r *recordingPublisher) PublishEvent(ctx context.Context, topic string, event entity.Event) error {
	r.topics = append(r.topics, topic)
	return r.err
}

func TestFanoutReachesEveryPublisher(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("broker down")}
	ok := &recordingPublisher{}

	err := Fanout{failing, ok}.PublishEvent(context.Background(), TopicOrderPlaced, entity.OrderPlaced{OrderID: "o1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, []string{TopicOrderPlaced}, failing.topics)
	assert.Equal(t, []string{TopicOrderPlaced}, ok.topics)
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, TopicOrderPlaced, TopicFor(entity.OrderPlaced{}))
	assert.Equal(t, TopicOrderStatusChanged, TopicFor(entity.OrderStatusChanged{}))
}

func TestEncodeDecode(t *testing.T) {
	changed := entity.OrderStatusChanged{
		OrderID: "o1", UserID: "u1",
		From: entity.OrderStatusPending, To: entity.OrderStatusConfirmed,
		ChangedBy: "admin", ChangedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	raw, err := Encode(changed)
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "OrderStatusChanged", env.Type)
	assert.Equal(t, "o1", env.OrderID)
	assert.Equal(t, "u1", env.UserID)
	assert.JSONEq(t, `{"orderId":"o1","userId":"u1","from":"PENDING","to":"CONFIRMED","changedBy":"admin","changedAt":"2025-01-01T00:00:00Z"}`, string(env.Payload))

	_, err = Decode([]byte("nope"))
	assert.Error(t, err)
}
