package eventbridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/domain/events"
)

type fakeClient struct {
	inputs []*eventbridge.PutEventsInput
	out    *eventbridge.PutEventsOutput
	err    error
}

func (f *fakeClient) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func makeEvents(n int) []events.DomainEvent {
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewEntityChanged("a1", "tours", "t1", events.Updated, at)
	}
	return out
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("Should split into batches of ten", func(t *testing.T) {
		client := &fakeClient{}
		p := NewPublisher(client, "toolkit-bus", "agencytoolkit.api", zap.NewNop())

		require.NoError(t, p.Publish(ctx, makeEvents(23)...))
		require.Len(t, client.inputs, 3)
		assert.Len(t, client.inputs[0].Entries, 10)
		assert.Len(t, client.inputs[2].Entries, 3)

		entry := client.inputs[0].Entries[0]
		assert.Equal(t, "tours.updated", aws.ToString(entry.DetailType))
		assert.Equal(t, "toolkit-bus", aws.ToString(entry.EventBusName))
		assert.Equal(t, "agencytoolkit.api", aws.ToString(entry.Source))
		assert.Contains(t, aws.ToString(entry.Detail), `"agency_id":"a1"`)
		assert.Equal(t, []string{"agency/a1/t1"}, entry.Resources)
	})

	t.Run("Should report partial failures", func(t *testing.T) {
		client := &fakeClient{out: &eventbridge.PutEventsOutput{
			FailedEntryCount: 1,
			Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("ThrottlingException")}},
		}}
		p := NewPublisher(client, "bus", "src", zap.NewNop())

		assert.Error(t, p.Publish(ctx, makeEvents(1)...))
	})

	t.Run("Should wrap client errors", func(t *testing.T) {
		cause := errors.New("no credentials")
		p := NewPublisher(&fakeClient{err: cause}, "bus", "src", zap.NewNop())

		assert.ErrorIs(t, p.Publish(ctx, makeEvents(2)...), cause)
	})

	t.Run("Should do nothing without events", func(t *testing.T) {
		client := &fakeClient{}
		require.NoError(t, NewPublisher(client, "bus", "src", zap.NewNop()).Publish(ctx))
		assert.Empty(t, client.inputs)
	})
}
