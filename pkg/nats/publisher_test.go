package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/abgdnv/productcrud/pkg/messaging"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockJetStream struct {
	subject string
	payload []byte
	err     error
}

func (m *mockJetStream) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	m.subject = subject
	m.payload = payload
	if m.err != nil {
		return nil, m.err
	}
	return &jetstream.PubAck{Stream: "PRODUCTS", Sequence: 1}, nil
}

type testEvent struct {
	payloadErr error
}

func (e testEvent) Subject() string { return messaging.ProductsCreatedSubject }

func (e testEvent) Payload() ([]byte, error) {
	if e.payloadErr != nil {
		return nil, e.payloadErr
	}
	return []byte(`{"product_id":1}`), nil
}

func TestNatsPublisher_Publish(t *testing.T) {
	js := &mockJetStream{}
	p := NewNatsPublisher(js)

	err := p.Publish(context.Background(), testEvent{})

	require.NoError(t, err)
	assert.Equal(t, messaging.ProductsCreatedSubject, js.subject)
	assert.JSONEq(t, `{"product_id":1}`, string(js.payload))
}

func TestNatsPublisher_PublishErrors(t *testing.T) {
	errBroker := errors.New("no responders")
	errPayload := errors.New("bad payload")

	err := NewNatsPublisher(&mockJetStream{err: errBroker}).Publish(context.Background(), testEvent{})
	assert.ErrorIs(t, err, errBroker)

	js := &mockJetStream{}
	err = NewNatsPublisher(js).Publish(context.Background(), testEvent{payloadErr: errPayload})
	assert.ErrorIs(t, err, errPayload)
	assert.Empty(t, js.subject, "nothing is published when the payload fails")
}
