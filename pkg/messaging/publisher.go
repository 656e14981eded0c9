// Package messaging defines the event publishing contract used by the services.
package messaging

import (
	"context"
)

// Product change subjects.
const (
	ProductsCreatedSubject = "products.created"
	ProductsUpdatedSubject = "products.updated"
	ProductsDeletedSubject = "products.deleted"
	// ProductsSubjects matches every product change subject.
	ProductsSubjects = "products.>"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards every event. Used when messaging is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
