// Package events holds the payloads published on product changes.
package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/productcrud/pkg/messaging"
)

// ProductChange identifies which mutation produced a ProductChangedEvent.
type ProductChange string

const (
	ProductCreated ProductChange = "created"
	ProductUpdated ProductChange = "updated"
	ProductDeleted ProductChange = "deleted"
)

type ProductChangedEvent struct {
	Change     ProductChange `json:"-"`
	ProductID  int64         `json:"id"`
	Name       string        `json:"name"`
	OccurredAt time.Time     `json:"occurredAt"`
}

func (e ProductChangedEvent) Subject() string {
	switch e.Change {
	case ProductCreated:
		return messaging.ProductsCreatedSubject
	case ProductDeleted:
		return messaging.ProductsDeletedSubject
	default:
		return messaging.ProductsUpdatedSubject
	}
}

func (e ProductChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
