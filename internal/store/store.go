// Package store provides an interface for product storage operations.
package store

import (
	"context"
	"fmt"
	"time"
)

// Product represents a product entity in the store.
type Product struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Price       int64     `db:"price"` // Price in cents
	Stock       int32     `db:"stock"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// SortField is a column a product listing can be ordered by.
type SortField string

const (
	SortFieldName  SortField = "name"
	SortFieldID    SortField = "id"
	SortFieldPrice SortField = "price"
)

// Sort describes the ordering of a listing. Ties are always broken by id ascending.
type Sort struct {
	Field SortField
	Desc  bool
}

// SortByName is the ordering used by every product listing.
var SortByName = Sort{Field: SortFieldName}

func (s Sort) Validate() error {
	switch s.Field {
	case SortFieldName, SortFieldID, SortFieldPrice:
		return nil
	default:
		return fmt.Errorf("unsupported sort field %q", s.Field)
	}
}

// Page is one offset-addressed slice of the sorted product collection.
type Page struct {
	Items []Product
	Page  int32 // zero-based
	Size  int32
	Total int64
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// FindAll returns every product in the given order.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context, sort Sort) ([]Product, error)

	// FindPage returns the products at offset page*size, at most size of them,
	// together with the total number of products.
	FindPage(ctx context.Context, page, size int32, sort Sort) (*Page, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Product, error)

	// Save inserts the product when its ID is zero and updates it otherwise.
	// Updating an ID that does not exist inserts a new product with a fresh ID.
	Save(ctx context.Context, product Product) (*Product, error)

	// Delete removes the product.
	// Returns ErrProductNotFound if no product exists with its ID.
	Delete(ctx context.Context, product Product) error
}
