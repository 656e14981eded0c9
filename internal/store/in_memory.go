package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	perrors "github.com/abgdnv/productcrud/internal/errors"
)

// inMemory implements ProductStore using an in-memory map.
type inMemory struct {
	mu       sync.RWMutex
	products map[int64]Product
	nextID   int64
	now      func() time.Time
}

// NewInMemoryStore creates a new instance of ProductStore
func NewInMemoryStore() ProductStore {
	return &inMemory{
		products: make(map[int64]Product),
		nextID:   1,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *inMemory) sorted(sort Sort) ([]Product, error) {
	if err := sort.Validate(); err != nil {
		return nil, err
	}
	list := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p)
	}
	slices.SortFunc(list, func(a, b Product) int {
		var c int
		switch sort.Field {
		case SortFieldName:
			c = cmp.Compare(a.Name, b.Name)
		case SortFieldPrice:
			c = cmp.Compare(a.Price, b.Price)
		case SortFieldID:
			c = cmp.Compare(a.ID, b.ID)
		}
		if sort.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return list, nil
}

// FindAll retrieves all products.
func (s *inMemory) FindAll(_ context.Context, sort Sort) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sorted(sort)
}

func (s *inMemory) FindPage(_ context.Context, page, size int32, sort Sort) (*Page, error) {
	if page < 0 || size < 1 {
		return nil, fmt.Errorf("invalid page %d with size %d", page, size)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.sorted(sort)
	if err != nil {
		return nil, err
	}
	total := int64(len(list))
	from := min(int64(page)*int64(size), total)
	to := min(from+int64(size), total)

	return &Page{Items: list[from:to], Page: page, Size: size, Total: total}, nil
}

// FindByID retrieves a product by its ID.
func (s *inMemory) FindByID(_ context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	return &p, nil
}

// Save creates or updates a product and returns it.
func (s *inMemory) Save(_ context.Context, product Product) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.products[product.ID]; ok && product.ID != 0 {
		product.CreatedAt = existing.CreatedAt
		product.UpdatedAt = now
		s.products[product.ID] = product
		return &product, nil
	}

	product.ID = s.nextID
	product.CreatedAt = now
	product.UpdatedAt = now
	s.nextID++
	s.products[product.ID] = product

	return &product, nil
}

// Delete removes a product by its ID.
func (s *inMemory) Delete(_ context.Context, product Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return perrors.ErrProductNotFound
	}
	delete(s.products, product.ID)
	return nil
}
