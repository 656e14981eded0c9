// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/productcrud/internal/store"
	"github.com/abgdnv/productcrud/pkg/messaging"
	"github.com/abgdnv/productcrud/pkg/messaging/events"
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// FindAll returns all products sorted by name.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// FindPage returns one page of products sorted by name plus the total count.
	FindPage(ctx context.Context, page, size int32) (*ProductPage, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*ProductDto, error)

	// Create adds a new product. Any ID on the input is ignored.
	Create(ctx context.Context, product ProductDto) (*ProductDto, error)

	// Update saves the product under the given ID, inserting it when the ID is unknown.
	Update(ctx context.Context, id int64, product ProductDto) (*ProductDto, error)

	// Delete removes the product.
	// Returns ErrProductNotFound if no product exists with its ID.
	Delete(ctx context.Context, product ProductDto) error
}

// ProductDto represents the data transfer object for a product.
// CreatedAt and UpdatedAt are read-only.
type ProductDto struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"        validate:"required,max=100"`
	Description string     `json:"description" validate:"max=500"`
	Price       int64      `json:"price"       validate:"min=0"`
	Stock       int32      `json:"stock"       validate:"min=0"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// ProductPage is a page of products together with the total number of products.
type ProductPage struct {
	Items []ProductDto
	Total int64
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository store.ProductStore
	publisher  messaging.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new instance of ProductService.
// Change events go to publisher; failures to publish are logged and otherwise ignored.
func NewService(repo store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &Service{
		repository: repo,
		publisher:  publisher,
		logger:     logger.With("component", "service"),
		now:        time.Now,
	}
}

var _ ProductService = (*Service)(nil)

func (s *Service) FindAll(ctx context.Context) ([]ProductDto, error) {
	products, err := s.repository.FindAll(ctx, store.SortByName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return toDtos(products), nil
}

func (s *Service) FindPage(ctx context.Context, page, size int32) (*ProductPage, error) {
	p, err := s.repository.FindPage(ctx, page, size, store.SortByName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products page %d of size %d: %w", page, size, err)
	}
	return &ProductPage{Items: toDtos(p.Items), Total: p.Total}, nil
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id int64) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %d: %w", id, err)
	}
	return toDto(product), nil
}

// Create stores a new product. A nil result without error means the store produced nothing.
func (s *Service) Create(ctx context.Context, product ProductDto) (*ProductDto, error) {
	product.ID = 0
	saved, err := s.repository.Save(ctx, toEntity(product))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	if saved == nil {
		return nil, nil
	}
	s.publish(ctx, events.ProductCreated, saved.ID, saved.Name)
	return toDto(saved), nil
}

// Update saves the product with its ID forced to id.
func (s *Service) Update(ctx context.Context, id int64, product ProductDto) (*ProductDto, error) {
	product.ID = id
	saved, err := s.repository.Save(ctx, toEntity(product))
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %d: %w", id, err)
	}
	if saved == nil {
		return nil, nil
	}
	change := events.ProductUpdated
	if saved.ID != id {
		change = events.ProductCreated
	}
	s.publish(ctx, change, saved.ID, saved.Name)
	return toDto(saved), nil
}

func (s *Service) Delete(ctx context.Context, product ProductDto) error {
	if err := s.repository.Delete(ctx, toEntity(product)); err != nil {
		return fmt.Errorf("failed to delete product with ID %d: %w", product.ID, err)
	}
	s.publish(ctx, events.ProductDeleted, product.ID, product.Name)
	return nil
}

func (s *Service) publish(ctx context.Context, change events.ProductChange, id int64, name string) {
	event := events.ProductChangedEvent{Change: change, ProductID: id, Name: name, OccurredAt: s.now().UTC()}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish product event", "subject", event.Subject(), "product_id", id, "error", err)
	}
}

func toEntity(dto ProductDto) store.Product {
	return store.Product{
		ID:          dto.ID,
		Name:        dto.Name,
		Description: dto.Description,
		Price:       dto.Price,
		Stock:       dto.Stock,
	}
}

func toDtos(products []store.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toDto(&products[i])
	}
	return dtos
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	dto := &ProductDto{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
	}
	if !product.CreatedAt.IsZero() {
		createdAt := product.CreatedAt
		dto.CreatedAt = &createdAt
	}
	if !product.UpdatedAt.IsZero() {
		updatedAt := product.UpdatedAt
		dto.UpdatedAt = &updatedAt
	}
	return dto
}
