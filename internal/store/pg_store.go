package store

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/abgdnv/productcrud/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = "id, name, description, price, stock, created_at, updated_at"

const (
	insertProduct = `INSERT INTO products (name, description, price, stock)
VALUES ($1, $2, $3, $4)
RETURNING ` + productColumns

	updateProduct = `UPDATE products
SET name = $2, description = $3, price = $4, stock = $5, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

	deleteProduct = `DELETE FROM products WHERE id = $1`
)

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

var _ ProductStore = (*PgStore)(nil)

func orderBy(sort Sort) (string, error) {
	if err := sort.Validate(); err != nil {
		return "", err
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	if sort.Field == SortFieldID {
		return fmt.Sprintf(" ORDER BY id %s", dir), nil
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", sort.Field, dir), nil
}

// FindAll retrieves all products in the requested order.
func (p *PgStore) FindAll(ctx context.Context, sort Sort) ([]Product, error) {
	order, err := orderBy(sort)
	if err != nil {
		return nil, err
	}
	rows, err := p.db.Query(ctx, "SELECT "+productColumns+" FROM products"+order)
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}
	return products, nil
}

// FindPage retrieves one page of products and the total product count.
func (p *PgStore) FindPage(ctx context.Context, page, size int32, sort Sort) (*Page, error) {
	if page < 0 || size < 1 {
		return nil, fmt.Errorf("invalid page %d with size %d", page, size)
	}
	order, err := orderBy(sort)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := p.db.QueryRow(ctx, "SELECT count(*) FROM products").Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	rows, err := p.db.Query(ctx, "SELECT "+productColumns+" FROM products"+order+" LIMIT $1 OFFSET $2",
		size, int64(page)*int64(size))
	if err != nil {
		return nil, fmt.Errorf("failed to find products page: %w", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}
	return &Page{Items: products, Page: page, Size: size, Total: total}, nil
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	rows, err := p.db.Query(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	product, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// Save inserts or updates the product inside a single transaction.
func (p *PgStore) Save(ctx context.Context, product Product) (*Product, error) {
	var saved *Product
	err := pgx.BeginTxFunc(ctx, p.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		if product.ID != 0 {
			saved, err = queryProduct(ctx, tx, updateProduct,
				product.ID, product.Name, product.Description, product.Price, product.Stock)
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
		}
		saved, err = queryProduct(ctx, tx, insertProduct,
			product.Name, product.Description, product.Price, product.Stock)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	return saved, nil
}

// Delete removes the product inside a single transaction.
// Returns ErrProductNotFound if no product exists with its ID.
func (p *PgStore) Delete(ctx context.Context, product Product) error {
	err := pgx.BeginTxFunc(ctx, p.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, deleteProduct, product.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return perrors.ErrProductNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete product by ID: %w", err)
	}
	return nil
}

func queryProduct(ctx context.Context, tx pgx.Tx, sql string, args ...any) (*Product, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Product])
}
