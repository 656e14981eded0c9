// Package e2e provides end-to-end tests for the product API.
// The suite starts a real PostgreSQL instance with testcontainers-go, applies the
// embedded migrations and runs the application handler in an httptest.Server.
// Every test starts from an empty products table.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/productcrud/internal/app"
	"github.com/abgdnv/productcrud/internal/config"
	"github.com/abgdnv/productcrud/internal/service"
	"github.com/abgdnv/productcrud/internal/store"
	pkgconfig "github.com/abgdnv/productcrud/pkg/config"
	"github.com/abgdnv/productcrud/pkg/messaging"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "PRODUCT_SKIP_INTEGRATION_TESTS"

const productURL = "/products"

type ProductAPIE2ESuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	server      *httptest.Server
	httpClient  *http.Client
	logger      *slog.Logger
	ctx         context.Context
}

type productEnvelope struct {
	Message string              `json:"message"`
	Product *service.ProductDto `json:"product"`
}

type errorsEnvelope struct {
	Errors []string `json:"errors"`
}

type productPayload struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Stock       int32  `json:"stock"`
}

func (s *ProductAPIE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("products"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	var cfg config.Config
	cfg.Store.Driver = pkgconfig.StoreDriverPostgres
	cfg.Database.URL = connStr
	cfg.Database.Migrate = true
	require.NoError(s.T(), app.Migrate(cfg, s.logger), "Failed to apply migrations")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgx pool")
	for i := range 10 {
		s.logger.Info("Pinging E2E PostgreSQL database", "attempt", i+1)
		if err = s.dbPool.Ping(s.ctx); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	deps := app.SetupDependencies(store.NewPgStore(s.dbPool), messaging.NoopPublisher{}, s.dbPool, nil, cfg, s.logger)
	s.server = httptest.NewServer(app.SetupHttpHandler(deps))
	s.httpClient = s.server.Client()
}

func (s *ProductAPIE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("Failed to terminate E2E PostgreSQL container", "error", err)
		}
	}
}

// SetupTest prepares the database for each test by truncating the products table.
func (s *ProductAPIE2ESuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE products RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate products table")
}

func TestProductAPIE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping E2E tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(ProductAPIE2ESuite))
}

// doRequest makes an HTTP request and returns the body, the status code and the headers.
func (s *ProductAPIE2ESuite) doRequest(method, path string, payload any) ([]byte, int, http.Header) {
	s.T().Helper()
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		require.NoError(s.T(), err)
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, body)
	require.NoError(s.T(), err, "Failed to create HTTP request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err, "HTTP request failed")
	defer func() {
		require.NoError(s.T(), resp.Body.Close(), "Failed to close response body")
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err, "Failed to read response body")
	return bodyBytes, resp.StatusCode, resp.Header
}

func decodeAs[T any](s *ProductAPIE2ESuite, data []byte) T {
	s.T().Helper()
	var v T
	require.NoError(s.T(), json.Unmarshal(data, &v), "Failed to decode response: %s", data)
	return v
}

func (s *ProductAPIE2ESuite) createProduct(payload productPayload) service.ProductDto {
	s.T().Helper()
	body, status, _ := s.doRequest(http.MethodPost, productURL, payload)
	require.Equal(s.T(), http.StatusCreated, status, string(body))
	return *decodeAs[productEnvelope](s, body).Product
}

func (s *ProductAPIE2ESuite) TestCreateAndFind_E2E() {
	created := s.createProduct(productPayload{ID: 500, Name: "Laptop", Description: "14 inch", Price: 129900, Stock: 5})
	assert.Equal(s.T(), int64(1), created.ID, "client id is ignored")

	body, status, _ := s.doRequest(http.MethodGet, fmt.Sprintf("%s/%d", productURL, created.ID), nil)
	require.Equal(s.T(), http.StatusOK, status)
	found := decodeAs[productEnvelope](s, body)
	assert.Equal(s.T(), "Found product with id 1", found.Message)
	assert.Equal(s.T(), "Laptop", found.Product.Name)
	assert.Equal(s.T(), "14 inch", found.Product.Description)
	assert.NotNil(s.T(), found.Product.CreatedAt)
}

func (s *ProductAPIE2ESuite) TestFindByID_NotFound_E2E() {
	body, status, _ := s.doRequest(http.MethodGet, productURL+"/404", nil)
	assert.Equal(s.T(), http.StatusNotFound, status)
	assert.Contains(s.T(), decodeAs[productEnvelope](s, body).Message, "not found")
}

func (s *ProductAPIE2ESuite) TestCreate_Invalid_E2E() {
	testCases := []struct {
		name    string
		payload productPayload
	}{
		{name: "empty name", payload: productPayload{Price: 100, Stock: 1}},
		{name: "negative price", payload: productPayload{Name: "Mouse", Price: -5, Stock: 1}},
		{name: "negative stock", payload: productPayload{Name: "Mouse", Price: 5, Stock: -1}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			body, status, _ := s.doRequest(http.MethodPost, productURL, tc.payload)
			assert.Equal(s.T(), http.StatusBadRequest, status)
			assert.NotEmpty(s.T(), decodeAs[errorsEnvelope](s, body).Errors)
		})
	}

	body, status, _ := s.doRequest(http.MethodGet, productURL, nil)
	require.Equal(s.T(), http.StatusOK, status)
	assert.Empty(s.T(), decodeAs[[]service.ProductDto](s, body), "invalid products must not be persisted")
}

func (s *ProductAPIE2ESuite) TestList_E2E() {
	for _, name := range []string{"mouse", "keyboard", "monitor", "cable", "headset"} {
		s.createProduct(productPayload{Name: name, Price: 1000, Stock: 1})
	}

	body, status, _ := s.doRequest(http.MethodGet, productURL, nil)
	require.Equal(s.T(), http.StatusOK, status)
	all := decodeAs[[]service.ProductDto](s, body)
	require.Len(s.T(), all, 5)
	assert.Equal(s.T(), "cable", all[0].Name)
	assert.Equal(s.T(), "mouse", all[4].Name)

	body, status, header := s.doRequest(http.MethodGet, productURL+"?page=1&size=2", nil)
	require.Equal(s.T(), http.StatusOK, status)
	page := decodeAs[[]service.ProductDto](s, body)
	assert.Equal(s.T(), all[2:4], page)
	assert.Equal(s.T(), "5", header.Get("X-Total-Count"))

	_, status, _ = s.doRequest(http.MethodGet, productURL+"?page=-1&size=2", nil)
	assert.Equal(s.T(), http.StatusBadRequest, status)
}

func (s *ProductAPIE2ESuite) TestUpdate_E2E() {
	created := s.createProduct(productPayload{Name: "Desk", Price: 20000, Stock: 2})

	body, status, _ := s.doRequest(http.MethodPut, fmt.Sprintf("%s/%d", productURL, created.ID),
		productPayload{ID: 99, Name: "Standing desk", Price: 45000, Stock: 1})
	require.Equal(s.T(), http.StatusOK, status, string(body))
	updated := decodeAs[productEnvelope](s, body)
	assert.Equal(s.T(), "Product updated successfully", updated.Message)
	assert.Equal(s.T(), created.ID, updated.Product.ID)
	assert.Equal(s.T(), "Standing desk", updated.Product.Name)

	body, status, _ = s.doRequest(http.MethodPut, productURL+"/999", productPayload{Name: "Chair", Price: 5000, Stock: 4})
	require.Equal(s.T(), http.StatusOK, status)
	assert.NotEqual(s.T(), int64(999), decodeAs[productEnvelope](s, body).Product.ID, "unknown id inserts a new product")
}

func (s *ProductAPIE2ESuite) TestDelete_E2E() {
	created := s.createProduct(productPayload{Name: "Lamp", Price: 3000, Stock: 3})
	path := fmt.Sprintf("%s/%d", productURL, created.ID)

	body, status, _ := s.doRequest(http.MethodDelete, path, nil)
	assert.Equal(s.T(), http.StatusOK, status)
	assert.Equal(s.T(), "Product deleted successfully", string(body))

	_, status, _ = s.doRequest(http.MethodGet, path, nil)
	assert.Equal(s.T(), http.StatusNotFound, status)

	body, status, _ = s.doRequest(http.MethodDelete, path, nil)
	assert.Equal(s.T(), http.StatusNotFound, status)
	assert.Equal(s.T(), "Product not found", string(body))
}

func (s *ProductAPIE2ESuite) TestHealthz_E2E() {
	_, status, _ := s.doRequest(http.MethodGet, "/healthz", nil)
	assert.Equal(s.T(), http.StatusOK, status)
}
