// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	perrors "github.com/abgdnv/productcrud/internal/errors"
	"github.com/abgdnv/productcrud/internal/service"
	"github.com/abgdnv/productcrud/pkg/web"
	"github.com/go-chi/chi/v5"
)

const totalCountHeader = "X-Total-Count"

const (
	msgFound          = "Found product with id %d"
	msgNotFound       = "Product with id %d not found"
	msgServerError    = "Server error"
	msgInvalidID      = "Invalid product id"
	msgSaved          = "Product saved successfully"
	msgNotCreated     = "Product was not created"
	msgUpdated        = "Product updated successfully"
	msgNotUpdated     = "Product was not updated"
	msgFatal          = "A fatal error occurred, the most likely cause is: %s"
	msgMalformedBody  = "Malformed JSON request body"
	msgDeleted        = "Product deleted successfully"
	msgDeleteNotFound = "Product not found"
	msgDeleteFailed   = "Fatal error"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune handler behaviour that differs between deployments.
type Options struct {
	// ListFailureNoContent answers a failed unpaginated listing with 204 instead of 500.
	ListFailureNoContent bool
	// Health is pinged by /healthz when set.
	Health Pinger
}

type Handler struct {
	service  service.ProductService
	validate *web.Validator
	logger   *slog.Logger
	opts     Options
}

// NewHandler creates a new instance of the product HTTP API with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger, opts Options) *Handler {
	return &Handler{
		service:  service,
		validate: web.NewValidator(),
		logger:   logger.With("component", "rest"),
		opts:     opts,
	}
}

// RegisterRoutes registers the HTTP routes for the product API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// FindAll lists products sorted by name. With both page and size it returns a single page.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	page, pagePresent, pageErr := web.OptionalQueryInt(r, "page", web.Gte(0))
	size, sizePresent, sizeErr := web.OptionalQueryInt(r, "size", web.Gt(0))

	if pagePresent && sizePresent {
		if err := errors.Join(pageErr, sizeErr); err != nil {
			h.logger.WarnContext(r.Context(), "Invalid pagination parameters", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.logger.DebugContext(r.Context(), "Received request to find products page", "page", page, "size", size)
		result, err := h.service.FindPage(r.Context(), page, size)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "Error retrieving product page", "page", page, "size", size, "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set(totalCountHeader, strconv.FormatInt(result.Total, 10))
		h.logger.DebugContext(r.Context(), "Successfully retrieved product page", "count", len(result.Items), "total", result.Total)
		web.RespondJSON(w, h.logger, http.StatusOK, result.Items)
		return
	}

	h.logger.DebugContext(r.Context(), "Received request to find all products")
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		if h.opts.ListFailureNoContent {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		web.RespondJSON(w, h.logger, http.StatusInternalServerError, messageBody(msgServerError))
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	id, err := web.ParseInt64ID(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Invalid product ID", "error", err)
		web.RespondJSON(w, h.logger, http.StatusBadRequest, messageBody(msgInvalidID))
		return
	}

	h.logger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			h.logger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondJSON(w, h.logger, http.StatusNotFound, messageBody(fmt.Sprintf(msgNotFound, id)))
			return
		}
		h.logger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondJSON(w, h.logger, http.StatusInternalServerError, messageBody(msgServerError))
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully retrieved product", "ID", found.ID, "Name", found.Name)
	web.RespondJSON(w, h.logger, http.StatusOK, productBody(fmt.Sprintf(msgFound, id), found))
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	productDto, ok := h.decodeAndValidate(w, r)
	if !ok {
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to create product", "Name", productDto.Name)

	newProduct, err := h.service.Create(r.Context(), productDto)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondJSON(w, h.logger, http.StatusInternalServerError, fatalBody(err))
		return
	}
	if newProduct == nil {
		h.logger.ErrorContext(r.Context(), "Store returned no product on create")
		web.RespondJSON(w, h.logger, http.StatusInternalServerError, messageBody(msgNotCreated))
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", newProduct.ID, "Name", newProduct.Name)
	web.RespondJSON(w, h.logger, http.StatusCreated, productBody(msgSaved, newProduct))
}

// Update saves the product under the path ID, creating it when the ID is unknown.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := web.ParseInt64ID(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Invalid product ID", "error", err)
		web.RespondJSON(w, h.logger, http.StatusBadRequest, messageBody(msgInvalidID))
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to update product", "ID", id)
	productDto, ok := h.decodeAndValidate(w, r)
	if !ok {
		return
	}

	updated, err := h.service.Update(r.Context(), id, productDto)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error updating product", "ID", id, "error", err)
		web.RespondJSON(w, h.logger, http.StatusInternalServerError, fatalBody(err))
		return
	}
	if updated == nil {
		h.logger.ErrorContext(r.Context(), "Store returned no product on update", "ID", id)
		web.RespondJSON(w, h.logger, http.StatusInternalServerError, messageBody(msgNotUpdated))
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, h.logger, http.StatusOK, productBody(msgUpdated, updated))
}

// Delete looks the product up and removes it. Responses are plain text.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := web.ParseInt64ID(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Invalid product ID", "error", err)
		web.RespondText(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to delete product", "ID", id)

	found, err := h.service.FindByID(r.Context(), id)
	if err == nil {
		err = h.service.Delete(r.Context(), *found)
	}
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			h.logger.WarnContext(r.Context(), "Product not found for deletion", "ID", id)
			web.RespondText(w, http.StatusNotFound, msgDeleteNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "Error deleting product", "ID", id, "error", err)
		web.RespondText(w, http.StatusInternalServerError, msgDeleteFailed)
		return
	}
	h.logger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	web.RespondText(w, http.StatusOK, msgDeleted)
}

// HealthCheck answers 200, or 503 when the configured dependency cannot be pinged.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.opts.Health != nil {
		if err := h.opts.Health.Ping(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "Health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// decodeAndValidate reads the product body. On failure it has already answered 400 with the error list.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request) (service.ProductDto, bool) {
	var productDto service.ProductDto
	if err := json.NewDecoder(r.Body).Decode(&productDto); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondJSON(w, h.logger, http.StatusBadRequest, errorsBody([]string{msgMalformedBody}))
		return productDto, false
	}
	messages, err := h.validate.Messages(productDto)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondJSON(w, h.logger, http.StatusBadRequest, errorsBody([]string{msgMalformedBody}))
		return productDto, false
	}
	if len(messages) > 0 {
		h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", messages)
		web.RespondJSON(w, h.logger, http.StatusBadRequest, errorsBody(messages))
		return productDto, false
	}
	return productDto, true
}

type messageResponse struct {
	Message string `json:"message"`
}

type productResponse struct {
	Message string              `json:"message"`
	Product *service.ProductDto `json:"product"`
}

type errorsResponse struct {
	Errors []string `json:"errors"`
}

type fatalResponse struct {
	ErrorGrave string `json:"errorGrave"`
}

func messageBody(message string) messageResponse { return messageResponse{Message: message} }

func productBody(message string, p *service.ProductDto) productResponse {
	return productResponse{Message: message, Product: p}
}

func errorsBody(messages []string) errorsResponse { return errorsResponse{Errors: messages} }

func fatalBody(err error) fatalResponse {
	return fatalResponse{ErrorGrave: fmt.Sprintf(msgFatal, perrors.MostSpecificCause(err))}
}
