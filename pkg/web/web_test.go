package web

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

type payload struct {
	Name        string `json:"name" validate:"required,max=10"`
	Description string `json:"description,omitempty" validate:"max=20"`
	Price       int64  `json:"price" validate:"min=0"`
	Ignored     string `json:"-"`
}

func TestValidator_Messages(t *testing.T) {
	v := NewValidator()

	testCases := []struct {
		name     string
		in       any
		expected []string
	}{
		{
			name: "valid",
			in:   payload{Name: "Lamp", Price: 10},
		},
		{
			name:     "missing name",
			in:       payload{Price: 1},
			expected: []string{"name is a required field"},
		},
		{
			name:     "missing name and negative price",
			in:       payload{Price: -1},
			expected: []string{"name is a required field", "price must be 0 or greater"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			messages, err := v.Messages(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, messages)
		})
	}
}

func TestValidator_Messages_NotAStruct(t *testing.T) {
	_, err := NewValidator().Messages(42)
	assert.Error(t, err)
}

func TestParseInt64ID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products/12", nil)
	req.SetPathValue("id", "12")
	id, err := ParseInt64ID(req)
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	bad := httptest.NewRequest(http.MethodGet, "/products/abc", nil)
	bad.SetPathValue("id", "abc")
	_, err = ParseInt64ID(bad)
	assert.Error(t, err)
}

func TestOptionalQueryInt(t *testing.T) {
	testCases := []struct {
		name        string
		query       string
		validator   ParamValidator
		wantValue   int32
		wantPresent bool
		wantErr     bool
	}{
		{name: "absent", query: "", validator: Gte(0)},
		{name: "empty", query: "?page=", validator: Gte(0)},
		{name: "valid", query: "?page=3", validator: Gte(0), wantValue: 3, wantPresent: true},
		{name: "not a number", query: "?page=x", validator: Gte(0), wantPresent: true, wantErr: true},
		{name: "rejected by validator", query: "?page=0", validator: Gt(0), wantPresent: true, wantErr: true},
		{name: "overflow", query: "?page=99999999999", validator: Gte(0), wantPresent: true, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/products"+tc.query, nil)
			value, present, err := OptionalQueryInt(req, "page", tc.validator)
			assert.Equal(t, tc.wantValue, value)
			assert.Equal(t, tc.wantPresent, present)
			assert.Equal(t, tc.wantErr, err != nil)
		})
	}
}

func TestRespondJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondJSON(rr, discardLogger, http.StatusCreated, map[string]int{"id": 1})
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":1}`, rr.Body.String())

	empty := httptest.NewRecorder()
	RespondJSON(empty, discardLogger, http.StatusBadRequest, nil)
	assert.Equal(t, http.StatusBadRequest, empty.Code)
	assert.Empty(t, empty.Body.String())
}

func TestRespondText(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondText(rr, http.StatusNotFound, "missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "missing", rr.Body.String())
}

func TestRequestIDInjector(t *testing.T) {
	var seen string
	h := RequestIDInjector(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = middleware.GetReqID(r.Context())
	}))

	// client supplied id is kept
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	h.ServeHTTP(rr, req)
	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", rr.Header().Get(RequestIDHeader))

	// otherwise one is generated
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(discardLogger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
