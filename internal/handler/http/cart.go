package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/schoolwear/internal/domain"
	"github.com/utafrali/schoolwear/internal/service"
	"github.com/utafrali/schoolwear/pkg/httputil"
	"github.com/utafrali/schoolwear/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	cart    *service.CartStore
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(cart *service.CartStore, catalog *service.CatalogService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		cart:    cart,
		catalog: catalog,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding an item to the cart.
// A missing quantity means one unit.
type AddItemRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Size      string `json:"size" validate:"max=20"`
	Quantity  int    `json:"quantity" validate:"omitempty,gte=1,lte=999"`
}

// UpdateQuantityRequest is the JSON request body for updating a line's
// quantity. Zero or less removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// --- Response DTOs ---

// CartResponse is the cart as returned by every cart endpoint.
type CartResponse struct {
	Items         domain.Lines `json:"items"`
	Total         int64        `json:"total"`
	TotalDisplay  string       `json:"total_display"`
	TotalQuantity int          `json:"total_quantity"`
}

func newCartResponse(items domain.Lines) CartResponse {
	total := items.Total()
	return CartResponse{
		Items:         items,
		Total:         total,
		TotalDisplay:  domain.FormatMoney(total),
		TotalQuantity: items.Quantity(),
	}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartResponse(h.cart.Items())})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	items, err := h.catalog.AddToCart(r.Context(), service.AddToCartInput{
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  req.Quantity,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartResponse(items)})
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{productId}?size=
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseIDParam(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	h.cart.UpdateQuantity(productID, *req.Quantity, r.URL.Query().Get("size"))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartResponse(h.cart.Items())})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}?size=
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseIDParam(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	h.cart.RemoveItem(productID, r.URL.Query().Get("size"))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartResponse(h.cart.Items())})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear()
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "cleared"}})
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CartHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseIDParam(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}
