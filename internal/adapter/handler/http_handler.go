package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/freshmart/ordering/internal/core/domain"
	"github.com/freshmart/ordering/internal/core/service"
)

type OrderAPI interface {
	PlaceOrder(ctx context.Context, userID string) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

type CartAPI interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error)
	UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, userID, productID string) error
}

type ProductAPI interface {
	List(ctx context.Context, page, limit int) (*service.ProductPage, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type HTTPHandler struct {
	orders   OrderAPI
	carts    CartAPI
	products ProductAPI
}

func NewHTTPHandler(orders OrderAPI, carts CartAPI, products ProductAPI) *HTTPHandler {
	return &HTTPHandler{orders: orders, carts: carts, products: products}
}

// Register installs all routes on the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.CancelOrder)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("PUT /api/cart/items/{productId}", h.UpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productId}", h.RemoveCartItem)
	mux.HandleFunc("GET /health", h.HealthCheck)
}

type placeOrderRequest struct {
	UserID string `json:"user_id"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type insufficientStockResponse struct {
	Message string                     `json:"message"`
	Items   []service.InsufficientItem `json:"insufficient_items"`
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "user_id is required"})
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), req.UserID)
	if err != nil {
		var insufficientErr *service.InsufficientStockError
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "cart is empty"})
		case errors.As(err, &insufficientErr):
			writeJSON(w, http.StatusConflict, insufficientStockResponse{
				Message: "insufficient stock for one or more items",
				Items:   insufficientErr.Items,
			})
		case errors.Is(err, service.ErrConcurrencyConflict):
			writeJSON(w, http.StatusConflict, errorResponse{
				Message: "order could not be processed due to concurrent demand, please retry",
			})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Message: "order not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.CancelOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Message: "order not found"})
		case errors.Is(err, service.ErrAlreadyCancelled):
			writeJSON(w, http.StatusConflict, errorResponse{Message: "order is already cancelled"})
		case errors.Is(err, service.ErrConcurrencyConflict):
			writeJSON(w, http.StatusConflict, errorResponse{
				Message: "cancellation could not be processed due to concurrent demand, please retry",
			})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
		}
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.products.List(r.Context(), page, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, toProductPageResponse(result))
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Message: "product not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*product))
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "user_id is required"})
		return
	}

	cart, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

type cartItemRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	if req.UserID == "" || req.ProductID == "" || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "user_id, product_id and positive quantity are required"})
		return
	}

	item, err := h.carts.AddItem(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Message: "product not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, toCartItemResponse(*item))
}

type updateCartItemRequest struct {
	UserID   string `json:"user_id"`
	Quantity int    `json:"quantity"`
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	if req.UserID == "" || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "user_id and positive quantity are required"})
		return
	}

	item, err := h.carts.UpdateItem(r.Context(), req.UserID, r.PathValue("productId"), req.Quantity)
	if err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Message: "item not in cart"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, toCartItemResponse(*item))
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "user_id is required"})
		return
	}

	err := h.carts.RemoveItem(r.Context(), userID, r.PathValue("productId"))
	if err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Message: "item not in cart"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
