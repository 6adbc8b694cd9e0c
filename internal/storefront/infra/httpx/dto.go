package httpx

import (
	"github.com/jcmexdev/pizzeria-storefront/internal/menu"
)

type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type AddDesignRequest struct {
	Design   menu.Design `json:"design"`
	Quantity int         `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items       []LineItemResponse `json:"items"`
	Count       int                `json:"count"`
	Subtotal    int64              `json:"subtotal"`
	DeliveryFee int64              `json:"delivery_fee"`
	Total       int64              `json:"total"`
	Persisted   bool               `json:"persisted"`
}

type LineItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
	Image     string `json:"image"`
}

type PlaceOrderResponse struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
}

type OrderResponse struct {
	ID            string             `json:"id"`
	Status        string             `json:"status"`
	Items         []LineItemResponse `json:"items"`
	Subtotal      int64              `json:"subtotal"`
	DeliveryFee   int64              `json:"delivery_fee"`
	Total         int64              `json:"total"`
	TransactionID string             `json:"transaction_id,omitempty"`
	Customer      *CustomerResponse  `json:"customer,omitempty"`
	CreatedAt     string             `json:"created_at"`
}

type CustomerResponse struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	PickupMethod string `json:"pickup_method"`
}

type PaymentViewResponse struct {
	State string        `json:"state"`
	Order OrderResponse `json:"order"`
}

type PaymentResponse struct {
	State         string        `json:"state"`
	TransactionID string        `json:"transaction_id"`
	Order         OrderResponse `json:"order"`
}

type QuoteResponse struct {
	Price     int64  `json:"price"`
	Slices    int    `json:"slices"`
	Signature string `json:"signature"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type ThemeResponse struct {
	Theme string `json:"theme"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
