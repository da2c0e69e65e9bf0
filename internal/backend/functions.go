package backend

import (
	"context"

	"github.com/lumenstudio/fotofacil/internal/domain"
)

// Function names deployed on the backend
const (
	FunctionCreateOrder      = "create-order"
	FunctionCheckPayment     = "check-payment"
	FunctionValidateDelivery = "validate-delivery"
)

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	CPF   string `json:"cpf"`
}

// OrderItem carries the price snapshot taken when the photo was added to
// the cart. The order function re-prices server-side.
type OrderItem struct {
	PhotoID    string `json:"photo_id"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
}

// CreateOrderRequest is the create-order payload
type CreateOrderRequest struct {
	Customer Customer    `json:"customer"`
	Items    []OrderItem `json:"items"`
	CouponID *string     `json:"couponId,omitempty"`
}

// PaymentData holds the PIX instructions returned for a new order
type PaymentData struct {
	OrderID      string `json:"orderId"`
	QRCode       string `json:"qrCode"`
	QRCodeBase64 string `json:"qrCodeBase64"`
	PixCopiaCola string `json:"pixCopiaCola"`
}

// PaymentStatusResult is the check-payment answer. DeliveryToken is set
// once the order is paid.
type PaymentStatusResult struct {
	Status        domain.PaymentStatus `json:"status"`
	DeliveryToken string               `json:"deliveryToken,omitempty"`
}

type DeliveryOrder struct {
	ID            string `json:"id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	TotalCents    int64  `json:"total_cents"`
	PaidAt        string `json:"paid_at,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

type DeliveryItem struct {
	PhotoID     string `json:"photo_id"`
	Title       string `json:"title"`
	DownloadURL string `json:"download_url"`
}

// DeliveryPackage is the validate-delivery answer for a valid link
type DeliveryPackage struct {
	Order DeliveryOrder  `json:"order"`
	Items []DeliveryItem `json:"items"`
}

// CreateOrder submits the order and returns its payment instructions
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*PaymentData, error) {
	var out PaymentData
	if err := c.invoke(ctx, FunctionCreateOrder, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckPayment asks whether the order has been paid. For free orders the
// same call confirms the order.
func (c *Client) CheckPayment(ctx context.Context, orderID string) (*PaymentStatusResult, error) {
	var out PaymentStatusResult
	payload := map[string]string{"orderId": orderID}
	if err := c.invoke(ctx, FunctionCheckPayment, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateDelivery exchanges an order id and delivery token for the
// purchased items
func (c *Client) ValidateDelivery(ctx context.Context, orderID, token string) (*DeliveryPackage, error) {
	var out DeliveryPackage
	payload := map[string]string{"orderId": orderID, "token": token}
	if err := c.invoke(ctx, FunctionValidateDelivery, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
