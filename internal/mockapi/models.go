// Package mockapi exposes the fault injector over HTTP as two mock
// downstream services: a products catalog with one globally-sequenced
// failure stream, and a payment gateway with per-correlation-ID
// streams. Resilience policies under test point at these endpoints and
// a scenario string fully scripts what they will observe.
package mockapi

// Product is a catalog entry returned by the products endpoint on
// success. Payload semantics are deliberately minimal; the endpoint
// exists for its failure sequencing, not its data.
type Product struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

var catalog = []Product{
	{ID: 1, Description: "Product HeadSet 01", Status: "ACTIVATED"},
	{ID: 2, Description: "Product Keyboard 02", Status: "ACTIVATED"},
	{ID: 3, Description: "Product Mouse 03", Status: "ACTIVATED"},
}

// PaymentRequest is the charge payload accepted by the payment
// endpoint.
type PaymentRequest struct {
	CustomerID    string  `json:"customerId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"paymentMethod"`
}

// PaymentResponse is the payment endpoint's reply for both approved
// and failed charges.
type PaymentResponse struct {
	TransactionID string  `json:"transactionId"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Message       string  `json:"message"`
}

// errorResponse is the generic error payload for malformed requests.
type errorResponse struct {
	Error string `json:"error"`
}
