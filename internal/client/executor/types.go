package executor

import "github.com/shopspring/decimal"

// Order states reported by the executor.
const (
	OrderStatusUnfilled = "unfilled"
	OrderStatusFilled   = "filled"
	OrderStatusRejected = "rejected"
)

type SubmitOrderRequest struct {
	OrderHash string `json:"order_hash"`
	Payload   any    `json:"payload"`
	Signature string `json:"signature"`
}

type SubmitOrderResponse struct {
	OrderID string `json:"order_id"`
}

type OrderStatus struct {
	OrderID      string           `json:"order_id"`
	Status       string           `json:"status"`
	ActualAmount *decimal.Decimal `json:"actual_amount,omitempty"`
	FillTxRef    string           `json:"fill_tx_ref,omitempty"`
	Reason       string           `json:"reason,omitempty"`
}

type DistributeRequest struct {
	Bidder string          `json:"bidder"`
	Token  string          `json:"token"`
	Amount decimal.Decimal `json:"amount"`
}

type DistributeResponse struct {
	DistributionRef string `json:"distribution_ref"`
}

// FillEvent is one message on the executor's order-event stream.
type FillEvent struct {
	EventType    string           `json:"event_type"`
	OrderID      string           `json:"order_id"`
	Status       string           `json:"status"`
	ActualAmount *decimal.Decimal `json:"actual_amount,omitempty"`
	FillTxRef    string           `json:"fill_tx_ref,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	Timestamp    string           `json:"timestamp"`
}
