package model

// GatewayNotification is the payload the bank gateway POSTs when a transfer
// lands. Delivery is at-least-once: the same notification may arrive zero, one,
// or many times, concurrently. ID is globally unique per gateway and is the
// idempotency key for intake.
type GatewayNotification struct {
	ID              int64   `json:"id"` // gateway transaction id
	Gateway         string  `json:"gateway"`
	TransactionDate string  `json:"transactionDate"`
	AccountNumber   string  `json:"accountNumber"`
	SubAccount      *string `json:"subAccount"`
	Content         string  `json:"content"` // free-text transfer memo, scanned for the order code
	TransferType    string  `json:"transferType"`
	TransferAmount  int64   `json:"transferAmount"`
	ReferenceCode   string  `json:"referenceCode"` // stored for audit, not used for matching
	Accumulated     int64   `json:"accumulated"`
	Description     string  `json:"description"`
}

// Intake classification reasons returned to the gateway. Rejections are
// terminal for the delivery; only transport-level failures should be retried.
const (
	ReasonOK                = "ok"
	ReasonAlreadyProcessed  = "already processed"
	ReasonInvalidCredential = "invalid credential"
	ReasonNoMatchableOrder  = "no matchable order"
	ReasonAmountMismatch    = "amount mismatch"
)

// IntakeResult is the webhook handler's decision for one delivery.
type IntakeResult struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}
