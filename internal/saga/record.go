package saga

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrValidation classifies malformed or incomplete payloads. Operations
// that fail validation are abandoned without side effects and are never
// retried.
var ErrValidation = errors.New("invalid transaction payload")

// ErrMissingOrderID signals a payload without a usable order id.
var ErrMissingOrderID = fmt.Errorf("%w: orderId is required", ErrValidation)

// TransactionRecord is the unit of work moving through the saga: a
// required orderId plus whatever other fields the caller sent. The extra
// fields are kept opaque so the payload round-trips through the bus and
// the store unmodified.
type TransactionRecord struct {
	OrderID string
	Fields  map[string]json.RawMessage
}

// ParseRecord decodes a JSON payload into a TransactionRecord. A body
// that is not a JSON object, or that lacks a non-empty orderId, is a
// validation failure.
func ParseRecord(raw []byte) (TransactionRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return TransactionRecord{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if fields == nil {
		return TransactionRecord{}, ErrMissingOrderID
	}

	idRaw, ok := fields["orderId"]
	if !ok {
		return TransactionRecord{}, ErrMissingOrderID
	}
	var orderID string
	if err := json.Unmarshal(idRaw, &orderID); err != nil {
		return TransactionRecord{}, fmt.Errorf("%w: orderId must be a string", ErrValidation)
	}
	if orderID == "" {
		return TransactionRecord{}, ErrMissingOrderID
	}

	return TransactionRecord{OrderID: orderID, Fields: fields}, nil
}

// Marshal re-serializes the full payload, orderId included.
func (r TransactionRecord) Marshal() ([]byte, error) {
	if r.Fields == nil {
		return json.Marshal(map[string]string{"orderId": r.OrderID})
	}
	return json.Marshal(r.Fields)
}

// IsValidationError reports whether err is a payload validation failure,
// as opposed to a transient infrastructure error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
