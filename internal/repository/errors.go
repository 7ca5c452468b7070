package repository

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrOrderAlreadyPaid  = errors.New("order already paid")
	ErrItemNotFound      = errors.New("item not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrStepNotFound      = errors.New("order step not found")
	ErrChecklistNotFound = errors.New("order checklist not found")
	ErrDuplicatePayment  = errors.New("payment already recorded for this transaction")
)
