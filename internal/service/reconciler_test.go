package service_test

import (
	"encoding/json"
	"fmt"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/repository"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func successCallback(merchantRequestID, amount, receipt string) *domain.STKCallback {
	return &domain.STKCallback{
		MerchantRequestID: merchantRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		Metadata: []domain.CallbackItem{
			{Name: "Amount", Value: json.RawMessage(amount)},
			{Name: "MpesaReceiptNumber", Value: json.RawMessage(fmt.Sprintf("%q", receipt))},
		},
	}
}

func (s *IntegrationTestSuite) outboxEventCount(eventType string) int {
	var count int
	err := s.DbPool.QueryRow(s.Ctx,
		`SELECT COUNT(*) FROM outbox WHERE event_type = $1`, eventType,
	).Scan(&count)
	s.Require().NoError(err)

	return count
}

func (s *IntegrationTestSuite) TestMpesaFlow_SuccessCallback() {
	book := s.seedItem("English Grade 6", "800.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	payment, err := s.Reconciler.CreateMpesaIntent(s.Ctx, order.ID, "254700000001")
	s.Require().NoError(err)
	s.Require().Equal(domain.PaymentStatusPending, payment.Status)
	s.Require().NotEmpty(payment.TransactionID)

	stored, err := s.Ledger.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(payment.TransactionID, stored.MerchantRequestID)

	err = s.Reconciler.ReconcileCallback(s.Ctx, successCallback(payment.TransactionID, "800.00", "QK1TEST"))
	s.Require().NoError(err)

	stored, err = s.Ledger.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.PaymentStatusPaid, stored.PaymentStatus)
	s.Require().True(stored.AmountPaid.Equal(stored.Total))
	s.Require().Equal("QK1TEST", stored.MpesaReceiptNumber)

	s.Require().Equal(1, s.outboxEventCount(domain.EventPaymentSucceeded))
}

func (s *IntegrationTestSuite) TestMpesaFlow_DuplicateCallbackIsNoOp() {
	book := s.seedItem("Kiswahili Grade 3", "600.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	payment, err := s.Reconciler.CreateMpesaIntent(s.Ctx, order.ID, "254700000002")
	s.Require().NoError(err)

	cb := successCallback(payment.TransactionID, "600.00", "QK2TEST")
	s.Require().NoError(s.Reconciler.ReconcileCallback(s.Ctx, cb))
	s.Require().NoError(s.Reconciler.ReconcileCallback(s.Ctx, cb))

	stored, err := s.Ledger.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().True(stored.AmountPaid.Equal(stored.Total), "amount_paid: %s", stored.AmountPaid)

	s.Require().Equal(1, s.outboxEventCount(domain.EventPaymentSucceeded))
}

func (s *IntegrationTestSuite) TestMpesaFlow_FailureCallback() {
	book := s.seedItem("CRE Grade 7", "450.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	payment, err := s.Reconciler.CreateMpesaIntent(s.Ctx, order.ID, "254700000003")
	s.Require().NoError(err)

	err = s.Reconciler.ReconcileCallback(s.Ctx, &domain.STKCallback{
		MerchantRequestID: payment.TransactionID,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	})
	s.Require().NoError(err)

	stored, err := s.Ledger.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.PaymentStatusFailed, stored.PaymentStatus)
	s.Require().True(stored.AmountPaid.IsZero())

	s.Require().Equal(1, s.outboxEventCount(domain.EventPaymentFailed))
}

func (s *IntegrationTestSuite) TestCallback_UnknownCorrelationDropped() {
	err := s.Reconciler.ReconcileCallback(s.Ctx, successCallback("mr-unknown", "100.00", "QKXTEST"))
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestStripeFlow_SyncSuccess() {
	book := s.seedItem("History Grade 8", "700.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	result, err := s.Reconciler.CreateStripeIntent(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().NotEmpty(result.ClientSecret)
	s.Require().Equal(domain.PaymentStatusPaid, result.Payment.Status)

	stored, err := s.Ledger.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.PaymentStatusPaid, stored.PaymentStatus)
	s.Require().Equal(result.Payment.TransactionID, stored.StripeID)

	s.Require().Equal(1, s.outboxEventCount(domain.EventPaymentSucceeded))

	// paid orders reject a second intent
	_, err = s.Reconciler.CreateStripeIntent(s.Ctx, order.ID)
	s.Require().ErrorIs(err, repository.ErrOrderAlreadyPaid)
}

func (s *IntegrationTestSuite) TestRefund_Stripe() {
	book := s.seedItem("Geography Grade 8", "550.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	result, err := s.Reconciler.CreateStripeIntent(s.Ctx, order.ID)
	s.Require().NoError(err)

	refund, err := s.Reconciler.Refund(s.Ctx, &service.RefundRequest{
		PaymentID: result.Payment.ID,
		Reason:    "duplicate order",
	})
	s.Require().NoError(err)
	s.Require().Equal(domain.RefundStatusCompleted, refund.Status)
	s.Require().True(refund.Amount.Equal(result.Payment.Amount))

	stored, err := s.Ledger.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.PaymentStatusRefunded, stored.PaymentStatus)

	s.Require().Equal(1, s.outboxEventCount(domain.EventRefundInitiated))

	// refunded is terminal for the payment
	_, err = s.Reconciler.Refund(s.Ctx, &service.RefundRequest{PaymentID: result.Payment.ID})
	s.Require().ErrorIs(err, service.ErrPaymentNotRefundable)
}

func (s *IntegrationTestSuite) TestRefund_AmountAbovePaymentRejected() {
	book := s.seedItem("Chemistry Form 4", "880.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	result, err := s.Reconciler.CreateStripeIntent(s.Ctx, order.ID)
	s.Require().NoError(err)

	refundsBefore := len(s.Card.refunds)

	_, err = s.Reconciler.Refund(s.Ctx, &service.RefundRequest{
		PaymentID: result.Payment.ID,
		Amount:    result.Payment.Amount.Add(decimal.NewFromInt(100)),
	})
	s.Require().ErrorIs(err, service.ErrRefundExceedsPayment)

	// rejected before the gateway, no transfer happened
	s.Require().Equal(refundsBefore, len(s.Card.refunds))

	stored, err := s.Ledger.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.PaymentStatusPaid, stored.PaymentStatus)
	s.Require().True(stored.AmountPaid.Equal(stored.Total))
}

func (s *IntegrationTestSuite) TestRefund_ByOrderResolvesLatestPaid() {
	book := s.seedItem("Computer Studies Form 2", "720.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	result, err := s.Reconciler.CreateStripeIntent(s.Ctx, order.ID)
	s.Require().NoError(err)

	refund, err := s.Reconciler.Refund(s.Ctx, &service.RefundRequest{
		OrderID: order.ID,
		Reason:  "wrong title shipped",
	})
	s.Require().NoError(err)
	s.Require().Equal(result.Payment.ID, refund.PaymentID)
	s.Require().Equal(domain.RefundStatusCompleted, refund.Status)

	stored, err := s.Ledger.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.PaymentStatusRefunded, stored.PaymentStatus)
}

func (s *IntegrationTestSuite) TestRefund_TargetRequired() {
	_, err := s.Reconciler.Refund(s.Ctx, &service.RefundRequest{})
	s.Require().ErrorIs(err, service.ErrRefundTargetRequired)
}

func (s *IntegrationTestSuite) TestRefund_MpesaAsyncResolution() {
	book := s.seedItem("Physics Form 1", "950.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	payment, err := s.Reconciler.CreateMpesaIntent(s.Ctx, order.ID, "254700000004")
	s.Require().NoError(err)
	s.Require().NoError(s.Reconciler.ReconcileCallback(s.Ctx, successCallback(payment.TransactionID, "950.00", "QK3TEST")))

	refund, err := s.Reconciler.Refund(s.Ctx, &service.RefundRequest{
		PaymentID: payment.ID,
		Phone:     "254700000004",
		Reason:    "order cancelled",
	})
	s.Require().NoError(err)
	s.Require().Equal(domain.RefundStatusPending, refund.Status)
	s.Require().NotEmpty(refund.TransactionID)

	stored, err := s.Ledger.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.PaymentStatusRefunded, stored.PaymentStatus)

	s.Require().NoError(s.Reconciler.HandleB2CResult(s.Ctx, &domain.B2CResult{
		ResultCode:    0,
		TransactionID: refund.TransactionID,
	}))

	var status string
	err = s.DbPool.QueryRow(s.Ctx,
		`SELECT refund_status FROM refunds WHERE id = $1`, refund.ID,
	).Scan(&status)
	s.Require().NoError(err)
	s.Require().Equal("completed", status)
}

func (s *IntegrationTestSuite) TestRefund_UnknownPayment() {
	_, err := s.Reconciler.Refund(s.Ctx, &service.RefundRequest{PaymentID: uuid.New()})
	s.Require().ErrorIs(err, repository.ErrPaymentNotFound)
}
