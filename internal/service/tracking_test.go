package service_test

import (
	"context"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/outbox"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/repository"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/service"
	"github.com/jackc/pgx/v5"
)

func (s *IntegrationTestSuite) bootstrapFulfillment(orderID string, eventID int64) {
	err := outbox.ProcessWithDeduplication(s.Ctx, s.DbPool, s.Logger, eventID,
		func(ctx context.Context, tx pgx.Tx) error {
			if err := s.Tracking.InitializeFulfillment(ctx, tx, orderID); err != nil {
				return err
			}

			return s.Receipts.EmitReceipt(ctx, tx, orderID)
		},
	)
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestFulfillmentBootstrap_ExactlyOnce() {
	book := s.seedItem("Chemistry Form 2", "500.00", "0", true, true)
	order := s.createOrder(
		service.OrderLine{SKU: book.SKU, Quantity: 1},
		service.OrderLine{SKU: book.SKU, Quantity: 2},
	)

	before := s.Sender.sendCount()

	s.bootstrapFulfillment(order.ID, 1001)
	// duplicate delivery of the same event
	s.bootstrapFulfillment(order.ID, 1001)
	// redelivery under a fresh event id, guarded by the existence check
	s.bootstrapFulfillment(order.ID, 1002)

	steps, err := s.Tracking.ListSteps(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(steps, 1)
	s.Require().Equal(domain.StepCreated, steps[0].Name)
	s.Require().False(steps[0].Completed)

	checklist, err := s.Tracking.GetChecklist(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(checklist.Items, 2)
	s.Require().False(checklist.Done())

	var receiptCount int
	err = s.DbPool.QueryRow(s.Ctx,
		`SELECT COUNT(*) FROM receipts WHERE order_id = $1`, order.ID,
	).Scan(&receiptCount)
	s.Require().NoError(err)
	s.Require().Equal(1, receiptCount)
	s.Require().Equal(before+1, s.Sender.sendCount())
}

func (s *IntegrationTestSuite) TestCompleteStep_AdvancesPrefix() {
	book := s.seedItem("Biology Form 3", "650.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	s.bootstrapFulfillment(order.ID, 2001)

	steps, err := s.Tracking.CompleteStep(s.Ctx, order.ID, domain.StepCreated)
	s.Require().NoError(err)
	s.Require().Len(steps, 2)
	s.Require().True(steps[0].Completed)
	s.Require().Equal(domain.StepProcessing, steps[1].Name)
	s.Require().False(steps[1].Completed)

	// completing an already-completed step is a no-op
	steps, err = s.Tracking.CompleteStep(s.Ctx, order.ID, domain.StepCreated)
	s.Require().NoError(err)
	s.Require().Len(steps, 2)

	// a step that has not materialized yet cannot be completed
	_, err = s.Tracking.CompleteStep(s.Ctx, order.ID, domain.StepShipped)
	s.Require().ErrorIs(err, repository.ErrStepNotFound)
}

func (s *IntegrationTestSuite) TestCompleteStep_FullSequence() {
	book := s.seedItem("Agriculture Form 1", "350.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	s.bootstrapFulfillment(order.ID, 3001)

	var steps []domain.OrderStep
	var err error
	for _, name := range domain.StepSequence {
		steps, err = s.Tracking.CompleteStep(s.Ctx, order.ID, name)
		s.Require().NoError(err)
	}

	s.Require().Len(steps, len(domain.StepSequence))
	for i, step := range steps {
		s.Require().Equal(domain.StepSequence[i], step.Name)
		s.Require().True(step.Completed)
	}

	stored, err := s.Ledger.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().True(stored.Delivered)
}

func (s *IntegrationTestSuite) TestChecklist_DoneRequiresAllFlags() {
	book := s.seedItem("Business Studies", "420.00", "0", true, true)
	order := s.createOrder(service.OrderLine{SKU: book.SKU, Quantity: 1})

	s.bootstrapFulfillment(order.ID, 4001)

	checklist, err := s.Tracking.GetChecklist(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(checklist.Items, 1)

	entry := checklist.Items[0]
	packaged, confirmed := true, true

	updated, err := s.Tracking.UpdateChecklistItem(s.Ctx, entry.ID, service.ChecklistItemUpdate{
		Packaged: &packaged,
	})
	s.Require().NoError(err)
	s.Require().True(updated.Packaged)
	s.Require().False(updated.CustomerConfirmed)

	checklist, err = s.Tracking.GetChecklist(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().False(checklist.Done())

	_, err = s.Tracking.UpdateChecklistItem(s.Ctx, entry.ID, service.ChecklistItemUpdate{
		CustomerConfirmed: &confirmed,
	})
	s.Require().NoError(err)

	// children alone do not finish the checklist
	checklist, err = s.Tracking.GetChecklist(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().False(checklist.Done())

	s.Require().NoError(s.Tracking.CompleteChecklist(s.Ctx, checklist.ID))

	checklist, err = s.Tracking.GetChecklist(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().True(checklist.Done())
}
