package service

import (
	"context"
	"errors"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/repository"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ChecklistItemUpdate struct {
	Packaged          *bool `json:"packaged"`
	CustomerConfirmed *bool `json:"customer_confirmed"`
}

type TrackingService interface {
	InitializeFulfillment(ctx context.Context, tx pgx.Tx, orderID string) error
	ListSteps(ctx context.Context, orderID string) ([]domain.OrderStep, error)
	CompleteStep(ctx context.Context, orderID string, name domain.StepName) ([]domain.OrderStep, error)
	GetChecklist(ctx context.Context, orderID string) (*domain.OrderChecklist, error)
	CompleteChecklist(ctx context.Context, checklistID int64) error
	UpdateChecklistItem(ctx context.Context, entryID int64, update ChecklistItemUpdate) (*domain.OrderItemChecklist, error)
}

type trackingService struct {
	pool         *pgxpool.Pool
	logger       *zap.Logger
	orderRepo    repository.OrderRepository
	trackingRepo repository.TrackingRepository
	tracer       trace.Tracer
}

func NewTrackingService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	trackingRepo repository.TrackingRepository,
) TrackingService {
	return &trackingService{
		pool:         pool,
		logger:       logger,
		orderRepo:    orderRepo,
		trackingRepo: trackingRepo,
		tracer:       otel.Tracer("tracking_service"),
	}
}

// InitializeFulfillment bootstraps the step machine and packaging checklist
// for a freshly paid order. Runs inside the caller's transaction so the
// existence guard and the inserts commit atomically with the event claim.
// Orders that already have steps are left untouched.
func (s *trackingService) InitializeFulfillment(ctx context.Context, tx pgx.Tx, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "TrackingService.InitializeFulfillment")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	hasSteps, err := s.trackingRepo.HasSteps(ctx, tx, orderID)
	if err != nil {
		return err
	}
	hasChecklist, err := s.trackingRepo.HasChecklist(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if hasSteps && hasChecklist {
		ctxlog.Info(ctx, s.logger, "Fulfillment already initialized, skipping",
			zap.String("order_id", orderID),
		)

		return nil
	}

	if !hasSteps {
		step := &domain.OrderStep{
			OrderID: orderID,
			Name:    domain.StepCreated,
		}
		if err := s.trackingRepo.CreateStep(ctx, tx, step); err != nil {
			return err
		}
	}

	if !hasChecklist {
		lines, err := s.orderRepo.ListItems(ctx, tx, orderID)
		if err != nil {
			return err
		}

		checklist := &domain.OrderChecklist{
			OrderID: orderID,
			Task:    "Package order items",
		}
		for _, line := range lines {
			checklist.Items = append(checklist.Items, domain.OrderItemChecklist{
				OrderItemID: line.ID,
			})
		}

		if err := s.trackingRepo.CreateChecklist(ctx, tx, checklist); err != nil {
			return err
		}
	}

	ctxlog.Info(ctx, s.logger, "Fulfillment initialized",
		zap.String("order_id", orderID),
	)

	return nil
}

func (s *trackingService) ListSteps(ctx context.Context, orderID string) ([]domain.OrderStep, error) {
	ctx, span := s.tracer.Start(ctx, "TrackingService.ListSteps")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	if _, err := s.orderRepo.Get(ctx, orderID); err != nil {
		return nil, err
	}

	return s.trackingRepo.ListSteps(ctx, orderID)
}

// CompleteStep marks a step done and materializes its successor, keeping the
// step rows a strict prefix of the fixed sequence. Completing an already
// completed step is a no-op.
func (s *trackingService) CompleteStep(ctx context.Context, orderID string, name domain.StepName) ([]domain.OrderStep, error) {
	ctx, span := s.tracer.Start(ctx, "TrackingService.CompleteStep")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("step_name", string(name)),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		ctxlog.Warn(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return nil, err
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.Warn(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	step, err := s.trackingRepo.GetStepForUpdate(ctx, tx, orderID, name)
	if err != nil {
		return nil, err
	}

	if !step.Completed {
		if err := s.trackingRepo.CompleteStep(ctx, tx, step.ID); err != nil {
			return nil, err
		}

		if next, ok := domain.NextStep(step.Name); ok {
			nextStep := &domain.OrderStep{
				OrderID: orderID,
				Name:    next,
			}
			if err := s.trackingRepo.CreateStep(ctx, tx, nextStep); err != nil {
				return nil, err
			}
		}

		if step.Name == domain.StepDelivered {
			order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
			if err != nil {
				return nil, err
			}

			order.Delivered = true
			if err := s.orderRepo.UpdateDelivered(ctx, tx, order); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, err
	}

	return s.trackingRepo.ListSteps(ctx, orderID)
}

func (s *trackingService) GetChecklist(ctx context.Context, orderID string) (*domain.OrderChecklist, error) {
	ctx, span := s.tracer.Start(ctx, "TrackingService.GetChecklist")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	return s.trackingRepo.GetChecklistByOrder(ctx, orderID)
}

func (s *trackingService) CompleteChecklist(ctx context.Context, checklistID int64) error {
	ctx, span := s.tracer.Start(ctx, "TrackingService.CompleteChecklist")
	defer span.End()

	span.SetAttributes(attribute.Int64("checklist_id", checklistID))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.Warn(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	if err := s.trackingRepo.CompleteChecklist(ctx, tx, checklistID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateChecklistItem applies partial flag updates to one checklist entry.
func (s *trackingService) UpdateChecklistItem(ctx context.Context, entryID int64, update ChecklistItemUpdate) (*domain.OrderItemChecklist, error) {
	ctx, span := s.tracer.Start(ctx, "TrackingService.UpdateChecklistItem")
	defer span.End()

	span.SetAttributes(attribute.Int64("entry_id", entryID))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.Warn(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	entry, err := s.trackingRepo.GetItemChecklistForUpdate(ctx, tx, entryID)
	if err != nil {
		return nil, err
	}

	if update.Packaged != nil {
		entry.Packaged = *update.Packaged
	}
	if update.CustomerConfirmed != nil {
		entry.CustomerConfirmed = *update.CustomerConfirmed
	}

	if err := s.trackingRepo.UpdateItemChecklist(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return entry, nil
}
