package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type TrackingRepository interface {
	HasSteps(ctx context.Context, tx pgx.Tx, orderID string) (bool, error)
	CreateStep(ctx context.Context, tx pgx.Tx, step *domain.OrderStep) error
	GetStepForUpdate(ctx context.Context, tx pgx.Tx, orderID string, name domain.StepName) (*domain.OrderStep, error)
	CompleteStep(ctx context.Context, tx pgx.Tx, stepID int64) error
	ListSteps(ctx context.Context, orderID string) ([]domain.OrderStep, error)
	HasChecklist(ctx context.Context, tx pgx.Tx, orderID string) (bool, error)
	CreateChecklist(ctx context.Context, tx pgx.Tx, checklist *domain.OrderChecklist) error
	GetChecklistByOrder(ctx context.Context, orderID string) (*domain.OrderChecklist, error)
	CompleteChecklist(ctx context.Context, tx pgx.Tx, checklistID int64) error
	GetItemChecklistForUpdate(ctx context.Context, tx pgx.Tx, entryID int64) (*domain.OrderItemChecklist, error)
	UpdateItemChecklist(ctx context.Context, tx pgx.Tx, entry *domain.OrderItemChecklist) error
}

type trackingRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewTrackingRepository(pool *pgxpool.Pool, logger *zap.Logger) TrackingRepository {
	return &trackingRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/tracking_repo"),
	}
}

func (r *trackingRepo) HasSteps(ctx context.Context, tx pgx.Tx, orderID string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "TrackingRepository.HasSteps")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM order_steps WHERE order_id = $1)`

	if err := tx.QueryRow(ctx, query, orderID).Scan(&exists); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check order steps: %w", err)
	}

	return exists, nil
}

func (r *trackingRepo) CreateStep(ctx context.Context, tx pgx.Tx, step *domain.OrderStep) error {
	ctx, span := r.tracer.Start(ctx, "TrackingRepository.CreateStep")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", step.OrderID),
		attribute.String("step_name", string(step.Name)),
	)

	query := `
		INSERT INTO order_steps (order_id, step_name, completed)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	if err := tx.QueryRow(ctx, query, step.OrderID, string(step.Name), step.Completed).
		Scan(&step.ID, &step.CreatedAt); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert order step: %w", err)
	}

	return nil
}

func (r *trackingRepo) GetStepForUpdate(ctx context.Context, tx pgx.Tx, orderID string, name domain.StepName) (*domain.OrderStep, error) {
	ctx, span := r.tracer.Start(ctx, "TrackingRepository.GetStepForUpdate")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("step_name", string(name)),
	)

	var step domain.OrderStep
	query := `
		SELECT id, order_id, step_name, completed, created_at
		FROM order_steps
		WHERE order_id = $1 AND step_name = $2
		FOR UPDATE
	`

	if err := tx.QueryRow(ctx, query, orderID, string(name)).Scan(
		&step.ID,
		&step.OrderID,
		&step.Name,
		&step.Completed,
		&step.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStepNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock order step: %w", err)
	}

	return &step, nil
}

func (r *trackingRepo) CompleteStep(ctx context.Context, tx pgx.Tx, stepID int64) error {
	ctx, span := r.tracer.Start(ctx, "TrackingRepository.CompleteStep")
	defer span.End()

	query := `UPDATE order_steps SET completed = TRUE WHERE id = $1`

	tag, err := tx.Exec(ctx, query, stepID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to complete order step: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrStepNotFound
	}

	return nil
}

func (r *trackingRepo) ListSteps(ctx context.Context, orderID string) ([]domain.OrderStep, error) {
	ctx, span := r.tracer.Start(ctx, "TrackingRepository.ListSteps")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	query := `
		SELECT id, order_id, step_name, completed, created_at
		FROM order_steps
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query order steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.OrderStep
	for rows.Next() {
		var step domain.OrderStep
		if err := rows.Scan(&step.ID, &step.OrderID, &step.Name, &step.Completed, &step.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan order step: %w", err)
		}

		steps = append(steps, step)
	}

	return steps, rows.Err()
}

func (r *trackingRepo) HasChecklist(ctx context.Context, tx pgx.Tx, orderID string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "TrackingRepository.HasChecklist")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM order_checklists WHERE order_id = $1)`

	if err := tx.QueryRow(ctx, query, orderID).Scan(&exists); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check order checklist: %w", err)
	}

	return exists, nil
}

// CreateChecklist inserts the checklist header and one child entry per
// attached line in a single transaction.
func (r *trackingRepo) CreateChecklist(ctx context.Context, tx pgx.Tx, checklist *domain.OrderChecklist) error {
	ctx, span := r.tracer.Start(ctx, "TrackingRepository.CreateChecklist")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", checklist.OrderID))

	query := `
		INSERT INTO order_checklists (order_id, task, completed)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := tx.QueryRow(ctx, query, checklist.OrderID, checklist.Task, checklist.Completed).
		Scan(&checklist.ID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert order checklist: %w", err)
	}

	entryQuery := `
		INSERT INTO order_item_checklists (checklist_id, order_item_id, packaged, customer_confirmed)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	for i := range checklist.Items {
		entry := &checklist.Items[i]
		entry.ChecklistID = checklist.ID

		if err := tx.QueryRow(ctx, entryQuery,
			entry.ChecklistID,
			entry.OrderItemID,
			entry.Packaged,
			entry.CustomerConfirmed,
		).Scan(&entry.ID); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to insert item checklist entry: %w", err)
		}
	}

	return nil
}

func (r *trackingRepo) GetChecklistByOrder(ctx context.Context, orderID string) (*domain.OrderChecklist, error) {
	ctx, span := r.tracer.Start(ctx, "TrackingRepository.GetChecklistByOrder")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	var checklist domain.OrderChecklist
	query := `
		SELECT id, order_id, task, completed
		FROM order_checklists
		WHERE order_id = $1
	`

	if err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&checklist.ID,
		&checklist.OrderID,
		&checklist.Task,
		&checklist.Completed,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChecklistNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query order checklist: %w", err)
	}

	entryQuery := `
		SELECT id, checklist_id, order_item_id, packaged, customer_confirmed
		FROM order_item_checklists
		WHERE checklist_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, entryQuery, checklist.ID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query item checklist entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.OrderItemChecklist
		if err := rows.Scan(
			&entry.ID,
			&entry.ChecklistID,
			&entry.OrderItemID,
			&entry.Packaged,
			&entry.CustomerConfirmed,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan item checklist entry: %w", err)
		}

		checklist.Items = append(checklist.Items, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &checklist, nil
}

func (r *trackingRepo) CompleteChecklist(ctx context.Context, tx pgx.Tx, checklistID int64) error {
	ctx, span := r.tracer.Start(ctx, "TrackingRepository.CompleteChecklist")
	defer span.End()

	query := `UPDATE order_checklists SET completed = TRUE WHERE id = $1`

	tag, err := tx.Exec(ctx, query, checklistID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to complete checklist: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrChecklistNotFound
	}

	return nil
}

func (r *trackingRepo) GetItemChecklistForUpdate(ctx context.Context, tx pgx.Tx, entryID int64) (*domain.OrderItemChecklist, error) {
	ctx, span := r.tracer.Start(ctx, "TrackingRepository.GetItemChecklistForUpdate")
	defer span.End()

	span.SetAttributes(attribute.Int64("entry_id", entryID))

	var entry domain.OrderItemChecklist
	query := `
		SELECT id, checklist_id, order_item_id, packaged, customer_confirmed
		FROM order_item_checklists
		WHERE id = $1
		FOR UPDATE
	`

	if err := tx.QueryRow(ctx, query, entryID).Scan(
		&entry.ID,
		&entry.ChecklistID,
		&entry.OrderItemID,
		&entry.Packaged,
		&entry.CustomerConfirmed,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChecklistNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock item checklist entry: %w", err)
	}

	return &entry, nil
}

func (r *trackingRepo) UpdateItemChecklist(ctx context.Context, tx pgx.Tx, entry *domain.OrderItemChecklist) error {
	ctx, span := r.tracer.Start(ctx, "TrackingRepository.UpdateItemChecklist")
	defer span.End()

	query := `
		UPDATE order_item_checklists
		SET packaged = $1, customer_confirmed = $2
		WHERE id = $3
	`

	tag, err := tx.Exec(ctx, query, entry.Packaged, entry.CustomerConfirmed, entry.ID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update item checklist entry: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrChecklistNotFound
	}

	return nil
}
