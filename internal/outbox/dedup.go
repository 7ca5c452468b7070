package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// ProcessWithDeduplication runs action at most once per event id. The id is
// claimed in the processed_events table inside a transaction; a duplicate
// claim means another delivery already handled the event and the action is
// skipped. The claim only commits when the action succeeds, so a failed
// action leaves the event claimable for redelivery.
func ProcessWithDeduplication(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger *zap.Logger,
	eventID int64,
	action func(ctx context.Context, tx pgx.Tx) error,
) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.Error(cleanupCtx, logger, "Error rolling back dedup transaction", zap.Error(err))
		}
	}()

	query := `
		INSERT INTO processed_events (event_id)
		VALUES ($1)
	`

	if _, err := tx.Exec(ctx, query, eventID); err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == uniqueViolation {
			ctxlog.Info(ctx, logger, "Event already processed, skipping",
				zap.Int64("event_id", eventID),
			)

			return nil
		}

		return err
	}

	if err := action(ctx, tx); err != nil {
		return fmt.Errorf("event %d action failed: %w", eventID, err)
	}

	return tx.Commit(ctx)
}
