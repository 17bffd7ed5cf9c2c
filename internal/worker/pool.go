package worker

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/storefront-ledger/internal/config"
	"github.com/storefront-ledger/internal/domain/order"
)

// SettlementPool runs settlements on a bounded ants pool. The consumer loop
// blocks per message until its settlement finishes, so offsets are still
// committed in order; the pool bounds how many database transactions the
// worker holds open at once across consumer instances.
type SettlementPool struct {
	base   Settler
	pool   *ants.Pool
	logger *slog.Logger
}

func NewSettlementPool(base Settler, cfg config.WorkerPoolConfig, logger *slog.Logger) (*SettlementPool, error) {
	pool, err := ants.NewPool(cfg.Size)
	if err != nil {
		return nil, err
	}

	return &SettlementPool{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// Settle submits the settlement to the pool and waits for its result
func (p *SettlementPool) Settle(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID, correlationID string) (*order.Order, error) {
	type result struct {
		order *order.Order
		err   error
	}
	resultChan := make(chan result, 1)

	err := p.pool.Submit(func() {
		o, err := p.base.Settle(ctx, orderID, actorID, correlationID)
		resultChan <- result{order: o, err: err}
	})
	if err != nil {
		p.logger.Error("Failed to submit settlement to worker pool",
			"order_id", orderID.String(),
			"error", err,
		)
		return nil, err
	}

	res := <-resultChan
	return res.order, res.err
}

// Shutdown releases the pool after in-flight settlements finish
func (p *SettlementPool) Shutdown() {
	p.logger.Info("Shutting down settlement worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

// Running returns the number of busy workers
func (p *SettlementPool) Running() int {
	return p.pool.Running()
}

// Capacity returns the pool size
func (p *SettlementPool) Capacity() int {
	return p.pool.Cap()
}
