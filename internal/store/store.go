// Package store persists account snapshots of orders and positions.
package store

import (
	"context"

	"slamtrader/internal/domain"
)

// SnapshotStore persists point-in-time account snapshots.
type SnapshotStore interface {
	// WriteOrders replaces the stored order snapshot. Orders are kept in
	// the order given.
	WriteOrders(ctx context.Context, orders []domain.Order) error

	// WritePositions replaces the stored position snapshot.
	WritePositions(ctx context.Context, book *domain.PositionBook) error
}
