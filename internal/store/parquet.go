package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"slamtrader/internal/domain"
)

// Compile-time interface check.
var _ SnapshotStore = (*ParquetStore)(nil)

// ParquetStore implements SnapshotStore using Parquet files on disk:
//
//	<DataDir>/orders.parquet
//	<DataDir>/positions.parquet
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// OrderRecord is the Parquet schema for one single-order leg. Legs of a
// one-cancels-other order carry the composite's id in ParentID.
type OrderRecord struct {
	OrderID        string   `parquet:"order_id"`
	ParentID       string   `parquet:"parent_id"`
	Instruction    string   `parquet:"instruction"`
	Quantity       float64  `parquet:"quantity"`
	Symbol         string   `parquet:"symbol"`
	OrderType      string   `parquet:"order_type"`
	Price          *float64 `parquet:"price,optional"`
	Duration       string   `parquet:"duration"`
	PositionEffect string   `parquet:"position_effect"`
	Status         string   `parquet:"status"`
	Active         bool     `parquet:"active"`
}

// PositionRecord is the Parquet schema for a held position.
type PositionRecord struct {
	Symbol     string  `parquet:"symbol"`
	Long       float64 `parquet:"long"`
	Short      float64 `parquet:"short"`
	TradePrice float64 `parquet:"trade_price"`
}

// ---------------------------------------------------------------------------
// SnapshotStore implementation
// ---------------------------------------------------------------------------

// WriteOrders writes one record per single leg, depth first, in the order
// the orders are given.
func (s *ParquetStore) WriteOrders(_ context.Context, orders []domain.Order) error {
	var records []OrderRecord
	for _, o := range orders {
		records = appendOrderRecords(records, o, "")
	}
	if err := writeParquetFile(s.ordersPath(), records); err != nil {
		return fmt.Errorf("writing orders: %w", err)
	}
	return nil
}

// WritePositions writes one record per position, sorted by symbol.
func (s *ParquetStore) WritePositions(_ context.Context, book *domain.PositionBook) error {
	positions := book.Positions()
	records := make([]PositionRecord, 0, len(positions))
	for _, p := range positions {
		records = append(records, PositionRecord{
			Symbol:     p.Symbol(),
			Long:       p.Long().InexactFloat64(),
			Short:      p.Short().InexactFloat64(),
			TradePrice: p.TradePrice().InexactFloat64(),
		})
	}
	if err := writeParquetFile(s.positionsPath(), records); err != nil {
		return fmt.Errorf("writing positions: %w", err)
	}
	return nil
}

// ReadOrders reads the stored order snapshot.
func (s *ParquetStore) ReadOrders(_ context.Context) ([]OrderRecord, error) {
	return readParquetFile[OrderRecord](s.ordersPath())
}

// ReadPositions reads the stored position snapshot.
func (s *ParquetStore) ReadPositions(_ context.Context) ([]PositionRecord, error) {
	return readParquetFile[PositionRecord](s.positionsPath())
}

func (s *ParquetStore) ordersPath() string {
	return filepath.Join(s.DataDir, "orders.parquet")
}

func (s *ParquetStore) positionsPath() string {
	return filepath.Join(s.DataDir, "positions.parquet")
}

func appendOrderRecords(records []OrderRecord, o domain.Order, parent domain.OrderID) []OrderRecord {
	switch v := o.(type) {
	case *domain.Single:
		r := OrderRecord{
			OrderID:        string(v.ID()),
			ParentID:       string(parent),
			Instruction:    string(v.Instruction()),
			Quantity:       v.Quantity().InexactFloat64(),
			Symbol:         v.Symbol(),
			OrderType:      string(v.OrderType()),
			Duration:       string(v.Duration()),
			PositionEffect: string(v.PositionEffect()),
			Status:         string(v.Status()),
			Active:         v.IsActive(),
		}
		if price, ok := v.Price(); ok {
			f := price.InexactFloat64()
			r.Price = &f
		}
		return append(records, r)
	case *domain.OneCancelsOther:
		for _, c := range v.Children() {
			records = appendOrderRecords(records, c, v.ID())
		}
	}
	return records
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
