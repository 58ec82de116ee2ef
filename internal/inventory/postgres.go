// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package inventory

import (
	"context"
	_ "embed"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"retail-agent/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// PgStore PostgreSQL 实现
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore 连接 PostgreSQL 并确保表结构存在
func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("初始化库存表结构失败: %w", err)
	}
	return &PgStore{pool: pool}, nil
}

// Close 关闭连接池
func (s *PgStore) Close() {
	s.pool.Close()
}

func (s *PgStore) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT sku, name, category, price FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.Category, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PgStore) GetProduct(ctx context.Context, sku string) (Product, error) {
	var p Product
	err := s.pool.QueryRow(ctx, `SELECT sku, name, category, price FROM products WHERE sku = $1`, sku).
		Scan(&p.SKU, &p.Name, &p.Category, &p.Price)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return Product{}, errors.NotFoundf("product %s", sku)
	}
	return p, err
}

func (s *PgStore) UpsertProduct(ctx context.Context, p Product) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO products (sku, name, category, price) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category, price = EXCLUDED.price`,
		p.SKU, p.Name, p.Category, p.Price)
	return err
}

func (s *PgStore) ListStockLevels(ctx context.Context) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, `SELECT sku, stock_on_hand FROM stock_levels ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockLevel
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.SKU, &l.StockOnHand); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PgStore) GetStockLevel(ctx context.Context, sku string) (StockLevel, error) {
	l := StockLevel{SKU: sku}
	err := s.pool.QueryRow(ctx, `SELECT stock_on_hand FROM stock_levels WHERE sku = $1`, sku).Scan(&l.StockOnHand)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return StockLevel{}, errors.NotFoundf("stock level for %s", sku)
	}
	return l, err
}

func (s *PgStore) SetStockLevel(ctx context.Context, sku string, onHand int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stock_levels (sku, stock_on_hand) VALUES ($1, $2)
		 ON CONFLICT (sku) DO UPDATE SET stock_on_hand = EXCLUDED.stock_on_hand`,
		sku, onHand)
	return mapPgErr(err)
}

func (s *PgStore) AdjustStockLevel(ctx context.Context, sku string, delta int) (StockLevel, error) {
	l := StockLevel{SKU: sku}
	err := s.pool.QueryRow(ctx,
		`UPDATE stock_levels SET stock_on_hand = GREATEST(stock_on_hand + $2, 0) WHERE sku = $1 RETURNING stock_on_hand`,
		sku, delta).Scan(&l.StockOnHand)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return StockLevel{}, errors.NotFoundf("stock level for %s", sku)
	}
	return l, err
}

func (s *PgStore) InsertSale(ctx context.Context, t SalesTransaction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sales_transactions (transaction_id, sku, ts, quantity) VALUES ($1, $2, $3, $4)`,
		t.TransactionID, t.SKU, t.Timestamp, t.Quantity)
	return mapPgErr(err)
}

func (s *PgStore) ListSales(ctx context.Context, f SalesFilter) ([]SalesTransaction, error) {
	where, args := []string{"TRUE"}, []any{}
	if f.SKU != "" {
		args = append(args, f.SKU)
		where = append(where, fmt.Sprintf("sku = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		where = append(where, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if !f.Until.IsZero() {
		args = append(args, f.Until)
		where = append(where, fmt.Sprintf("ts < $%d", len(args)))
	}
	q := `SELECT transaction_id, sku, ts, quantity FROM sales_transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY ts DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SalesTransaction
	for rows.Next() {
		var t SalesTransaction
		if err := rows.Scan(&t.TransactionID, &t.SKU, &t.Timestamp, &t.Quantity); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PgStore) InsertOrder(ctx context.Context, o Order) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO product_orders (order_id, sku, order_date, quantity, status) VALUES ($1, $2, $3, $4, $5)`,
		o.OrderID, o.SKU, o.OrderDate, o.Quantity, string(o.Status))
	return mapPgErr(err)
}

func (s *PgStore) GetOrder(ctx context.Context, orderID string) (Order, error) {
	return scanOrder(s.pool.QueryRow(ctx,
		`SELECT order_id, sku, order_date, quantity, status FROM product_orders WHERE order_id = $1`, orderID), orderID)
}

func (s *PgStore) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	where, args := []string{"TRUE"}, []any{}
	if f.SKU != "" {
		args = append(args, f.SKU)
		where = append(where, fmt.Sprintf("sku = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.Before.IsZero() {
		args = append(args, f.Before)
		where = append(where, fmt.Sprintf("order_date < $%d", len(args)))
	}
	q := `SELECT order_id, sku, order_date, quantity, status FROM product_orders WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY order_date DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		var status string
		if err := rows.Scan(&o.OrderID, &o.SKU, &o.OrderDate, &o.Quantity, &status); err != nil {
			return nil, err
		}
		o.Status = OrderStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateOrderStatus 在同一事务内更新状态并入库
func (s *PgStore) UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) (Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx,
		`SELECT order_id, sku, order_date, quantity, status FROM product_orders WHERE order_id = $1 FOR UPDATE`, orderID), orderID)
	if err != nil {
		return Order{}, err
	}
	// 行锁内复核，并发的终态转换只有一个能成功
	if o.Status == status {
		return o, nil
	}
	if o.Status != OrderPending {
		return Order{}, errors.Wrapf(errors.ErrConflict, "order %s is already %s", orderID, o.Status)
	}
	if status == OrderCompleted {
		if _, err := tx.Exec(ctx,
			`INSERT INTO stock_levels (sku, stock_on_hand) VALUES ($1, $2)
			 ON CONFLICT (sku) DO UPDATE SET stock_on_hand = stock_levels.stock_on_hand + EXCLUDED.stock_on_hand`,
			o.SKU, o.Quantity); err != nil {
			return Order{}, err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE product_orders SET status = $2 WHERE order_id = $1`, orderID, string(status)); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	o.Status = status
	return o, nil
}

func scanOrder(row pgx.Row, orderID string) (Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.OrderID, &o.SKU, &o.OrderDate, &o.Quantity, &status)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return Order{}, errors.NotFoundf("order %s", orderID)
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = OrderStatus(status)
	return o, nil
}

// mapPgErr 将唯一约束/外键错误映射为哨兵错误
func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return errors.Wrap(errors.ErrConflict, pgErr.Detail)
	case "23503":
		return errors.Wrap(errors.ErrNotFound, pgErr.Detail)
	case "23514":
		return errors.Wrap(errors.ErrInvalidArg, pgErr.Message)
	}
	return err
}
