package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brojonat/salesbot/service/sales"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrSaleNotFound is returned when no archived sale matches a signature.
var ErrSaleNotFound = errors.New("sale not found")

// Schema creates the sales archive. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS sales (
    signature           TEXT PRIMARY KEY,
    project_address     TEXT NOT NULL,
    marketplace         TEXT NOT NULL,
    marketplace_account TEXT NOT NULL,
    mint                TEXT NOT NULL,
    title               TEXT NOT NULL,
    image_url           TEXT,
    price_sol           NUMERIC(30, 9) NOT NULL,
    lamports            BIGINT NOT NULL,
    block_time          TIMESTAMPTZ NOT NULL,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS sales_project_block_time_idx
    ON sales (project_address, block_time DESC);
`

// Store provides database operations for the sales archive.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the sales table and index if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Sale is an archived marketplace sale.
type Sale struct {
	Signature          string
	ProjectAddress     string
	Marketplace        string
	MarketplaceAccount string
	Mint               string
	Title              string
	ImageURL           *string
	Price              decimal.Decimal
	Lamports           int64
	BlockTime          time.Time
	CreatedAt          time.Time
}

// CreateSaleParams contains the parameters for archiving a sale.
type CreateSaleParams struct {
	Signature          string
	ProjectAddress     string
	Marketplace        string
	MarketplaceAccount string
	Mint               string
	Title              string
	ImageURL           *string
	Price              decimal.Decimal
	Lamports           int64
	BlockTime          time.Time
}

// ListSalesParams contains filter and pagination parameters.
type ListSalesParams struct {
	ProjectAddress string // empty lists every project
	Marketplace    string // empty lists every marketplace
	Limit          int32
	Offset         int32
}

const saleColumns = `signature, project_address, marketplace, marketplace_account, mint,
    title, image_url, price_sol::text, lamports, block_time, created_at`

// CreateSale archives a sale. It reports false when the signature was
// already archived; the existing row is left untouched.
func (s *Store) CreateSale(ctx context.Context, params CreateSaleParams) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO sales (signature, project_address, marketplace, marketplace_account, mint,
    title, image_url, price_sol, lamports, block_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10)
ON CONFLICT (signature) DO NOTHING`,
		params.Signature,
		params.ProjectAddress,
		params.Marketplace,
		params.MarketplaceAccount,
		params.Mint,
		params.Title,
		params.ImageURL,
		params.Price.String(),
		params.Lamports,
		params.BlockTime,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert sale %s: %w", params.Signature, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetSale retrieves a sale by its signature.
func (s *Store) GetSale(ctx context.Context, signature string) (*Sale, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE signature = $1`, signature)
	sale, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale %s: %w", signature, err)
	}
	return sale, nil
}

// ListSales returns archived sales, newest block time first.
func (s *Store) ListSales(ctx context.Context, params ListSalesParams) ([]*Sale, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
SELECT `+saleColumns+`
FROM sales
WHERE ($1::text = '' OR project_address = $1)
  AND ($2::text = '' OR marketplace = $2)
ORDER BY block_time DESC, signature
LIMIT $3 OFFSET $4`,
		params.ProjectAddress, params.Marketplace, limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var out []*Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		out = append(out, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sales: %w", err)
	}
	return out, nil
}

func scanSale(row pgx.Row) (*Sale, error) {
	var (
		sale  Sale
		price string
	)
	if err := row.Scan(
		&sale.Signature,
		&sale.ProjectAddress,
		&sale.Marketplace,
		&sale.MarketplaceAccount,
		&sale.Mint,
		&sale.Title,
		&sale.ImageURL,
		&price,
		&sale.Lamports,
		&sale.BlockTime,
		&sale.CreatedAt,
	); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, err)
	}
	sale.Price = p
	return &sale, nil
}

// ParamsFromSale maps a sale event onto archive parameters.
func ParamsFromSale(sale *sales.SaleEvent) CreateSaleParams {
	var image *string
	if sale.ImageURL != "" {
		image = &sale.ImageURL
	}
	return CreateSaleParams{
		Signature:          sale.Signature,
		ProjectAddress:     sale.Address,
		Marketplace:        sale.Marketplace,
		MarketplaceAccount: sale.MarketplaceAccount,
		Mint:               sale.Mint,
		Title:              sale.Title,
		ImageURL:           image,
		Price:              sale.Price,
		Lamports:           int64(sale.Lamports),
		BlockTime:          sale.Timestamp,
	}
}

// NotifySale archives sale. It satisfies sales.Notifier; a duplicate
// signature is not an error.
func (s *Store) NotifySale(ctx context.Context, sale *sales.SaleEvent) error {
	_, err := s.CreateSale(ctx, ParamsFromSale(sale))
	return err
}
