// Package repository is the sqlite store behind the development backend.
package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrProductNotFound = errors.New("product not found")
	ErrNoItems         = errors.New("transaction has no items")
	ErrUnknownProduct  = errors.New("transaction references an unknown product")
	ErrInvalidQuantity = errors.New("transaction line has a negative quantity")
	// ErrIdempotencyConflict means the key was already used for a different request.
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// sqlite allows one writer; ":memory:" databases are also per connection.
	db.SetMaxOpenConns(1)
	return &Repository{db: db}, nil
}

// RunMigrations applies the embedded schema.
func (r *Repository) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(r.db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) GetProductByCode(ctx context.Context, code string) (*domain.Product, error) {
	query := `SELECT prd_id, prd_code, prd_name, prd_price FROM products WHERE prd_code = ?`

	p := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(&p.ID, &p.Code, &p.Name, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by code: %w", err)
	}
	return p, nil
}

// CreateTransaction stores the header and detail lines of a purchase and returns its
// total. A line without quantity counts once. When idempotencyKey was already used for
// the same request the stored total is returned and nothing is written; for another
// request ErrIdempotencyConflict is returned.
func (r *Repository) CreateTransaction(ctx context.Context, req domain.PurchaseRequest, idempotencyKey string) (int64, error) {
	if len(req.Items) == 0 {
		return 0, ErrNoItems
	}

	hash, err := requestHash(req)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if idempotencyKey != "" {
		total, found, err := storedTotal(ctx, tx, idempotencyKey, hash)
		if err != nil {
			return 0, err
		}
		if found {
			return total, nil
		}
	}

	productIDs := make([]int64, len(req.Items))
	var total int64
	for i, item := range req.Items {
		if item.Quantity < 0 {
			return 0, fmt.Errorf("%w: line %d", ErrInvalidQuantity, i)
		}
		err := tx.QueryRowContext(ctx, `SELECT prd_id FROM products WHERE prd_code = ?`, item.Code).Scan(&productIDs[i])
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", ErrUnknownProduct, item.Code)
		}
		if err != nil {
			return 0, fmt.Errorf("query product %s: %w", item.Code, err)
		}
		total += item.Price * int64(lineQuantity(item))
	}

	var key any
	if idempotencyKey != "" {
		key = idempotencyKey
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (emp_cd, store_cd, pos_no, total_amt, idempotency_key, request_hash) VALUES (?, ?, ?, ?, ?, ?)`,
		req.EmpCode, req.StoreCode, req.PosNo, total, key, hash)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			_ = tx.Rollback()
			return r.replay(ctx, idempotencyKey, hash)
		}
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	trdID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read transaction id: %w", err)
	}

	for i, item := range req.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_details (trd_id, dtl_id, prd_id, prd_code, prd_name, prd_price, quantity)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			trdID, i+1, productIDs[i], item.Code, item.Name, item.Price, lineQuantity(item))
		if err != nil {
			return 0, fmt.Errorf("insert transaction detail %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return total, nil
}

// CountTransactions returns how many transactions are stored.
func (r *Repository) CountTransactions(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) replay(ctx context.Context, idempotencyKey, hash string) (int64, error) {
	total, found, err := storedTotal(ctx, r.db, idempotencyKey, hash)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("idempotency key %s conflicted but no transaction found", idempotencyKey)
	}
	return total, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// storedTotal looks up the transaction stored under idempotencyKey. Rows written before
// request hashes existed match any request.
func storedTotal(ctx context.Context, q queryRower, idempotencyKey, hash string) (int64, bool, error) {
	var total int64
	var stored sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT total_amt, request_hash FROM transactions WHERE idempotency_key = ?`, idempotencyKey).Scan(&total, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query transaction by idempotency key: %w", err)
	}
	if stored.Valid && stored.String != hash {
		return 0, false, fmt.Errorf("%w: %s", ErrIdempotencyConflict, idempotencyKey)
	}
	return total, true, nil
}

// requestHash fingerprints the parts of a request that decide what is stored.
func requestHash(req domain.PurchaseRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request for hashing: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func lineQuantity(item domain.PurchaseItem) int {
	if item.Quantity == 0 {
		return 1
	}
	return item.Quantity
}
