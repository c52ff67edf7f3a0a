// Package catalog implements the product CRUD and inventory operations
// against the two-table products/inventory schema.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"gitlab.connectwisedev.com/catalog-service/models"
	"gitlab.connectwisedev.com/catalog-service/pkg/database"
	"gitlab.connectwisedev.com/catalog-service/pkg/e"
)

// chunkSize bounds the number of rows per multi-row INSERT.
const chunkSize = 10

const productJoinQuery = `SELECT p.id, p.name, p.brand, p.price, p.image, i.size, i.quantity FROM products p LEFT JOIN inventory i ON i.product_id = p.id`

// querier is satisfied by both *sql.DB and *sql.Tx so the fetch helpers
// work inside and outside transactions.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Engine executes catalog operations through the connection manager, so
// every operation inherits the transient-retry protocol.
type Engine struct {
	db *database.Manager
}

// NewEngine returns an engine over the given connection manager.
func NewEngine(db *database.Manager) *Engine {
	return &Engine{db: db}
}

// ListProducts returns all products with their nested inventory, ordered
// by id. brand, when non-empty, is an exact-match filter. An empty
// catalog yields an empty slice, not an error.
func (eng *Engine) ListProducts(ctx context.Context, brand string) ([]models.Product, error) {
	const op = "catalog.ListProducts"

	products := []models.Product{}
	err := eng.db.WithConnection(ctx, func(db *sql.DB) error {
		query := productJoinQuery + ` ORDER BY p.id, i.size`
		args := []any{}
		if brand != "" {
			query = productJoinQuery + ` WHERE p.brand = $1 ORDER BY p.id, i.size`
			args = append(args, brand)
		}

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return e.Wrap(op, err)
		}
		defer rows.Close()

		products, err = scanProducts(rows)
		if err != nil {
			return e.Wrap(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns one product with its nested inventory.
func (eng *Engine) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	var product *models.Product
	err := eng.db.WithConnection(ctx, func(db *sql.DB) error {
		var err error
		product, err = fetchProduct(ctx, db, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// CreateProducts inserts the already-validated batch and returns the
// generated ids in submission order. The whole batch runs inside one
// transaction: a failure on any chunk leaves nothing behind.
func (eng *Engine) CreateProducts(ctx context.Context, items []models.ProductInput) ([]int, error) {
	const op = "catalog.CreateProducts"

	ids := make([]int, 0, len(items))
	err := eng.db.WithConnection(ctx, func(db *sql.DB) error {
		ids = ids[:0]
		return database.WithTx(ctx, db, func(tx *sql.Tx) error {
			for start := 0; start < len(items); start += chunkSize {
				end := start + chunkSize
				if end > len(items) {
					end = len(items)
				}
				chunkIDs, err := insertProducts(ctx, tx, items[start:end])
				if err != nil {
					return e.Wrap(op, err)
				}
				ids = append(ids, chunkIDs...)
			}
			for i, item := range items {
				if err := insertInventory(ctx, tx, ids[i], item.Inventory); err != nil {
					return e.Wrap(op, err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateProduct applies the present fields of in and, when an inventory
// list is supplied, replaces the product's inventory wholesale. All of
// it runs in one transaction; the updated product is re-fetched inside
// the same transaction before commit.
func (eng *Engine) UpdateProduct(ctx context.Context, id int, in *models.UpdateInput) (*models.Product, error) {
	const op = "catalog.UpdateProduct"

	var product *models.Product
	err := eng.db.WithConnection(ctx, func(db *sql.DB) error {
		return database.WithTx(ctx, db, func(tx *sql.Tx) error {
			if in.HasFields() {
				if err := updateFields(ctx, tx, id, in); err != nil {
					return err
				}
			} else if err := productExists(ctx, tx, id); err != nil {
				return err
			}

			if in.Inventory != nil {
				if _, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE product_id = $1`, id); err != nil {
					return e.Wrap(op, err)
				}
				if err := insertInventory(ctx, tx, id, *in.Inventory); err != nil {
					return e.Wrap(op, err)
				}
			}

			var err error
			product, err = fetchProduct(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// PatchInventory adjusts the quantity for one (product, size) pair.
// Absolute quantities and non-negative deltas upsert; negative deltas
// require an existing row and clamp the result at zero.
func (eng *Engine) PatchInventory(ctx context.Context, id int, in *models.PatchInput) (*models.InventoryLevel, error) {
	const op = "catalog.PatchInventory"

	level := &models.InventoryLevel{ProductID: id, Size: *in.Size}
	err := eng.db.WithConnection(ctx, func(db *sql.DB) error {
		if err := productExists(ctx, db, id); err != nil {
			return err
		}

		var row *sql.Row
		switch {
		case in.Quantity != nil:
			row = db.QueryRowContext(ctx, `INSERT INTO inventory (product_id, size, quantity) VALUES ($1, $2, $3) ON CONFLICT (product_id, size) DO UPDATE SET quantity = EXCLUDED.quantity RETURNING quantity`,
				id, *in.Size, *in.Quantity)
		case *in.Delta >= 0:
			row = db.QueryRowContext(ctx, `INSERT INTO inventory (product_id, size, quantity) VALUES ($1, $2, $3) ON CONFLICT (product_id, size) DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity RETURNING quantity`,
				id, *in.Size, *in.Delta)
		default:
			row = db.QueryRowContext(ctx, `UPDATE inventory SET quantity = GREATEST(0, quantity + $3) WHERE product_id = $1 AND size = $2 RETURNING quantity`,
				id, *in.Size, *in.Delta)
		}

		if err := row.Scan(&level.Quantity); err != nil {
			if in.Delta != nil && *in.Delta < 0 && errors.Is(err, sql.ErrNoRows) {
				return e.Validationf("cannot decrement nonexistent inventory row")
			}
			return e.Wrap(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

// DeleteProduct removes a product and all of its inventory rows in one
// transaction. The inventory delete is explicit; no cascade is assumed.
func (eng *Engine) DeleteProduct(ctx context.Context, id int) error {
	const op = "catalog.DeleteProduct"

	return eng.db.WithConnection(ctx, func(db *sql.DB) error {
		return database.WithTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE product_id = $1`, id); err != nil {
				return e.Wrap(op, err)
			}

			res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
			if err != nil {
				return e.Wrap(op, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return e.Wrap(op, err)
			}
			if affected == 0 {
				return e.ErrProductNotFound
			}
			return nil
		})
	})
}

// insertProducts issues one multi-row insert for up to chunkSize items
// and returns the generated ids in order.
func insertProducts(ctx context.Context, q querier, items []models.ProductInput) ([]int, error) {
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*4)
	for _, item := range items {
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4))
		args = append(args, item.Name, item.Brand, *item.Price, nullString(item.Image))
	}

	query := fmt.Sprintf("INSERT INTO products (name, brand, price, image) VALUES %s RETURNING id",
		strings.Join(placeholders, ", "))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0, len(items))
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) != len(items) {
		return nil, fmt.Errorf("inserted %d products, expected %d", len(ids), len(items))
	}
	return ids, nil
}

// insertInventory inserts the given size/quantity entries for one
// product in chunks. Entries with a null size are skipped.
func insertInventory(ctx context.Context, q querier, productID int, entries []models.InventoryInput) error {
	valid := make([]models.InventoryInput, 0, len(entries))
	for _, entry := range entries {
		if entry.Size != nil {
			valid = append(valid, entry)
		}
	}

	for start := 0; start < len(valid); start += chunkSize {
		end := start + chunkSize
		if end > len(valid) {
			end = len(valid)
		}
		chunk := valid[start:end]

		placeholders := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk)*3)
		for _, entry := range chunk {
			placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d)",
				len(args)+1, len(args)+2, len(args)+3))
			args = append(args, productID, *entry.Size, entry.Quantity)
		}

		query := fmt.Sprintf("INSERT INTO inventory (product_id, size, quantity) VALUES %s",
			strings.Join(placeholders, ", "))
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

// updateFields builds the dynamic SET clause from the present fields and
// applies it, reporting not-found when no row matched.
func updateFields(ctx context.Context, q querier, id int, in *models.UpdateInput) error {
	const op = "catalog.updateFields"

	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Brand != nil {
		add("brand", *in.Brand)
	}
	if in.Price != nil {
		add("price", *in.Price)
	}
	if in.Image != nil {
		add("image", nullString(in.Image))
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return e.Wrap(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return e.Wrap(op, err)
	}
	if affected == 0 {
		return e.ErrProductNotFound
	}
	return nil
}

// productExists verifies the product row is present.
func productExists(ctx context.Context, q querier, id int) error {
	const op = "catalog.productExists"

	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return e.ErrProductNotFound
	}
	if err != nil {
		return e.Wrap(op, err)
	}
	return nil
}

// fetchProduct loads one product and its inventory through the join.
func fetchProduct(ctx context.Context, q querier, id int) (*models.Product, error) {
	const op = "catalog.fetchProduct"

	rows, err := q.QueryContext(ctx, productJoinQuery+` WHERE p.id = $1 ORDER BY i.size`, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(products) == 0 {
		return nil, e.ErrProductNotFound
	}
	return &products[0], nil
}

// scanProducts groups join rows (ordered by product id) into products
// with nested inventory. Null size/quantity pairs mean the product has
// no inventory rows and contribute nothing to the nested list.
func scanProducts(rows *sql.Rows) ([]models.Product, error) {
	products := []models.Product{}
	var current *models.Product

	for rows.Next() {
		var (
			p        models.Product
			imageSQL sql.NullString
			size     decimal.NullDecimal
			quantity sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Price, &imageSQL, &size, &quantity); err != nil {
			return nil, err
		}
		if imageSQL.Valid {
			p.Image = &imageSQL.String
		}

		if current == nil || current.ID != p.ID {
			p.Inventory = []models.SizeQuantity{}
			products = append(products, p)
			current = &products[len(products)-1]
		}
		if size.Valid && quantity.Valid {
			current.Inventory = append(current.Inventory, models.SizeQuantity{
				Size:     size.Decimal,
				Quantity: int(quantity.Int64),
			})
		}
	}
	return products, rows.Err()
}

// nullString converts an optional string to sql.NullString for nullable
// columns; empty strings store as NULL.
func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}
