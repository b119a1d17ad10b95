package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coredatabase "github.com/m3rciful/catalogbot/core/database"
	"github.com/m3rciful/catalogbot/internal/store"
)

// Import applies doc in one transaction: every record is upserted by id,
// memberships are inserted with duplicates ignored, and id-less photos are
// added unless the same product/file pair exists. Any failure rolls the
// whole call back.
func (e *Engine) Import(ctx context.Context, doc Document) (Stats, error) {
	start := time.Now()
	if err := doc.Validate(); err != nil {
		e.observe(ctx, "import", start, err)
		return Stats{}, err
	}
	stats := doc.Stats()
	err := e.st.InTx(ctx, func(c store.Conn) error {
		n, err := applyDocument(ctx, c, doc)
		if err != nil {
			return err
		}
		stats.Memberships = n
		if e.st.Driver() == coredatabase.DriverPostgres {
			return advanceSequences(ctx, c)
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("import: %w", err)
		e.observe(ctx, "import", start, err)
		return Stats{}, err
	}
	e.observe(ctx, "import", start, nil,
		slog.Int("categories", stats.Categories),
		slog.Int("products", stats.Products),
		slog.Int("variants", stats.Variants),
		slog.Int("photos", stats.Photos),
	)
	return stats, nil
}

func applyDocument(ctx context.Context, c store.Conn, doc Document) (int, error) {
	for _, cat := range doc.Categories {
		_, err := c.Exec(ctx, `INSERT INTO categories(id, name, is_active) VALUES(?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, is_active = excluded.is_active`,
			cat.ID, strings.TrimSpace(cat.Name), active(cat.IsActive))
		if err != nil {
			return 0, fmt.Errorf("category %d: %w", cat.ID, err)
		}
	}

	for _, p := range doc.Products {
		_, err := c.Exec(ctx, `INSERT INTO products(id, name, description, is_active, created_at)
			VALUES(?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
			ON CONFLICT (id) DO UPDATE SET name = excluded.name,
				description = excluded.description, is_active = excluded.is_active`,
			p.ID, strings.TrimSpace(p.Name), p.Description, active(p.IsActive), p.CreatedAt)
		if err != nil {
			return 0, fmt.Errorf("product %d: %w", p.ID, err)
		}
	}

	memberships := len(doc.ProductCategories)
	for _, m := range doc.ProductCategories {
		_, err := c.Exec(ctx, `INSERT INTO product_categories(product_id, category_id) VALUES(?, ?)
			ON CONFLICT (product_id, category_id) DO NOTHING`, m.ProductID, m.CategoryID)
		if err != nil {
			return 0, fmt.Errorf("membership %d/%d: %w", m.ProductID, m.CategoryID, err)
		}
	}
	if len(doc.ProductCategories) == 0 {
		// legacy single-category references; unknown categories are skipped
		for _, p := range doc.Products {
			if p.CategoryID == nil || *p.CategoryID <= 0 {
				continue
			}
			n, err := c.Exec(ctx, `INSERT INTO product_categories(product_id, category_id)
				SELECT CAST(? AS BIGINT), id FROM categories WHERE id = ?
				ON CONFLICT (product_id, category_id) DO NOTHING`, p.ID, *p.CategoryID)
			if err != nil {
				return 0, fmt.Errorf("legacy membership %d/%d: %w", p.ID, *p.CategoryID, err)
			}
			memberships += int(n)
		}
	}

	for _, v := range doc.ProductVariants {
		var stock int64
		if v.Stock != nil {
			stock = *v.Stock
		}
		_, err := c.Exec(ctx, `INSERT INTO product_variants(id, product_id, name, stock) VALUES(?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET product_id = excluded.product_id,
				name = excluded.name, stock = excluded.stock`,
			v.ID, v.ProductID, strings.TrimSpace(v.Name), stock)
		if err != nil {
			return 0, fmt.Errorf("variant %d: %w", v.ID, err)
		}
	}

	for _, ph := range doc.Photos {
		var err error
		if ph.ID != nil {
			_, err = c.Exec(ctx, `INSERT INTO photos(id, product_id, file_id) VALUES(?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET product_id = excluded.product_id, file_id = excluded.file_id`,
				*ph.ID, ph.ProductID, ph.FileID)
		} else {
			_, err = c.Exec(ctx, `INSERT INTO photos(product_id, file_id)
				SELECT CAST(? AS BIGINT), CAST(? AS TEXT)
				WHERE NOT EXISTS (SELECT 1 FROM photos WHERE product_id = ? AND file_id = ?)`,
				ph.ProductID, ph.FileID, ph.ProductID, ph.FileID)
		}
		if err != nil {
			return 0, fmt.Errorf("photo of product %d: %w", ph.ProductID, err)
		}
	}
	return memberships, nil
}

func active(f *Flag) int {
	if flagOr(f, true) {
		return 1
	}
	return 0
}

var sequenced = []string{"categories", "products", "product_variants", "photos"}

// advanceSequences moves postgres identity sequences past imported ids.
func advanceSequences(ctx context.Context, c store.Conn) error {
	for _, table := range sequenced {
		var v int64
		q := fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'id'),
			COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)`, table, table)
		if err := c.Get(ctx, &v, q); err != nil {
			return fmt.Errorf("advance %s sequence: %w", table, err)
		}
	}
	return nil
}
