package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const (
	productColumns = `id, category_id, name, slug, description, sku, price, stock, active, created_at, updated_at`

	productFilterSQL = ` FROM products
		WHERE active
		AND ($1::uuid IS NULL OR category_id = $1)
		AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')`

	listProductsSQL = `SELECT ` + productColumns + productFilterSQL + `
		ORDER BY created_at DESC, id LIMIT $3 OFFSET $4`

	countProductsSQL = `SELECT count(*)` + productFilterSQL

	getProductSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	listVariantsSQL = `SELECT id, product_id, name, sku, stock
		FROM product_variants WHERE product_id = ANY($1) ORDER BY name, id`

	insertProductSQL = `INSERT INTO products (id, category_id, name, slug, description, sku, price, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	updateProductSQL = `UPDATE products
		SET category_id = $2, name = $3, slug = $4, description = $5, sku = $6, price = $7, stock = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	pruneVariantsSQL = `DELETE FROM product_variants WHERE product_id = $1 AND NOT (sku = ANY($2))`

	// Conflicting SKUs of another product leave the row untouched, so nothing
	// is returned and the caller reports a duplicate.
	upsertVariantSQL = `INSERT INTO product_variants (id, product_id, name, sku, stock)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name, stock = EXCLUDED.stock
		WHERE product_variants.product_id = EXCLUDED.product_id
		RETURNING id`

	setProductActiveSQL = `UPDATE products SET active = $2, updated_at = now() WHERE id = $1`

	listCategoriesSQL = `SELECT id, parent_id, name, slug, description, created_at
		FROM categories ORDER BY name, id`

	insertCategorySQL = `INSERT INTO categories (id, parent_id, name, slug, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository returns a CatalogRepository.
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListProducts returns one page of active products and the total number of
// matches.
func (r *CatalogRepository) ListProducts(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, int, error) {
	q := r.db.conn(ctx)

	var total int
	if err := q.QueryRow(ctx, countProductsSQL, f.CategoryID, f.Search).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	rows, err := q.Query(ctx, listProductsSQL, f.CategoryID, f.Search, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetProduct returns a product with its variants, active or not.
func (r *CatalogRepository) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	rows, err := r.db.conn(ctx).Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}

	products := []catalog.Product{p}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (r *CatalogRepository) attachVariants(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(products))
	index := make(map[uuid.UUID]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := r.db.conn(ctx).Query(ctx, listVariantsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list variants")
	}
	variants, err := pgx.CollectRows(rows, scanVariant)
	if err != nil {
		return errors.Wrap(err, "list variants")
	}
	for _, v := range variants {
		i := index[v.ProductID]
		products[i].Variants = append(products[i].Variants, v)
	}
	return nil
}

// CreateProduct inserts a product with its variants.
func (r *CatalogRepository) CreateProduct(ctx context.Context, p *catalog.Product) error {
	return r.db.RunInTx(ctx, func(ctx context.Context) error {
		q := r.db.conn(ctx)
		err := q.QueryRow(ctx, insertProductSQL,
			p.ID, p.CategoryID, p.Name, p.Slug, p.Description, p.SKU, p.Price, p.Stock, p.Active,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return mapCatalogError(err, "insert product")
		}
		return r.upsertVariants(ctx, p)
	})
}

// UpdateProduct replaces the product fields and its variant set. Variants
// are matched by SKU so that existing cart lines keep pointing at them.
func (r *CatalogRepository) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	return r.db.RunInTx(ctx, func(ctx context.Context) error {
		q := r.db.conn(ctx)
		err := q.QueryRow(ctx, updateProductSQL,
			p.ID, p.CategoryID, p.Name, p.Slug, p.Description, p.SKU, p.Price, p.Stock,
		).Scan(&p.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return catalog.ErrProductNotFound
			}
			return mapCatalogError(err, "update product")
		}

		skus := make([]string, len(p.Variants))
		for i, v := range p.Variants {
			skus[i] = v.SKU
		}
		if _, err := q.Exec(ctx, pruneVariantsSQL, p.ID, skus); err != nil {
			return errors.Wrap(err, "prune variants")
		}
		return r.upsertVariants(ctx, p)
	})
}

func (r *CatalogRepository) upsertVariants(ctx context.Context, p *catalog.Product) error {
	if len(p.Variants) == 0 {
		return nil
	}
	q := r.db.conn(ctx)
	for i := range p.Variants {
		v := &p.Variants[i]
		err := q.QueryRow(ctx, upsertVariantSQL, v.ID, p.ID, v.Name, v.SKU, v.Stock).Scan(&v.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return catalog.ErrDuplicate
			}
			return mapCatalogError(err, "upsert variant")
		}
	}
	return nil
}

// SetProductActive toggles product visibility.
func (r *CatalogRepository) SetProductActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.db.conn(ctx).Exec(ctx, setProductActiveSQL, id, active)
	if err != nil {
		return errors.Wrapf(err, "set product %s active", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

// ListCategories returns every category ordered by name.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.db.conn(ctx).Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var c catalog.Category
		err := row.Scan(&c.ID, &c.ParentID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt)
		return c, err
	})
}

// CreateCategory inserts a category.
func (r *CatalogRepository) CreateCategory(ctx context.Context, c *catalog.Category) error {
	err := r.db.conn(ctx).QueryRow(ctx, insertCategorySQL,
		c.ID, c.ParentID, c.Name, c.Slug, c.Description,
	).Scan(&c.CreatedAt)
	if err != nil {
		return mapCatalogError(err, "insert category")
	}
	return nil
}

func mapCatalogError(err error, op string) error {
	switch {
	case isUniqueViolation(err):
		return catalog.ErrDuplicate
	case isForeignKeyViolation(err):
		return catalog.ErrCategoryNotFound
	default:
		return errors.Wrap(err, op)
	}
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.SKU,
		&p.Price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.Stock)
	return v, err
}
