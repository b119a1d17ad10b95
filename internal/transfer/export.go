package transfer

import (
	"context"
	"fmt"
	"time"
)

// Export snapshots the catalog graph, every collection ordered by id.
func (e *Engine) Export(ctx context.Context) (Document, error) {
	start := time.Now()
	doc, err := e.export(ctx)
	e.observe(ctx, "export", start, err)
	return doc, err
}

func (e *Engine) export(ctx context.Context) (Document, error) {
	doc := Document{
		Categories:        []Category{},
		Products:          []Product{},
		ProductCategories: []Membership{},
		ProductVariants:   []Variant{},
		Photos:            []Photo{},
	}

	cats, err := e.st.AllCategories(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("export categories: %w", err)
	}
	for _, c := range cats {
		active := Flag(c.Active)
		doc.Categories = append(doc.Categories, Category{ID: c.ID, Name: c.Name, IsActive: &active})
	}

	prods, err := e.st.AllProducts(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("export products: %w", err)
	}
	for _, p := range prods {
		active := Flag(p.Active)
		created := p.CreatedAt
		doc.Products = append(doc.Products, Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			IsActive:    &active,
			CreatedAt:   &created,
		})
	}

	links, err := e.st.AllMemberships(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("export memberships: %w", err)
	}
	for _, m := range links {
		doc.ProductCategories = append(doc.ProductCategories, Membership{ProductID: m.ProductID, CategoryID: m.CategoryID})
	}

	variants, err := e.st.AllVariants(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("export variants: %w", err)
	}
	for _, v := range variants {
		stock := v.Stock
		doc.ProductVariants = append(doc.ProductVariants, Variant{ID: v.ID, ProductID: v.ProductID, Name: v.Name, Stock: &stock})
	}

	photos, err := e.st.AllPhotos(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("export photos: %w", err)
	}
	for _, ph := range photos {
		id := ph.ID
		doc.Photos = append(doc.Photos, Photo{ID: &id, ProductID: ph.ProductID, FileID: ph.FileID})
	}
	return doc, nil
}
