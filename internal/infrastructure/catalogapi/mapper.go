package catalogapi

import (
	"fmt"
	"strings"

	"github.com/dupelens/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// MapToCatalogItem reduces an upstream product to the CatalogItem shape used
// by every downstream component. Products without an id, or with a price that
// is not a decimal, are malformed.
func MapToCatalogItem(p domain.SourceProduct) (domain.CatalogItem, error) {
	if strings.TrimSpace(p.ID) == "" {
		return domain.CatalogItem{}, fmt.Errorf("%w: product without id (title %q)", domain.ErrMalformedResponse, p.Title)
	}

	variants := make([]domain.Variant, 0, len(p.Variants))
	for _, v := range p.Variants {
		variant, err := mapVariant(v)
		if err != nil {
			return domain.CatalogItem{}, fmt.Errorf("product %s: %w", p.ID, err)
		}
		variants = append(variants, variant)
	}

	var images []domain.Image
	for _, img := range p.Images {
		images = append(images, domain.Image{
			ID:      img.ID,
			URL:     img.URL,
			AltText: stringValue(img.AltText),
		})
	}

	return domain.CatalogItem{
		ID:          p.ID,
		Title:       p.Title,
		Handle:      p.Handle,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		ProductType: p.ProductType,
		Vendor:      p.Vendor,
		Tags:        p.Tags,
		Variants:    variants,
		Images:      images,
	}, nil
}

// mapVariant converts one upstream variant
func mapVariant(v domain.SourceVariant) (domain.Variant, error) {
	price := decimal.Zero
	if s := strings.TrimSpace(v.Price); s != "" {
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return domain.Variant{}, fmt.Errorf("%w: variant %s price %q", domain.ErrMalformedResponse, v.ID, v.Price)
		}
		price = parsed
	}

	qty := 0
	if v.InventoryQuantity != nil {
		qty = *v.InventoryQuantity
	}

	return domain.Variant{
		ID:                v.ID,
		Title:             v.Title,
		SKU:               stringValue(v.SKU),
		Barcode:           stringValue(v.Barcode),
		Price:             price,
		InventoryQuantity: qty,
	}, nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
