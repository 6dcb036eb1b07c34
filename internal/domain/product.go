package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is one product-like entity from a merchant catalog, reduced to
// the fields the duplicate scanner reads. Read-only once ingested.
type CatalogItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Handle      string    `json:"handle"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ProductType string    `json:"productType,omitempty"`
	Vendor      string    `json:"vendor,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Variants    []Variant `json:"variants"`
	Images      []Image   `json:"images,omitempty"`
}

// Variant is a purchasable sub-unit of a catalog item.
// An empty SKU or Barcode means the value is absent.
type Variant struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	SKU               string          `json:"sku,omitempty"`
	Barcode           string          `json:"barcode,omitempty"`
	Price             decimal.Decimal `json:"price"`
	InventoryQuantity int             `json:"inventoryQuantity"`
}

// Image is informational only and never used for matching.
type Image struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
}

// TrimmedSKU returns the SKU with surrounding whitespace removed.
func (v Variant) TrimmedSKU() string {
	return strings.TrimSpace(v.SKU)
}

// TrimmedBarcode returns the barcode with surrounding whitespace removed.
func (v Variant) TrimmedBarcode() string {
	return strings.TrimSpace(v.Barcode)
}
