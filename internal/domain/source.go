package domain

import "time"

// SourcePage is one page of raw products as returned by the catalog source.
type SourcePage struct {
	Products    []SourceProduct
	HasNextPage bool
	EndCursor   string
}

// SourceProduct is the upstream product record before ingestion. Variants
// and images are already flattened by the source adapter.
type SourceProduct struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Handle      string          `json:"handle"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	ProductType string          `json:"productType"`
	Vendor      string          `json:"vendor"`
	Tags        []string        `json:"tags"`
	Variants    []SourceVariant `json:"variants"`
	Images      []SourceImage   `json:"images"`
}

// SourceVariant is the upstream variant record. Price is a decimal string.
type SourceVariant struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	SKU               *string `json:"sku"`
	Barcode           *string `json:"barcode"`
	Price             string  `json:"price"`
	InventoryQuantity *int    `json:"inventoryQuantity"`
}

// SourceImage is the upstream image record.
type SourceImage struct {
	ID      string  `json:"id"`
	URL     string  `json:"url"`
	AltText *string `json:"altText"`
}
