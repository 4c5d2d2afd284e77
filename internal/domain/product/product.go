package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item as served by the remote catalog.
// Products are never mutated locally.
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Thumbnail   string          `json:"thumbnail"`
	Images      []string        `json:"images"`
	Category    string          `json:"category"`
}

// Page is a single slice of the remote catalog.
type Page struct {
	Products []Product
	Total    int
	Skip     int
	Limit    int
}

// Catalog defines read operations against the remote product catalog.
type Catalog interface {
	List(ctx context.Context, limit, skip int) (*Page, error)
	Search(ctx context.Context, query string) (*Page, error)
	ByCategory(ctx context.Context, category string) (*Page, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id int) (*Product, error)
}

// NetworkError reports a failed catalog call: transport failure, non-2xx
// status or an undecodable payload.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
