package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// Stock is the on-hand ledger row of a product.
type Stock struct {
	ID               int64     `json:"id"`
	ProductID        int64     `json:"product_id"`
	Quantity         int       `json:"quantity"`
	ReservedQuantity int       `json:"reserved_quantity"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Available is quantity minus reserved quantity.
func (s Stock) Available() int {
	return s.Quantity - s.ReservedQuantity
}

// Add increments the on-hand quantity.
func (s *Stock) Add(qty int) {
	if qty <= 0 {
		return
	}
	s.Quantity += qty
}

// Reduce decrements the on-hand quantity when enough is available.
// It returns false and leaves the stock untouched otherwise.
func (s *Stock) Reduce(qty int) bool {
	if qty <= 0 || qty > s.Available() {
		return false
	}
	s.Quantity -= qty
	return true
}

// AvailabilityStatus is the outcome of an availability check.
type AvailabilityStatus string

const (
	StatusAvailable    AvailabilityStatus = "available"
	StatusInsufficient AvailabilityStatus = "insufficient"
	StatusNoRecord     AvailabilityStatus = "no_record"
	StatusNotFound     AvailabilityStatus = "not_found"
)

// Availability reports whether a product can cover a requested quantity.
type Availability struct {
	ProductID    int64              `json:"product_id"`
	ProductName  string             `json:"product_name,omitempty"`
	Requested    int                `json:"requested"`
	AvailableQty int                `json:"available_qty"`
	Status       AvailabilityStatus `json:"status"`
	Message      string             `json:"message,omitempty"`
}

// OK reports whether the requested quantity is available.
func (a Availability) OK() bool {
	return a.Status == StatusAvailable
}

func evaluate(productID int64, name string, stock *Stock, found bool, requested int) Availability {
	res := Availability{ProductID: productID, ProductName: name, Requested: requested}
	switch {
	case !found:
		res.Status = StatusNotFound
		res.Message = fmt.Sprintf("Product with ID %d not found", productID)
	case stock == nil:
		res.Status = StatusNoRecord
		res.Message = fmt.Sprintf("No stock record found for product '%s'", name)
	default:
		res.AvailableQty = stock.Available()
		if requested > res.AvailableQty {
			res.Status = StatusInsufficient
			res.Message = fmt.Sprintf("Not enough stock for '%s'. Available: %d, Requested: %d", name, res.AvailableQty, requested)
		} else {
			res.Status = StatusAvailable
		}
	}
	return res
}

// StockError lists every line that could not be covered by stock.
type StockError struct {
	Lines []Availability
}

func (e *StockError) Error() string {
	return "inventory: " + strings.Join(e.Details(), "; ")
}

// Details returns one message per failing line.
func (e *StockError) Details() []string {
	out := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		out = append(out, l.Message)
	}
	return out
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// Is matches ErrNotFound when one of the products is unknown.
func (e *StockError) Is(target error) bool {
	if target == shared.ErrNotFound {
		for _, l := range e.Lines {
			if l.Status == StatusNotFound {
				return true
			}
		}
	}
	return false
}

// Requirement is a quantity of a product that must be covered.
type Requirement struct {
	ProductID int64
	Quantity  int
}

// StockIn is a receiving batch that adds stock once completed.
type StockIn struct {
	ID          string        `json:"id"`
	Notes       string        `json:"notes"`
	TotalItems  int           `json:"total_items"`
	IsCompleted bool          `json:"is_completed"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Items       []StockInItem `json:"items,omitempty"`
}

// Status renders the lifecycle state.
func (s StockIn) Status() string {
	if s.IsCompleted {
		return "completed"
	}
	return "pending"
}

// StockInItem is a line of a StockIn.
type StockInItem struct {
	ID          int64  `json:"id"`
	StockInID   string `json:"stock_in_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Barcode     string `json:"barcode,omitempty"`
	Quantity    int    `json:"quantity"`
}

// StockInLine is a requested line when creating or editing a StockIn.
type StockInLine struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity"`
}

// StockInFilter filters StockIn listings.
type StockInFilter struct {
	Status string
	Page   int
	Limit  int
}

// StockRow is a stock listing row joined with its product.
type StockRow struct {
	Stock
	ProductName string `json:"product_name"`
	Barcode     string `json:"barcode"`
	Available   int    `json:"available"`
	Status      string `json:"status"`
}

// StockFilter filters the stock listing. Filter is "low", "out" or empty.
type StockFilter struct {
	Filter    string
	Threshold int
	Search    string
	Page      int
	Limit     int
}

// EnsureResult summarises an ensure-stock-records run.
type EnsureResult struct {
	Checked  int `json:"checked"`
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

// Stock levels shown in listings and exports.
const (
	LevelOut     = "Out of Stock"
	LevelLow     = "Low Stock"
	LevelInStock = "In Stock"
)

// StockLevel classifies a quantity against the low stock threshold.
func StockLevel(quantity, threshold int) string {
	switch {
	case quantity <= 0:
		return LevelOut
	case quantity < threshold:
		return LevelLow
	default:
		return LevelInStock
	}
}

var (
	// ErrInsufficientStock matches every *StockError.
	ErrInsufficientStock = fmt.Errorf("inventory: insufficient stock: %w", shared.ErrConflict)
	// ErrStockNotFound indicates a product without a stock row.
	ErrStockNotFound = errors.New("inventory: stock record not found")
	// ErrStockInNotFound indicates an unknown StockIn id.
	ErrStockInNotFound = fmt.Errorf("inventory: stock in %w", shared.ErrNotFound)
	// ErrStockInCompleted is returned when a completed StockIn is completed, edited or deleted.
	ErrStockInCompleted = fmt.Errorf("inventory: stock in already completed: %w", shared.ErrConflict)
	// ErrInvalidQuantity indicates a non positive quantity.
	ErrInvalidQuantity = fmt.Errorf("inventory: quantity must be greater than zero: %w", shared.ErrValidation)
)
