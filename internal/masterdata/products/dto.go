package products

import "github.com/shopspring/decimal"

// ProductForm is the create/update payload. Barcode is accepted but ignored.
type ProductForm struct {
	Barcode       string          `json:"barcode"`
	ItemName      string          `json:"item_name"`
	Description   string          `json:"description"`
	CategoryID    *int64          `json:"category_id"`
	SubCategoryID *int64          `json:"sub_category_id"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	MRP           decimal.Decimal `json:"mrp"`
	IsActive      *bool           `json:"is_active"`
}

func (f ProductForm) toProduct() Product {
	active := true
	if f.IsActive != nil {
		active = *f.IsActive
	}
	return Product{
		ItemName:      f.ItemName,
		Description:   f.Description,
		CategoryID:    f.CategoryID,
		SubCategoryID: f.SubCategoryID,
		PurchasePrice: f.PurchasePrice,
		MRP:           f.MRP,
		IsActive:      active,
	}
}

type productView struct {
	Product
	ProfitMargin     decimal.Decimal `json:"profit_margin"`
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
}

func toView(p Product) productView {
	return productView{Product: p, ProfitMargin: p.ProfitMargin(), ProfitPercentage: p.ProfitPercentage()}
}
