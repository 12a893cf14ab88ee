package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var (
	salesHeader = []string{"Order ID", "Date", "Vendor", "Total Amount", "Items Count", "Notes"}
	stockHeader = []string{"Product Name", "Current Qty", "Reserved", "Available", "Purchase Price", "MRP", "Stock Value", "Status"}
)

func salesRecord(o OrderRow) []string {
	return []string{
		strconv.FormatInt(o.ID, 10),
		o.CreatedAt.Format("2006-01-02 15:04"),
		o.VendorName,
		o.Total.StringFixed(2),
		strconv.Itoa(o.ItemsCount),
		o.Notes,
	}
}

func stockRecord(r StockRow) []string {
	return []string{
		r.Name,
		strconv.Itoa(r.Quantity),
		strconv.Itoa(r.Reserved),
		strconv.Itoa(r.Available),
		r.PurchasePrice.StringFixed(2),
		r.MRP.StringFixed(2),
		r.StockValue.StringFixed(2),
		r.Status,
	}
}

// WriteSalesCSV emits orders as CSV.
func WriteSalesCSV(w io.Writer, orders []OrderRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(salesHeader); err != nil {
		return err
	}
	for _, o := range orders {
		if err := writer.Write(salesRecord(o)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteStockCSV emits stock rows as CSV.
func WriteStockCSV(w io.Writer, rows []StockRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(stockHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write(stockRecord(r)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSalesXLSX emits orders as a single-sheet workbook.
func WriteSalesXLSX(w io.Writer, orders []OrderRow) error {
	rows := make([][]any, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []any{o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.VendorName, o.Total.InexactFloat64(), o.ItemsCount, o.Notes})
	}
	return writeWorkbook(w, "Sales", salesHeader, rows, []string{"D"})
}

// WriteStockXLSX emits stock rows as a single-sheet workbook.
func WriteStockXLSX(w io.Writer, stock []StockRow) error {
	rows := make([][]any, 0, len(stock))
	for _, r := range stock {
		rows = append(rows, []any{r.Name, r.Quantity, r.Reserved, r.Available,
			r.PurchasePrice.InexactFloat64(), r.MRP.InexactFloat64(), r.StockValue.InexactFloat64(), r.Status})
	}
	return writeWorkbook(w, "Stock", stockHeader, rows, []string{"E", "F", "G"})
}

func writeWorkbook(w io.Writer, sheet string, header []string, rows [][]any, moneyCols []string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}
	for i, row := range rows {
		row := row
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
		if err != nil {
			return err
		}
		for _, col := range moneyCols {
			if err := f.SetCellStyle(sheet, col+"2", fmt.Sprintf("%s%d", col, len(rows)+1), money); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
