package export

import (
	"fmt"
	"io"

	"livestock-purchasing/internal/core"
	"livestock-purchasing/internal/masterdata"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet of an exported purchase.
const SheetName = "Purchase"

// TableHeaderRow is the row of the line-table column titles. Lines start on
// the next row.
const TableHeaderRow = 8

// Labels holds master-data lists used to print labels instead of raw ids.
type Labels map[core.OptionKind][]core.Option

func (l Labels) label(kind core.OptionKind, ref *string) string {
	if ref == nil {
		return ""
	}
	return masterdata.Lookup(l[kind], *ref)
}

var columns = []string{
	"No", "Item", "Classification", "Bank", "Quantity", "Weight",
	"Unit price", "Markup %", "Unit cost", "Extended total", "Note",
}

// WritePurchaseXLSX writes one purchase as an XLSX workbook: a header block,
// the line table and a totals row.
func WritePurchaseXLSX(w io.Writer, p core.Profile, header core.PurchaseHeader, lines []core.DetailLine, labels Labels) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	block := [][]any{
		{"Purchase", string(p.Kind)},
		{"ID", header.ID},
		{"Office", masterdata.Lookup(labels[core.OptionOffice], header.OfficeRef)},
		{"Supplier", masterdata.Lookup(labels[core.OptionSupplier], header.SupplierRef)},
		{"Order date", header.OrderDate},
		{"Note", header.Note},
	}
	for i, row := range block {
		if err := setRow(f, 1, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", fmt.Sprintf("A%d", len(block)), bold); err != nil {
		return fmt.Errorf("style header block: %w", err)
	}

	titles := make([]any, len(columns))
	for i, c := range columns {
		titles[i] = c
	}
	if err := setRow(f, 1, TableHeaderRow, titles); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), TableHeaderRow)
	if err := f.SetCellStyle(SheetName, fmt.Sprintf("A%d", TableHeaderRow), last, bold); err != nil {
		return fmt.Errorf("style table header: %w", err)
	}

	totals := core.Totals{Quantity: decimal.Zero, Weight: decimal.Zero, Price: decimal.Zero}
	row := TableHeaderRow
	for i, l := range lines {
		row++
		values := []any{
			i + 1,
			labels.label(core.OptionItem, l.ItemRef),
			labels.label(core.OptionClassification, l.ClassificationRef),
			labels.label(core.OptionBank, l.BankRef),
			number(l.Quantity),
			number(l.Weight),
			number(l.UnitPrice),
			l.MarkupPercent,
			l.UnitCost.InexactFloat64(),
			l.ExtendedTotal.InexactFloat64(),
			l.Note,
		}
		if err := setRow(f, 1, row, values); err != nil {
			return err
		}
		totals.Quantity = totals.Quantity.Add(l.Quantity.Decimal)
		totals.Weight = totals.Weight.Add(l.Weight.Decimal)
		totals.Price = totals.Price.Add(l.ExtendedTotal)
	}

	row++
	totalRow := []any{"Total", "", "", "", totals.Quantity.InexactFloat64(), totals.Weight.InexactFloat64(), "", "", "", totals.Price.InexactFloat64(), ""}
	if err := setRow(f, 1, row, totalRow); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("K%d", row), bold); err != nil {
		return fmt.Errorf("style totals: %w", err)
	}
	if row > TableHeaderRow+1 {
		if err := f.SetCellStyle(SheetName, fmt.Sprintf("G%d", TableHeaderRow+1), fmt.Sprintf("G%d", row-1), amount); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
		if err := f.SetCellStyle(SheetName, fmt.Sprintf("I%d", TableHeaderRow+1), fmt.Sprintf("J%d", row-1), amount); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "K", 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, col, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// number leaves absent values as empty cells.
func number(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	return d.Decimal.InexactFloat64()
}
