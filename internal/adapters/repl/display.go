package repl

import (
	"fmt"
	"io"
	"strings"

	"livestock-purchasing/internal/app"
	"livestock-purchasing/internal/core"

	"github.com/shopspring/decimal"
)

const width = 110

func printSession(out io.Writer, s *app.SessionResult) {
	printHeader(out, s)
	printLines(out, s)
}

func printHeader(out io.Writer, s *app.SessionResult) {
	h := s.Header
	id := h.ID
	if id == "" {
		id = "(not saved)"
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", width))
	fmt.Fprintf(out, "  %s PURCHASE  [%s mode]\n", strings.ToUpper(string(s.Profile.Kind)), s.Mode)
	fmt.Fprintf(out, "  ID       : %s\n", id)
	fmt.Fprintf(out, "  Office   : %s\n", h.OfficeRef)
	fmt.Fprintf(out, "  Supplier : %s\n", h.SupplierRef)
	fmt.Fprintf(out, "  Date     : %s\n", h.OrderDate)
	if h.Note != "" {
		fmt.Fprintf(out, "  Note     : %s\n", h.Note)
	}
	fmt.Fprintln(out, strings.Repeat("=", width))
}

func printLines(out io.Writer, s *app.SessionResult) {
	if len(s.Lines) == 0 {
		fmt.Fprintln(out, "  No lines. Use /add to add one.")
		return
	}
	fmt.Fprintf(out, "  %-4s %-10s %-12s %-10s %10s %10s %14s %7s %14s %16s  %s\n",
		"#", "STATUS", "ITEM", "BANK", "QTY", "WEIGHT", "PRICE", "MARKUP", "UNIT COST", "TOTAL", "MESSAGE")
	fmt.Fprintln(out, strings.Repeat("-", width))
	for _, l := range s.Lines {
		fmt.Fprintln(out, lineRow(l))
	}
	fmt.Fprintln(out, strings.Repeat("-", width))
	t := s.Header.Totals
	fmt.Fprintf(out, "  %-40s %10s %10s %70s\n", "TOTAL", measure(t.Quantity), measure(t.Weight), amount(t.Price))
}

func printLine(out io.Writer, r *app.LineResult) {
	fmt.Fprintln(out, lineRow(r.Line))
	fmt.Fprintf(out, "  Purchase total: %s\n", amount(r.Totals.Price))
}

func lineRow(l core.DetailLine) string {
	return fmt.Sprintf("  %-4d %-10s %-12s %-10s %10s %10s %14s %7s %14s %16s  %s",
		l.LocalID, l.Status, ref(l.ItemRef), ref(l.BankRef),
		nullMeasure(l.Quantity), nullMeasure(l.Weight), core.FormatThousands(l.UnitPrice),
		l.MarkupPercent, amount(l.UnitCost), amount(l.ExtendedTotal), l.Message)
}

func printOptions(out io.Writer, r *app.OptionListResult) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s\n", strings.ToUpper(string(r.Kind)))
	fmt.Fprintln(out, strings.Repeat("-", 50))
	if len(r.Options) == 0 {
		fmt.Fprintln(out, "  No entries.")
		return
	}
	for _, o := range r.Options {
		fmt.Fprintf(out, "  %-16s %s\n", o.Value, o.Label)
	}
}

func printNotifications(out io.Writer, notes []core.Notification) {
	for _, n := range notes {
		prefix := "[" + strings.ToUpper(string(n.Level)) + "]"
		if n.LocalID > 0 {
			fmt.Fprintf(out, "%s line %d: %s\n", prefix, n.LocalID, n.Message)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", prefix, n.Message)
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `
Purchases
  /kind <cattle|misc|payment>           Select the purchase kind for /new and /open
  /new [kind]                           Start a new purchase (add mode)
  /open [kind] <id>                     Open a saved purchase (edit mode)
  /header key=value ...                 Set office, supplier, date (YYYY-MM-DD), note
  /submit                               Save the purchase (header and all lines)
  /reload                               Discard local edits and refetch
  /show                                 Show the purchase

Lines
  /add [n] [field=value ...]            Add n blank lines, optionally prefilled
  /set <line> <field> <value>           Edit a field: item, class, bank, qty, weight, price, markup, note
  /save <line|all>                      Save a line (edit mode) or check it (add mode)
  /del <line>                           Delete a line

Other
  /options <kind> [refresh]             List office, supplier, item, classification or bank
  /export <file.xlsx>                   Export the purchase to a spreadsheet
  /help                                 Show this help
  /quit                                 Exit`)
}

func ref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func amount(d decimal.Decimal) string {
	return core.FormatThousands(decimal.NewNullDecimal(d))
}

// measure keeps fractional head counts and weights ("12,5").
func measure(d decimal.Decimal) string {
	if d.IsInteger() {
		return amount(d)
	}
	return core.FormatPercent(d)
}

func nullMeasure(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return measure(d.Decimal)
}
