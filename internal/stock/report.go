package stock

import (
	"strings"
	"text/template"
)

const (
	SufficientStockMessage = "Sufficient stock for all products."
	StockCheckTitle        = "Stock Check"
	InsufficientStockTitle = "Insufficient Stock"
)

var shortageReport = template.Must(template.New("shortage_report").Parse(
	"Insufficient stock for the following products:\n\n" +
		"{{range .}}• {{.ProductName}} : requested {{.Requested}} {{.UoM}}, available {{.Available}} {{.UoM}}\n{{end}}" +
		"\nPlease adjust the quantities or replenish the stock."))

var lineShortage = template.Must(template.New("line_shortage").Parse(
	"Insufficient stock for {{.ProductName}}.\n" +
		"Requested quantity: {{.Requested}} {{.UoM}}\n" +
		"Available quantity: {{.Available}} {{.UoM}}\n\n" +
		"Please adjust the quantity."))

func renderShortageReport(records []ShortageRecord) string {
	return render(shortageReport, records)
}

// Message renders the single-line report shown when a quantity edit is rejected.
func (s ShortageRecord) Message() string {
	return render(lineShortage, s)
}

func render(t *template.Template, data any) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		// Templates are static and the data is plain values.
		panic(err)
	}
	return b.String()
}
