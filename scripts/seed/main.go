package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var header = []string{
	"Customer Name", "Account Manager", "Invoice No.", "Invoice Date",
	"Due Date", "Invoice Amount", "Paid Amount", "Due Amount", "Status",
}

var customers = []struct {
	name    string
	manager string
}{
	{"Acme Traders", "Rina"},
	{"Bharat Steel", "Rina"},
	{"Citra Foods", "Arif"},
	{"Delta Logistics", "Arif"},
	{"Everest Pharma", "Maya"},
	{"Fortune Textiles", "Maya"},
	{"Gemini Retail", ""},
}

func main() {
	out := flag.String("out", "sample-receivables.xlsx", "output workbook path")
	rows := flag.Int("rows", 120, "number of invoices to generate")
	seed := flag.Int64("seed", 42, "random seed")
	asOf := flag.String("as-of", time.Now().Format("2006-01-02"), "date invoices are aged against")
	flag.Parse()

	anchor, err := time.Parse("2006-01-02", *asOf)
	if err != nil {
		log.Fatalf("parse as-of: %v", err)
	}

	fmt.Println("→ Generating receivables...")
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := "Receivables"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		log.Fatalf("rename sheet: %v", err)
	}
	if err := f.SetCellValue(sheet, "A1", fmt.Sprintf("AR Aging Report as of %s", anchor.Format("02 Jan 2006"))); err != nil {
		log.Fatalf("write title: %v", err)
	}
	if err := f.SetSheetRow(sheet, "A3", &header); err != nil {
		log.Fatalf("write header: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *rows; i++ {
		c := customers[rng.Intn(len(customers))]
		due := anchor.AddDate(0, 0, 15-rng.Intn(160))
		issued := due.AddDate(0, 0, -30)
		amount := decimal.NewFromInt(int64(5000 + rng.Intn(495000))).Div(decimal.NewFromInt(100)).Round(2)
		paid := decimal.Zero
		status := "Open"
		switch rng.Intn(5) {
		case 0:
			paid = amount.Mul(decimal.NewFromFloat(0.4)).Round(2)
			status = "Partially Paid"
		case 1:
			paid = amount
			status = "Paid"
		}
		row := []interface{}{
			c.name, c.manager, fmt.Sprintf("INV-%05d", i+1),
			issued.Format("02/01/2006"), due.Format("02/01/2006"),
			amount.InexactFloat64(), paid.InexactFloat64(), amount.Sub(paid).InexactFloat64(), status,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			log.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			log.Fatalf("write row %d: %v", i+1, err)
		}
	}

	if err := f.SaveAs(*out); err != nil {
		log.Fatalf("save workbook: %v", err)
	}
	fmt.Printf("✓ Wrote %d invoices to %s (load with DATE_DAY_FIRST=true)\n", *rows, *out)
}
