package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/noah-isme/backend-faktur/internal/billing"
	"github.com/noah-isme/backend-faktur/internal/document"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	customerIDs := seedCustomers(db)
	seedDocuments(db, customerIDs)

	log.Println("Seeding completed successfully!")
}

func seedCustomers(db *sql.DB) map[string]string {
	customers := []struct {
		Name       string
		Email      string
		Phone      string
		Address    string
		City       string
		PostalCode string
		TaxID      string
	}{
		{"PT Sinar Abadi", "finance@sinarabadi.co.id", "021-5551234", "Jl. Jend. Sudirman Kav. 25", "Jakarta Selatan", "12920", "01.234.567.8-011.000"},
		{"CV Maju Jaya", "admin@majujaya.id", "022-7301988", "Jl. Asia Afrika No. 102", "Bandung", "40112", "02.345.678.9-422.000"},
		{"PT Nusantara Teknologi", "ap@nusantaratech.co.id", "031-5032177", "Jl. Basuki Rahmat No. 88", "Surabaya", "60271", "03.456.789.0-606.000"},
		{"UD Berkah Sentosa", "berkah.sentosa@gmail.com", "0274-512345", "Jl. Malioboro No. 56", "Yogyakarta", "55213", ""},
		{"PT Cahaya Mandiri", "keuangan@cahayamandiri.co.id", "061-4155678", "Jl. Gatot Subroto No. 140", "Medan", "20112", "05.678.901.2-112.000"},
		{"CV Karya Utama", "karyautama@outlook.co.id", "024-8311020", "Jl. Pandanaran No. 30", "Semarang", "50134", ""},
	}

	fmt.Println("Seeding Customers...")
	ids := make(map[string]string, len(customers))
	for _, c := range customers {
		var id string
		err := db.QueryRow("SELECT id FROM customers WHERE name = $1", c.Name).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			err = db.QueryRow(`
				INSERT INTO customers (name, email, phone, address, city, postal_code, tax_id)
				VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
				RETURNING id;
			`, c.Name, c.Email, c.Phone, c.Address, c.City, c.PostalCode, c.TaxID).Scan(&id)
		}
		if err != nil {
			log.Printf("Failed to seed customer %s: %v", c.Name, err)
			continue
		}
		ids[c.Name] = id
	}
	return ids
}

type seedLine struct {
	Desc  string
	Qty   float64
	Price float64
	Rate  float64
}

type seedPayment struct {
	Amount    float64
	Method    string
	Reference string
	PaidAt    time.Time
}

type seedDoc struct {
	Kind     document.Kind
	Seq      int64
	Customer string
	IssuedAt time.Time
	TermDays int
	Discount billing.Discount
	Notes    string
	Lines    []seedLine
	Payments []seedPayment
}

func seedDocuments(db *sql.DB, customerIDs map[string]string) {
	docs := []seedDoc{
		{
			Kind: document.KindInvoice, Seq: 1, Customer: "PT Sinar Abadi",
			IssuedAt: time.Date(2026, 7, 10, 9, 0, 0, 0, time.UTC), TermDays: 14,
			Notes: "Pembayaran melalui transfer ke rekening BCA 123-456-7890",
			Lines: []seedLine{
				{"Jasa konsultasi IT (20 jam)", 20, 350000, 11},
				{"Pemeliharaan server bulanan", 1, 2500000, 11},
			},
		},
		{
			Kind: document.KindInvoice, Seq: 2, Customer: "CV Maju Jaya",
			IssuedAt: time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC), TermDays: 14,
			Discount: billing.Discount{Type: billing.DiscountPercent, Value: 10},
			Lines: []seedLine{
				{"Pengembangan aplikasi web", 1, 15000000, 11},
				{"Pelatihan karyawan (2 hari)", 2, 1750000, 11},
			},
			Payments: []seedPayment{
				{Amount: 18481500, Method: "transfer", Reference: "TRX-2026-0812", PaidAt: time.Date(2026, 8, 10, 14, 0, 0, 0, time.UTC)},
			},
		},
		{
			Kind: document.KindInvoice, Seq: 3, Customer: "PT Nusantara Teknologi",
			IssuedAt: time.Date(2026, 8, 15, 11, 0, 0, 0, time.UTC), TermDays: 30,
			Lines: []seedLine{
				{"Lisensi software tahunan", 5, 4800000, 11},
				{"Instalasi dan konfigurasi", 1, 3000000, 11},
			},
			Payments: []seedPayment{
				{Amount: 10000000, Method: "transfer", Reference: "TRX-2026-0820", PaidAt: time.Date(2026, 8, 20, 9, 15, 0, 0, time.UTC)},
			},
		},
		{
			Kind: document.KindQuotation, Seq: 1, Customer: "UD Berkah Sentosa",
			IssuedAt: time.Date(2026, 8, 18, 8, 45, 0, 0, time.UTC), TermDays: 14,
			Notes: "Harga berlaku 30 hari sejak tanggal penawaran",
			Lines: []seedLine{
				{"Desain logo dan branding", 1, 7500000, 11},
				{"Cetak brosur (1000 lembar)", 1000, 3500, 11},
			},
		},
	}

	fmt.Println("Seeding Documents...")
	maxSeq := map[string]int64{}
	for _, d := range docs {
		customerID, ok := customerIDs[d.Customer]
		if !ok {
			log.Printf("Missing customer ID for %s", d.Customer)
			continue
		}
		if err := insertDocument(db, d, customerID); err != nil {
			log.Printf("Failed to seed document %s #%d: %v", d.Kind, d.Seq, err)
			continue
		}
		if d.Seq > maxSeq[string(d.Kind)] {
			maxSeq[string(d.Kind)] = d.Seq
		}
	}

	// Counters must cover the seeded numbers or the next issue collides.
	for kind, seq := range maxSeq {
		_, err := db.Exec(`
			INSERT INTO document_counters (kind, year, last_value) VALUES ($1, $2, $3)
			ON CONFLICT (kind, year) DO UPDATE SET
				last_value = GREATEST(document_counters.last_value, EXCLUDED.last_value);
		`, kind, 2026, seq)
		if err != nil {
			log.Printf("Failed to bump counter for %s: %v", kind, err)
		}
	}

	seedDraftQuotation(db, customerIDs)
}

func insertDocument(db *sql.DB, d seedDoc, customerID string) error {
	prefix := "INV"
	if d.Kind == document.KindQuotation {
		prefix = "QUO"
	}
	number := document.FormatNumber(prefix, d.IssuedAt.Year(), d.Seq)

	var existing string
	err := db.QueryRow("SELECT id FROM documents WHERE number = $1", number).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	blines := make([]billing.Line, len(d.Lines))
	for i, ln := range d.Lines {
		blines[i] = billing.Line{Quantity: ln.Qty, UnitPrice: ln.Price, VatRate: billing.NormalizeRate(ln.Rate)}
	}
	totals := billing.ComputeTotals(blines, d.Discount)
	summary := billing.ComputeVatSummary(blines, d.Discount)
	breakdown := make([]document.VatRow, len(summary.Rows))
	for i, row := range summary.Rows {
		breakdown[i] = document.VatRow{Rate: row.Rate, DisplayRate: row.DisplayRate, NetAmount: row.NetAmount, VatAmount: row.VatAmount}
	}
	rawBreakdown, err := json.Marshal(breakdown)
	if err != nil {
		return err
	}

	discountType := d.Discount.Type
	if discountType == "" {
		discountType = billing.DiscountNone
	}
	dueDate := d.IssuedAt.AddDate(0, 0, d.TermDays)

	var docID string
	err = db.QueryRow(`
		INSERT INTO documents (kind, status, number, customer_id, currency, notes,
			discount_type, discount_value, subtotal, discount_amount, taxable_amount,
			vat_amount, total, vat_breakdown, issued_at, due_date)
		VALUES ($1, 'issued', $2, $3, 'IDR', NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id;
	`, string(d.Kind), number, customerID, d.Notes, string(discountType), d.Discount.Value,
		totals.Subtotal, totals.DiscountAmount, totals.Taxable, totals.VatAmount, totals.Total,
		rawBreakdown, d.IssuedAt, dueDate).Scan(&docID)
	if err != nil {
		return err
	}

	for i, ln := range d.Lines {
		_, err := db.Exec(`
			INSERT INTO document_lines (document_id, position, description, quantity, unit_price, vat_rate, line_net)
			VALUES ($1, $2, $3, $4, $5, $6, $7);
		`, docID, i, ln.Desc, ln.Qty, ln.Price, billing.NormalizeRate(ln.Rate), billing.LineNet(ln.Qty, ln.Price))
		if err != nil {
			return err
		}
	}

	var paid float64
	var lastPaidAt time.Time
	for _, p := range d.Payments {
		_, err := db.Exec(`
			INSERT INTO payments (document_id, amount, method, reference, paid_at)
			VALUES ($1, $2, $3, $4, $5);
		`, docID, p.Amount, p.Method, p.Reference, p.PaidAt)
		if err != nil {
			return err
		}
		paid += p.Amount
		lastPaidAt = p.PaidAt
	}
	if paid > 0 {
		if paid >= totals.Total-1e-9 {
			_, err = db.Exec(`UPDATE documents SET amount_paid = $2, status = 'paid', paid_at = $3 WHERE id = $1`,
				docID, paid, lastPaidAt)
		} else {
			_, err = db.Exec(`UPDATE documents SET amount_paid = $2 WHERE id = $1`, docID, paid)
		}
		if err != nil {
			return err
		}
	}

	log.Printf("Seeded %s %s (total %s)", d.Kind, number, billing.FormatMoney(totals.Total))
	return nil
}

func seedDraftQuotation(db *sql.DB, customerIDs map[string]string) {
	customerID, ok := customerIDs["PT Cahaya Mandiri"]
	if !ok {
		log.Println("Skipping draft seed: customer 'PT Cahaya Mandiri' not found")
		return
	}

	var existing string
	err := db.QueryRow(`
		SELECT id FROM documents WHERE kind = 'quotation' AND status = 'draft' AND customer_id = $1;
	`, customerID).Scan(&existing)
	if err == nil {
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Printf("Failed to check draft quotation: %v", err)
		return
	}

	fmt.Println("Seeding Draft Quotation...")
	lines := []billing.Line{{Quantity: 12, UnitPrice: 1200000, VatRate: 0.11}}
	totals := billing.ComputeTotals(lines, billing.Discount{})
	summary := billing.ComputeVatSummary(lines, billing.Discount{})
	rawBreakdown, err := json.Marshal([]document.VatRow{{
		Rate:        summary.Rows[0].Rate,
		DisplayRate: summary.Rows[0].DisplayRate,
		NetAmount:   summary.Rows[0].NetAmount,
		VatAmount:   summary.Rows[0].VatAmount,
	}})
	if err != nil {
		log.Printf("Failed to encode breakdown: %v", err)
		return
	}

	var docID string
	err = db.QueryRow(`
		INSERT INTO documents (kind, status, customer_id, currency, subtotal, discount_amount,
			taxable_amount, vat_amount, total, vat_breakdown)
		VALUES ('quotation', 'draft', $1, 'IDR', $2, 0, $3, $4, $5, $6)
		RETURNING id;
	`, customerID, totals.Subtotal, totals.Taxable, totals.VatAmount, totals.Total, rawBreakdown).Scan(&docID)
	if err != nil {
		log.Printf("Failed to seed draft quotation: %v", err)
		return
	}
	_, err = db.Exec(`
		INSERT INTO document_lines (document_id, position, description, quantity, unit_price, vat_rate, line_net)
		VALUES ($1, 0, 'Langganan dukungan teknis (12 bulan)', 12, 1200000, 0.11, $2);
	`, docID, billing.LineNet(12, 1200000))
	if err != nil {
		log.Printf("Failed to seed draft quotation line: %v", err)
	}
}
