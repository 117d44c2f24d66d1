package billing

import "sort"

// Line is a single document line entering the totals calculation. VatRate
// accepts either a fraction or a percent and is normalized internally.
type Line struct {
	Quantity  float64
	UnitPrice float64
	VatRate   float64
}

// RateGroup aggregates the lines sharing one normalized VAT rate. Net and
// Taxable carry the raw accumulated values; Discount and Vat are rounded.
type RateGroup struct {
	Rate     float64
	Net      float64
	Discount float64
	Taxable  float64
	Vat      float64
}

// Totals is the computed financial summary of a document. Every field is
// rounded to two decimals.
type Totals struct {
	Subtotal       float64
	DiscountAmount float64
	Taxable        float64
	VatAmount      float64
	Total          float64
	Groups         []RateGroup
}

// rateBucket accumulates line nets per normalized rate in first-seen order.
type rateBucket struct {
	rate float64
	net  float64
}

func groupByRate(lines []Line) (float64, []rateBucket) {
	var subtotal float64
	var buckets []rateBucket
	index := make(map[float64]int)
	for _, ln := range lines {
		net := LineNet(ln.Quantity, ln.UnitPrice)
		rate := NormalizeRate(ln.VatRate)
		subtotal += net
		i, ok := index[rate]
		if !ok {
			i = len(buckets)
			index[rate] = i
			buckets = append(buckets, rateBucket{rate: rate})
		}
		buckets[i].net += net
	}
	return subtotal, buckets
}

// allocateDiscount splits the discount across buckets in proportion to their
// net amount. Each share is rounded on its own; the rounding residue is then
// added entirely to the bucket with the largest signed net (first one wins a
// tie) so the shares sum back to the discount.
func allocateDiscount(subtotal, discount float64, buckets []rateBucket) []float64 {
	shares := make([]float64, len(buckets))
	if len(buckets) == 0 {
		return shares
	}
	var allocated float64
	for i, b := range buckets {
		if subtotal != 0 {
			shares[i] = Round2(discount * b.net / subtotal)
		}
		allocated += shares[i]
	}
	diff := Round2(discount - allocated)
	if diff != 0 {
		largest := 0
		for i := 1; i < len(buckets); i++ {
			if buckets[i].net > buckets[largest].net {
				largest = i
			}
		}
		shares[largest] = Round2(shares[largest] + diff)
	}
	return shares
}

// ComputeTotals calculates subtotal, discount, per-rate VAT and grand total
// for the given lines. The discount is allocated proportionally across rate
// groups before VAT is computed per group. Taxable is derived from subtotal
// and discount independently of the per-group taxables.
func ComputeTotals(lines []Line, d Discount) Totals {
	rawSubtotal, buckets := groupByRate(lines)
	subtotal := Round2(rawSubtotal)
	discount := DiscountAmount(subtotal, d)
	shares := allocateDiscount(subtotal, discount, buckets)

	groups := make([]RateGroup, len(buckets))
	var vatSum float64
	for i, b := range buckets {
		taxable := b.net - shares[i]
		if taxable < 0 {
			taxable = 0
		}
		vat := Round2(taxable * b.rate)
		groups[i] = RateGroup{
			Rate:     b.rate,
			Net:      b.net,
			Discount: shares[i],
			Taxable:  taxable,
			Vat:      vat,
		}
		vatSum += vat
	}

	taxable := Round2(subtotal - discount)
	vatAmount := Round2(vatSum)
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Taxable:        taxable,
		VatAmount:      vatAmount,
		Total:          Round2(taxable + vatAmount),
		Groups:         groups,
	}
}

// VatSummaryRow reports the net and VAT of one rate for display. NetAmount
// is the group net minus its discount share, not floored at zero.
type VatSummaryRow struct {
	Rate        float64
	DisplayRate string
	NetAmount   float64
	VatAmount   float64
}

// VatSummary lists per-rate rows sorted ascending by rate.
type VatSummary struct {
	Rows     []VatSummaryRow
	TotalNet float64
	TotalVat float64
}

// ComputeVatSummary produces the per-rate VAT breakdown using the same
// grouping and discount allocation as ComputeTotals.
func ComputeVatSummary(lines []Line, d Discount) VatSummary {
	rawSubtotal, buckets := groupByRate(lines)
	subtotal := Round2(rawSubtotal)
	discount := DiscountAmount(subtotal, d)
	shares := allocateDiscount(subtotal, discount, buckets)

	rows := make([]VatSummaryRow, len(buckets))
	for i, b := range buckets {
		taxable := b.net - shares[i]
		if taxable < 0 {
			taxable = 0
		}
		rows[i] = VatSummaryRow{
			Rate:        b.rate,
			DisplayRate: FormatPercent(b.rate),
			NetAmount:   Round2(b.net - shares[i]),
			VatAmount:   Round2(taxable * b.rate),
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Rate < rows[j].Rate })

	var totalNet, totalVat float64
	for _, row := range rows {
		totalNet += row.NetAmount
		totalVat += row.VatAmount
	}
	return VatSummary{
		Rows:     rows,
		TotalNet: Round2(totalNet),
		TotalVat: Round2(totalVat),
	}
}
