// Package currency rounds and formats monetary amounts for display.
package currency

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultSymbol is shown when no currency symbol is configured.
const DefaultSymbol = "RM"

// RoundTo2 rounds amount to two decimal places, half away from zero.
// NaN and infinities yield 0.
func RoundTo2(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	r := math.Round(amount*100) / 100
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

// FormatPrice renders amount as "<symbol> <value>". Whole amounts drop the
// fraction ("RM 10"), everything else keeps two places ("RM 10.50").
func FormatPrice(amount float64, symbol string) string {
	if strings.TrimSpace(symbol) == "" {
		symbol = DefaultSymbol
	}
	v := RoundTo2(amount)
	if v == math.Trunc(v) {
		return symbol + " " + strconv.FormatFloat(v, 'f', 0, 64)
	}
	return fmt.Sprintf("%s %.2f", symbol, v)
}

// LineTotal returns price*quantity rounded to cents.
func LineTotal(price float64, quantity int) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	d := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
	f, _ := d.Float64()
	return RoundTo2(f)
}

// Sum adds amounts without accumulating binary floating point error.
// Invalid amounts count as 0.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(a))
	}
	f, _ := total.Float64()
	return RoundTo2(f)
}
