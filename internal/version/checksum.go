package version

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"github.com/dmitrijs2005/moneta/internal/models"
)

// Field separator inside the canonical string. Not expected in normalized
// values, keeps "ab"+"c" distinct from "a"+"bc".
const fieldSep = "\x1f"

// NormalizeText trims surrounding whitespace and case-folds, so that
// semantically identical values checksum identically regardless of incidental
// formatting.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeAmount renders a decimal in its canonical form: no trailing
// zeros, no superfluous sign, "12.50" and "12.5" collapse to one value.
func NormalizeAmount(d decimal.Decimal) string {
	return d.String()
}

func digest(fields ...string) string {
	h := xxhash.New()
	for i, f := range fields {
		if i > 0 {
			_, _ = h.WriteString(fieldSep)
		}
		_, _ = h.WriteString(f)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// EntryChecksum digests an entry's salient business fields: amount, date and
// title. Bookkeeping fields (timestamps, sync flags) never participate, so
// the remote authority can re-derive the same digest from the same payload.
func EntryChecksum(f models.EntryFields) string {
	return digest(
		NormalizeAmount(f.Amount),
		NormalizeText(f.Date),
		NormalizeText(f.Title),
	)
}

// BookChecksum digests a book's identity fields: name, description and
// category.
func BookChecksum(f models.BookFields) string {
	return digest(
		NormalizeText(f.Name),
		NormalizeText(f.Description),
		NormalizeText(f.Category),
	)
}
