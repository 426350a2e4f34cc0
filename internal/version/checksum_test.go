package version

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/moneta/internal/models"
)

func TestNext_Increments(t *testing.T) {
	assert.Equal(t, int64(1), Next(0))
	assert.Equal(t, int64(2), Next(1))
	assert.Equal(t, int64(43), Next(42))
}

func TestEntryChecksum_Deterministic(t *testing.T) {
	f := models.EntryFields{
		Title:  "Groceries",
		Amount: decimal.RequireFromString("12.50"),
		Date:   "2025-03-01",
	}
	require.Equal(t, EntryChecksum(f), EntryChecksum(f))
}

func TestEntryChecksum_IgnoresIncidentalFormatting(t *testing.T) {
	a := models.EntryFields{
		Title:  "  Groceries ",
		Amount: decimal.RequireFromString("12.50"),
		Date:   "2025-03-01",
	}
	b := models.EntryFields{
		Title:  "groceries",
		Amount: decimal.RequireFromString("12.5"),
		Date:   "2025-03-01",
	}
	assert.Equal(t, EntryChecksum(a), EntryChecksum(b))
}

func TestEntryChecksum_SensitiveToSalientFields(t *testing.T) {
	base := models.EntryFields{
		Title:  "groceries",
		Amount: decimal.RequireFromString("12.5"),
		Date:   "2025-03-01",
	}

	amount := base
	amount.Amount = decimal.RequireFromString("12.51")
	assert.NotEqual(t, EntryChecksum(base), EntryChecksum(amount))

	date := base
	date.Date = "2025-03-02"
	assert.NotEqual(t, EntryChecksum(base), EntryChecksum(date))

	title := base
	title.Title = "rent"
	assert.NotEqual(t, EntryChecksum(base), EntryChecksum(title))
}

func TestEntryChecksum_IgnoresBookkeepingAdjacentFields(t *testing.T) {
	a := models.EntryFields{
		Title:  "coffee",
		Amount: decimal.RequireFromString("3.2"),
		Date:   "2025-03-01",
		Note:   "morning",
	}
	b := a
	b.Note = "evening"
	b.PaymentMethod = "card"

	assert.Equal(t, EntryChecksum(a), EntryChecksum(b))
}

func TestEntryChecksum_FieldBoundaries(t *testing.T) {
	// "ab" + "c" must not collide with "a" + "bc" in the canonical string.
	a := models.EntryFields{Title: "c", Amount: decimal.Zero, Date: "ab"}
	b := models.EntryFields{Title: "bc", Amount: decimal.Zero, Date: "a"}
	assert.NotEqual(t, EntryChecksum(a), EntryChecksum(b))
}

func TestBookChecksum_Normalized(t *testing.T) {
	a := models.BookFields{Name: " Household ", Description: "Shared costs", Category: "home"}
	b := models.BookFields{Name: "household", Description: "shared costs", Category: "HOME"}
	assert.Equal(t, BookChecksum(a), BookChecksum(b))

	c := b
	c.Name = "travel"
	assert.NotEqual(t, BookChecksum(b), BookChecksum(c))
}
