package models

import "github.com/shopspring/decimal"

// Direction classifies an entry as money in or money out.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// Status is the settlement state of an entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Entry is a single financial record inside a Book.
type Entry struct {
	LocalRecord

	// BookID is the owning book's CID. It is resolved to the book's server
	// identity through the id bridge, since the two may differ before the
	// book's first sync.
	BookID string

	Title         string
	Amount        decimal.Decimal
	Direction     Direction
	Category      string
	PaymentMethod string
	Note          string
	Status        Status
	Date          string // YYYY-MM-DD
	Time          string // HH:MM
	Pinned        bool
}

// EntryFields is the business payload of an Entry, the part exchanged with
// the remote authority and covered by the checksum.
type EntryFields struct {
	BookID        string          `json:"book_id"`
	Title         string          `json:"title"`
	Amount        decimal.Decimal `json:"amount"`
	Direction     Direction       `json:"direction"`
	Category      string          `json:"category"`
	PaymentMethod string          `json:"payment_method"`
	Note          string          `json:"note"`
	Status        Status          `json:"status"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Pinned        bool            `json:"pinned"`
}

// Fields extracts the business payload.
func (e *Entry) Fields() EntryFields {
	return EntryFields{
		BookID:        e.BookID,
		Title:         e.Title,
		Amount:        e.Amount,
		Direction:     e.Direction,
		Category:      e.Category,
		PaymentMethod: e.PaymentMethod,
		Note:          e.Note,
		Status:        e.Status,
		Date:          e.Date,
		Time:          e.Time,
		Pinned:        e.Pinned,
	}
}

// ApplyFields overwrites the business payload, leaving bookkeeping fields
// untouched.
func (e *Entry) ApplyFields(f EntryFields) {
	e.BookID = f.BookID
	e.Title = f.Title
	e.Amount = f.Amount
	e.Direction = f.Direction
	e.Category = f.Category
	e.PaymentMethod = f.PaymentMethod
	e.Note = f.Note
	e.Status = f.Status
	e.Date = f.Date
	e.Time = f.Time
	e.Pinned = f.Pinned
}
