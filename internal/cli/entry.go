package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dmitrijs2005/moneta/internal/models"
	"github.com/dmitrijs2005/moneta/internal/repositories/entries"
)

// AddEntry prompts for the entry fields and creates it through the ledger.
func (a *App) AddEntry(ctx context.Context) error {
	bookID, err := GetSimpleText(a.reader, "- Enter book id", a.out)
	if err != nil {
		return err
	}
	title, err := GetSimpleText(a.reader, "- Enter title", a.out)
	if err != nil {
		return err
	}
	amountText, err := GetSimpleText(a.reader, "- Enter amount", a.out)
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		a.log.Error(ctx, "invalid amount", "value", amountText, "error", err)
		return err
	}
	directionText, err := GetSimpleText(a.reader, "- Enter direction (income/expense, default expense)", a.out)
	if err != nil {
		return err
	}
	direction := models.Direction(directionText)
	if directionText == "" {
		direction = models.DirectionExpense
	}
	date, err := GetSimpleText(a.reader, "- Enter date (YYYY-MM-DD)", a.out)
	if err != nil {
		return err
	}

	e, err := a.ledger.CreateEntry(ctx, a.cfg.UserID, models.EntryFields{
		BookID:    bookID,
		Title:     title,
		Amount:    amount,
		Direction: direction,
		Status:    models.StatusCompleted,
		Date:      date,
	})
	if err != nil {
		a.log.Error(ctx, "failed to create entry", "error", err)
		return err
	}
	fmt.Fprintf(a.out, "created entry %s (%s)\n", e.Title, e.CID)
	return nil
}

// List prints live entries, newest first.
func (a *App) List(ctx context.Context) error {
	ents, err := a.ledger.Entries(ctx, a.cfg.UserID, entries.Filter{})
	if err != nil {
		a.log.Error(ctx, "failed to list entries", "error", err)
		return err
	}
	for _, e := range ents {
		sign := "-"
		if e.Direction == models.DirectionIncome {
			sign = "+"
		}
		fmt.Fprintf(a.out, "%s  %s  %s%-10s %s\n", e.CID, e.Date, sign, e.Amount.String(), e.Title)
	}
	if len(ents) == 0 {
		fmt.Fprintln(a.out, "no entries yet, use add")
	}
	return nil
}

// Delete tombstones a book or an entry.
func (a *App) Delete(ctx context.Context) error {
	kind, cid, err := a.promptKindCID()
	if err != nil {
		return err
	}

	switch kind {
	case models.KindBook:
		err = a.ledger.DeleteBook(ctx, a.cfg.UserID, cid)
	case models.KindEntry:
		err = a.ledger.DeleteEntry(ctx, a.cfg.UserID, cid)
	}
	if err != nil {
		a.log.Error(ctx, "failed to delete record", "cid", cid, "error", err)
		return err
	}
	fmt.Fprintf(a.out, "deleted %s %s\n", string(kind), cid)
	return nil
}

// Restore undoes an entry tombstone.
func (a *App) Restore(ctx context.Context) error {
	cid, err := GetSimpleText(a.reader, "- Enter entry id", a.out)
	if err != nil {
		return err
	}
	e, err := a.ledger.RestoreEntry(ctx, a.cfg.UserID, cid)
	if err != nil {
		a.log.Error(ctx, "failed to restore entry", "cid", cid, "error", err)
		return err
	}
	fmt.Fprintf(a.out, "restored entry %s (%s)\n", e.Title, e.CID)
	return nil
}

func (a *App) promptKindCID() (models.Kind, string, error) {
	kindText, err := GetSimpleText(a.reader, "- Enter kind (book/entry, default entry)", a.out)
	if err != nil {
		return "", "", err
	}
	kind := models.KindEntry
	if kindText == string(models.KindBook) {
		kind = models.KindBook
	}
	cid, err := GetSimpleText(a.reader, "- Enter record id", a.out)
	if err != nil {
		return "", "", err
	}
	return kind, cid, nil
}
