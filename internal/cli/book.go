package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/moneta/internal/models"
	"github.com/dmitrijs2005/moneta/internal/repositories/books"
)

// AddBook prompts for the book fields and creates it through the ledger.
func (a *App) AddBook(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "- Enter book name", a.out)
	if err != nil {
		return err
	}
	description, err := GetSimpleText(a.reader, "- Enter description (optional)", a.out)
	if err != nil {
		return err
	}
	category, err := GetSimpleText(a.reader, "- Enter category (optional)", a.out)
	if err != nil {
		return err
	}

	b, err := a.ledger.CreateBook(ctx, a.cfg.UserID, models.BookFields{
		Name:        name,
		Description: description,
		Category:    category,
	})
	if err != nil {
		a.log.Error(ctx, "failed to create book", "error", err)
		return err
	}
	fmt.Fprintf(a.out, "created book %s (%s)\n", b.Name, b.CID)
	return nil
}

// Books lists live books.
func (a *App) Books(ctx context.Context) error {
	bks, err := a.ledger.Books(ctx, a.cfg.UserID, books.Filter{})
	if err != nil {
		a.log.Error(ctx, "failed to list books", "error", err)
		return err
	}
	for _, b := range bks {
		fmt.Fprintf(a.out, "%s  %-20s %s\n", b.CID, b.Name, b.Category)
	}
	if len(bks) == 0 {
		fmt.Fprintln(a.out, "no books yet, use addbook")
	}
	return nil
}
