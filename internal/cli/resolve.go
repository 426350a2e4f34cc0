package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/moneta/internal/conflict"
	"github.com/dmitrijs2005/moneta/internal/models"
)

// Conflicts prints every record awaiting resolution, both sides visible.
func (a *App) Conflicts(ctx context.Context) error {
	bks, ents, err := a.ledger.Conflicts(ctx, a.cfg.UserID)
	if err != nil {
		a.log.Error(ctx, "failed to list conflicts", "error", err)
		return err
	}

	for _, b := range bks {
		fmt.Fprintf(a.out, "book  %s  local: %q v%d\n", b.CID, b.Name, b.VKey)
		a.printRemoteSide(b.ServerData)
	}
	for _, e := range ents {
		fmt.Fprintf(a.out, "entry %s  local: %q %s v%d\n", e.CID, e.Title, e.Amount.String(), e.VKey)
		a.printRemoteSide(e.ServerData)
	}
	if len(bks) == 0 && len(ents) == 0 {
		fmt.Fprintln(a.out, "no conflicts")
	}
	return nil
}

func (a *App) printRemoteSide(serverData []byte) {
	var remote models.RemoteRecord
	if err := json.Unmarshal(serverData, &remote); err != nil {
		fmt.Fprintln(a.out, "  remote: <unreadable snapshot>")
		return
	}
	fmt.Fprintf(a.out, "  remote: v%d %s\n", remote.VKey, string(remote.Payload))
}

// Resolve registers a choice for a conflicted record. The choice becomes
// durable after the grace window unless undone.
func (a *App) Resolve(ctx context.Context) error {
	kind, cid, err := a.promptKindCID()
	if err != nil {
		return err
	}
	choiceText, err := GetSimpleText(a.reader, "- Keep which side? (local/remote)", a.out)
	if err != nil {
		return err
	}

	key, err := a.resolver.BeginResolve(ctx, a.cfg.UserID, kind, cid, conflict.Choice(choiceText))
	if err != nil {
		a.log.Error(ctx, "failed to start resolution", "cid", cid, "error", err)
		return err
	}
	a.lastResolve = &key
	fmt.Fprintf(a.out, "resolution pending, type undo within %s to cancel\n",
		a.cfg.ResolveGraceWindow)
	return nil
}

// Undo cancels the most recent pending resolution.
func (a *App) Undo(ctx context.Context) error {
	if a.lastResolve == nil {
		fmt.Fprintln(a.out, "nothing to undo")
		return nil
	}
	if err := a.resolver.Undo(*a.lastResolve); err != nil {
		a.log.Error(ctx, "failed to undo resolution", "error", err)
		return err
	}
	fmt.Fprintf(a.out, "resolution for %s cancelled\n", a.lastResolve.CID)
	a.lastResolve = nil
	return nil
}
