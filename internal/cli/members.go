package cli

import (
	"context"

	"github.com/dmitrijs2005/cartsync/internal/store"
)

func (a *App) inviteMember(ctx context.Context, args []string) {
	if !a.requireList() || len(args) != 1 {
		printlnFn("Usage: invite <email>")
		return
	}

	outcome, err := a.store.InviteMember(ctx, a.currentList, args[0])
	if err != nil {
		printlnFn("Cannot invite:", err)
		return
	}
	if outcome == store.InviteLocalOnly {
		printlnFn("Added locally. No invitation was sent; sign in to invite for real.")
	} else {
		printlnFn("Invitation recorded for", args[0])
	}
	a.showItems(ctx)
}

func (a *App) removeMember(ctx context.Context, args []string) {
	if !a.requireList() || len(args) != 1 {
		printlnFn("Usage: uninvite <email>")
		return
	}
	if err := a.store.RemoveMember(ctx, a.currentList, args[0]); err != nil {
		printlnFn("Cannot remove member:", err)
		return
	}
	a.showItems(ctx)
}
