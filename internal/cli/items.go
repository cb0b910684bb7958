package cli

import (
	"context"
	"os"
	"strconv"
	"strings"
)

func (a *App) requireList() bool {
	if a.currentList == "" {
		printlnFn("No list selected. Use: lists, then: use <n>")
		return false
	}
	return true
}

func (a *App) addItem(ctx context.Context, args []string) {
	if !a.requireList() {
		return
	}
	if len(args) == 0 {
		printlnFn("Usage: add <name>")
		return
	}
	if err := a.store.AddItem(ctx, a.currentList, strings.Join(args, " ")); err != nil {
		printlnFn("Cannot add item:", err)
		return
	}
	a.showItems(ctx)
}

func (a *App) toggleItem(ctx context.Context, args []string) {
	if !a.requireList() || len(args) != 1 {
		printlnFn("Usage: done <n>")
		return
	}
	id, ok := a.resolveItem(args[0])
	if !ok {
		return
	}
	if err := a.store.ToggleItemDone(ctx, a.currentList, id); err != nil {
		printlnFn("Cannot toggle item:", err)
		return
	}
	a.showItems(ctx)
}

func (a *App) renameItem(ctx context.Context, args []string) {
	if !a.requireList() || len(args) < 2 {
		printlnFn("Usage: rename <n> <new name>")
		return
	}
	id, ok := a.resolveItem(args[0])
	if !ok {
		return
	}
	if err := a.store.UpdateItemName(ctx, a.currentList, id, strings.Join(args[1:], " ")); err != nil {
		printlnFn("Cannot rename item:", err)
		return
	}
	a.showItems(ctx)
}

func (a *App) describeItem(ctx context.Context, args []string) {
	if !a.requireList() || len(args) < 1 {
		printlnFn("Usage: desc <n> [text]")
		return
	}
	id, ok := a.resolveItem(args[0])
	if !ok {
		return
	}
	if err := a.store.UpdateItemDescription(ctx, a.currentList, id, strings.Join(args[1:], " ")); err != nil {
		printlnFn("Cannot update description:", err)
		return
	}
	a.showItems(ctx)
}

func (a *App) cycleRepeat(ctx context.Context, args []string) {
	if !a.requireList() || len(args) != 1 {
		printlnFn("Usage: repeat <n>")
		return
	}
	id, ok := a.resolveItem(args[0])
	if !ok {
		return
	}
	if err := a.store.CycleItemRepeat(ctx, a.currentList, id); err != nil {
		printlnFn("Cannot change repeat:", err)
		return
	}
	a.showItems(ctx)
}

func (a *App) removeItem(ctx context.Context, args []string) {
	if !a.requireList() || len(args) != 1 {
		printlnFn("Usage: rm <n>")
		return
	}
	id, ok := a.resolveItem(args[0])
	if !ok {
		return
	}
	if err := a.store.RemoveItem(ctx, a.currentList, id); err != nil {
		printlnFn("Cannot remove item:", err)
		return
	}
	a.showItems(ctx)
}

func (a *App) moveItem(ctx context.Context, args []string) {
	if !a.requireList() || len(args) != 2 {
		printlnFn("Usage: move <n> <order>")
		return
	}
	id, ok := a.resolveItem(args[0])
	if !ok {
		return
	}
	order, err := strconv.Atoi(args[1])
	if err != nil {
		printlnFn("Usage: move <n> <order>")
		return
	}
	if err := a.store.UpdateItemOrder(ctx, a.currentList, id, order); err != nil {
		printlnFn("Cannot move item:", err)
		return
	}
	a.showItems(ctx)
}

func (a *App) restoreItem(ctx context.Context, args []string) {
	if !a.requireList() || len(args) != 1 {
		printlnFn("Usage: restore <n>")
		return
	}
	id, ok := a.resolveItem(args[0])
	if !ok {
		return
	}
	if _, err := a.store.RestoreFromHistory(ctx, a.currentList, id); err != nil {
		printlnFn("Cannot restore item:", err)
		return
	}
	a.showItems(ctx)
}

func (a *App) clearHistory(ctx context.Context) {
	if !a.requireList() {
		return
	}
	confirmed, err := GetYesNo(a.reader, "Delete all completed items? This cannot be undone.", os.Stdout)
	if err != nil || !confirmed {
		return
	}
	if err := a.store.ClearListHistory(ctx, a.currentList); err != nil {
		printlnFn("Cannot clear history:", err)
		return
	}
	a.showItems(ctx)
}
