package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/cartsync/internal/lifecycle"
	"github.com/dmitrijs2005/cartsync/internal/models"
)

func (a *App) showLists(ctx context.Context) {
	lists := a.store.Lists(ctx)
	if len(lists) == 0 {
		printlnFn("No lists yet. Create one with: new <name>")
		return
	}

	a.listView = a.listView[:0]
	for n, l := range lists {
		a.listView = append(a.listView, l.ID)
		marker := " "
		if l.ID == a.currentList {
			marker = "*"
		}
		printlnFn(fmt.Sprintf("%s %2d. %s  (%d items, %d members)",
			marker, n+1, l.Name, len(l.Items), len(l.Members)))
	}
}

func (a *App) newList(ctx context.Context, args []string) {
	if len(args) == 0 {
		printlnFn("Usage: new <name> [email...]")
		return
	}

	name := args[0]
	var members []string
	for _, arg := range args[1:] {
		if strings.Contains(arg, "@") {
			members = append(members, arg)
		} else {
			// bare words extend the name, emails become members
			name += " " + arg
		}
	}

	id, err := a.store.CreateList(ctx, name, members)
	if err != nil {
		printlnFn("Cannot create list:", err)
		return
	}
	if id != "" {
		a.currentList = id
	}
	a.showLists(ctx)
}

func (a *App) useList(ctx context.Context, args []string) {
	if len(args) != 1 {
		printlnFn("Usage: use <n>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(a.listView) {
		printlnFn("Pick a number from the 'lists' output.")
		return
	}
	a.currentList = a.listView[n-1]
	a.showItems(ctx)
}

// showItems renders the selected list partitioned by lifecycle stage and
// records the displayed item ids so other commands can address them by
// number.
func (a *App) showItems(ctx context.Context) {
	l, ok := a.selectedList(ctx)
	if !ok {
		printlnFn("No list selected. Use: lists, then: use <n>")
		return
	}

	printlnFn(fmt.Sprintf("%s  owner=%s  members=%s",
		l.Name, l.Owner, strings.Join(l.Members, ",")))

	var active, recent, archived []models.Item
	for _, it := range l.Items {
		switch a.store.Stage(it) {
		case lifecycle.StageActive:
			active = append(active, it)
		case lifecycle.StageRecentlyCompleted:
			recent = append(recent, it)
		default:
			archived = append(archived, it)
		}
	}

	a.itemView = a.itemView[:0]
	n := 0
	printSection := func(title string, items []models.Item) {
		if len(items) == 0 {
			return
		}
		printlnFn(title)
		for _, it := range items {
			n++
			a.itemView = append(a.itemView, it.ID)
			printlnFn("  " + formatItem(n, it))
		}
	}
	printSection("Active:", active)
	printSection("Just completed:", recent)
	printSection("History:", archived)
	if n == 0 {
		printlnFn("(empty)")
	}
}

func formatItem(n int, it models.Item) string {
	mark := "[ ]"
	if it.Done {
		mark = "[x]"
	}
	s := fmt.Sprintf("%2d. %s %s", n, mark, it.Name)
	if it.Repeating != models.RepeatNone {
		s += " (" + string(it.Repeating) + ")"
	}
	if it.Description != "" {
		s += " - " + it.Description
	}
	return s
}

// resolveItem maps a 1-based display number to an item id.
func (a *App) resolveItem(arg string) (string, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(a.itemView) {
		printlnFn("Pick a number from the 'show' output.")
		return "", false
	}
	return a.itemView[n-1], true
}
