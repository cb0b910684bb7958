package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) status() string {
	s := ""
	if u := a.store.User(); u != nil {
		s = u.Key()
	}
	if a.isSignedIn() {
		s += " remote"
	} else {
		s += " local"
	}
	return "(" + strings.TrimSpace(s) + ")"
}

// Root runs the command loop until EOF or an exit command.
func (a *App) Root(ctx context.Context) {
	printlnFn("cartsync (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("cart %s> ", a.status())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			a.help()
		case "login":
			a.login(ctx)
		case "register":
			a.register(ctx)
		case "logout":
			a.logout(ctx)
		case "whoami":
			a.whoami()
		case "l", "lists":
			a.showLists(ctx)
		case "new":
			a.newList(ctx, args)
		case "use":
			a.useList(ctx, args)
		case "show":
			a.showItems(ctx)
		case "add":
			a.addItem(ctx, args)
		case "done":
			a.toggleItem(ctx, args)
		case "rename":
			a.renameItem(ctx, args)
		case "desc":
			a.describeItem(ctx, args)
		case "repeat":
			a.cycleRepeat(ctx, args)
		case "rm":
			a.removeItem(ctx, args)
		case "move":
			a.moveItem(ctx, args)
		case "restore":
			a.restoreItem(ctx, args)
		case "clear":
			a.clearHistory(ctx)
		case "invite":
			a.inviteMember(ctx, args)
		case "uninvite":
			a.removeMember(ctx, args)
		case "refresh":
			a.store.Refresh(ctx)
			a.showItems(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func (a *App) help() {
	printlnFn("Lists:    (l)ists, new <name> [email...], use <n>, show, refresh")
	printlnFn("Items:    add <name>, done <n>, rename <n> <name>, desc <n> <text>,")
	printlnFn("          repeat <n>, rm <n>, move <n> <order>, restore <n>, clear")
	printlnFn("Members:  invite <email>, uninvite <email>")
	printlnFn("Account:  login, register, logout, whoami")
	printlnFn("Other:    help, exit")
}
