package cli

import (
	"context"
	"errors"
	"os"

	"github.com/dmitrijs2005/cartsync/internal/common"
)

func (a *App) login(ctx context.Context) {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil || email == "" {
		return
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return
	}
	remember, err := GetYesNo(a.reader, "Remember me?", os.Stdout)
	if err != nil {
		return
	}

	if _, err := a.auth.SignInWithEmail(ctx, email, password, remember); err != nil {
		switch {
		case errors.Is(err, common.ErrUnauthorized):
			printlnFn("Wrong email or password.")
		case errors.Is(err, common.ErrBackendOffline):
			printlnFn("Backend unreachable, staying local.")
		default:
			printlnFn("Sign-in failed:", err)
		}
		return
	}
	printlnFn("Signed in.")
	a.store.Refresh(ctx)
}

func (a *App) register(ctx context.Context) {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil || email == "" {
		return
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return
	}

	if _, err := a.auth.SignUpWithEmail(ctx, email, password); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			printlnFn("An account with that email already exists.")
		} else {
			printlnFn("Sign-up failed:", err)
		}
		return
	}
	printlnFn("Account created, signed in.")
	a.store.Refresh(ctx)
}

func (a *App) logout(ctx context.Context) {
	_ = a.auth.SignOut(ctx)
	_, _ = a.auth.SignInAnonymously(ctx)
	a.currentList = ""
	printlnFn("Signed out, back in Local Mode.")
}

func (a *App) whoami() {
	u := a.store.User()
	if u == nil {
		printlnFn("Nobody yet.")
		return
	}
	mode := "local"
	if a.isSignedIn() {
		mode = "remote"
	}
	printlnFn(u.Key(), "("+mode+" mode)")
}
