package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/photovault/internal/common"
)

// getSimpleText and getPIN are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPIN = GetPIN

// SetPIN sets the vault PIN. First-time setup works while locked; changing
// an existing PIN requires an unlocked session.
func (a *App) SetPIN(ctx context.Context) error {
	pin, err := getPIN("Enter new PIN", os.Stdout)
	if err != nil {
		return err
	}
	confirm, err := getPIN("Repeat new PIN", os.Stdout)
	if err != nil {
		return err
	}
	if pin != confirm {
		fmt.Println("PINs do not match")
		return nil
	}

	if err := a.session.SetCredential(ctx, pin); err != nil {
		if errors.Is(err, common.ErrVaultLocked) {
			fmt.Println("Unlock the vault first to change the PIN")
			return nil
		}
		return err
	}

	fmt.Println("PIN set")
	return nil
}

// Unlock prompts for the PIN and opens the vault. Lockout and mismatch
// outcomes are explained to the user, including the remaining wait time.
func (a *App) Unlock(ctx context.Context) error {
	has, err := a.session.HasCredential(ctx)
	if err != nil {
		return err
	}
	if !has {
		fmt.Println("No PIN is set yet, use 'setpin' first")
		return nil
	}

	pin, err := getPIN("Enter PIN", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.Unlock(ctx, pin); err != nil {
		switch {
		case errors.Is(err, common.ErrLockedOut):
			status, serr := a.session.Status(ctx)
			if serr == nil {
				fmt.Printf("Too many failed attempts, try again in %s\n", status.LockoutRemaining.Round(time.Second))
			} else {
				fmt.Println("Too many failed attempts, try again later")
			}
		case errors.Is(err, common.ErrCredentialMismatch):
			status, serr := a.session.Status(ctx)
			if serr == nil && status.RemainingAttempts > 0 {
				fmt.Printf("Wrong PIN, %d attempts left before lockout\n", status.RemainingAttempts)
			} else {
				fmt.Println("Wrong PIN")
			}
		default:
			log.Printf("Error: %s", err.Error())
		}
		return nil
	}

	fmt.Println("Vault unlocked")
	return nil
}

// Lock locks the vault immediately.
func (a *App) Lock(ctx context.Context) error {
	a.session.Lock()
	fmt.Println("Vault locked")
	return nil
}
