package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/photovault/internal/common"
)

// Recover issues a one-time recovery code. It deliberately works while
// locked out; the code is the escape hatch from a forgotten PIN.
func (a *App) Recover(ctx context.Context) error {
	code, err := a.session.IssueRecoveryCode(ctx)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return nil
	}

	fmt.Printf("Recovery code: %s\n", code)
	fmt.Println("It is valid for 15 minutes and works exactly once.")
	return nil
}

// ResetPIN trades a recovery code for a new PIN and clears any lockout.
// The vault stays locked afterwards; unlock with the new PIN.
func (a *App) ResetPIN(ctx context.Context) error {
	code, err := getSimpleText(a.reader, "Enter recovery code", os.Stdout)
	if err != nil {
		return err
	}

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

	if err := a.session.ResetWithRecoveryCode(ctx, code, pin); err != nil {
		if errors.Is(err, common.ErrRecoveryCodeInvalid) {
			fmt.Println("The recovery code is invalid or expired; request a new one with 'recover'")
			return nil
		}
		log.Printf("Error: %s", err.Error())
		return nil
	}

	fmt.Println("PIN reset, unlock the vault with the new PIN")
	return nil
}
