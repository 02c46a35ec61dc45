package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

// Destroy erases every photo and the catalog after an explicit confirmation.
// The encryption key is destroyed as a second, separate step so the two
// irreversible actions are never bundled silently.
func (a *App) Destroy(ctx context.Context) error {
	answer, err := getSimpleText(a.reader, "Type ERASE to destroy the vault contents", os.Stdout)
	if err != nil {
		return err
	}
	if answer != "ERASE" {
		fmt.Println("Aborted")
		return nil
	}

	if err := a.session.DestroyVault(ctx); err != nil {
		log.Printf("Error: %s", err.Error())
		return nil
	}
	fmt.Println("Vault contents destroyed")

	answer, err = getSimpleText(a.reader, "Also destroy the encryption key? Type ERASE KEY to confirm", os.Stdout)
	if err != nil {
		return err
	}
	if answer != "ERASE KEY" {
		fmt.Println("Encryption key kept")
		return nil
	}

	if err := a.engine.DestroyKey(ctx); err != nil {
		log.Printf("Error: %s", err.Error())
		return nil
	}
	fmt.Println("Encryption key destroyed")
	return nil
}
