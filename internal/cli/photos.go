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

// Add reads a photo file from disk and admits it to the vault. The file's
// modification time is recorded as the original timestamp and its path as
// the advisory source reference.
func (a *App) Add(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Enter path to photo", os.Stdout)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return nil
	}

	dup, err := a.session.ContainsSourceRef(ctx, path)
	if err == nil && dup {
		fmt.Println("Note: a photo with this source path is already vaulted")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return nil
	}

	item, err := a.session.AddItem(ctx, content, info.ModTime().UTC(), path)
	if err != nil {
		if errors.Is(err, common.ErrInsufficientStorage) {
			fmt.Println("Not enough free disk space to vault this photo")
			return nil
		}
		log.Printf("Error: %s", err.Error())
		return nil
	}

	fmt.Printf("Added %s\n", item.ID)
	return nil
}

// List prints the catalog: id, timestamps, and source reference.
func (a *App) List(ctx context.Context) error {
	items, err := a.session.ListItems(ctx)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return nil
	}

	if len(items) == 0 {
		fmt.Println("The vault is empty")
		return nil
	}
	for _, item := range items {
		fmt.Printf("%s  taken %s  added %s  %s\n",
			item.ID,
			item.OriginalTimestamp.Format(time.DateTime),
			item.AddedTimestamp.Format(time.DateTime),
			item.SourceRef)
	}
	return nil
}

// Show decrypts a photo and writes it to a file of the user's choosing.
func (a *App) Show(ctx context.Context) error {
	return a.export(ctx, "photo", a.session.GetContent)
}

// Thumb decrypts a thumbnail and writes it to a file of the user's choosing.
func (a *App) Thumb(ctx context.Context) error {
	return a.export(ctx, "thumbnail", a.session.GetThumbnail)
}

func (a *App) export(ctx context.Context, what string, get func(context.Context, string) ([]byte, error)) error {
	id, err := getSimpleText(a.reader, "Enter photo id", os.Stdout)
	if err != nil {
		return err
	}

	data, err := get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrItemNotFound):
			fmt.Println("No such photo")
		case errors.Is(err, common.ErrTamperOrCorruption):
			fmt.Println("The stored data failed integrity verification and cannot be opened")
		default:
			log.Printf("Error: %s", err.Error())
		}
		return nil
	}

	out, err := getSimpleText(a.reader, fmt.Sprintf("Enter output path for the %s", what), os.Stdout)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o600); err != nil {
		log.Printf("Error: %s", err.Error())
		return nil
	}

	fmt.Printf("Wrote %d bytes to %s\n", len(data), out)
	return nil
}

// Delete removes a photo from the vault.
func (a *App) Delete(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter photo id to delete", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, common.ErrItemNotFound) {
			fmt.Println("No such photo")
			return nil
		}
		log.Printf("Error: %s", err.Error())
		return nil
	}

	fmt.Println("Deleted")
	return nil
}

// Stats prints the item count and total encrypted size on disk.
func (a *App) Stats(ctx context.Context) error {
	stats, err := a.session.Statistics(ctx)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return nil
	}

	fmt.Printf("Photos: %d\n", stats.Count)
	fmt.Printf("Encrypted size on disk: %d bytes\n", stats.TotalBytes)
	return nil
}

// Sweep removes orphaned blobs left behind by interrupted additions.
func (a *App) Sweep(ctx context.Context) error {
	removed, err := a.session.SweepOrphans(ctx)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return nil
	}

	fmt.Printf("Removed %d orphaned blobs\n", removed)
	return nil
}
