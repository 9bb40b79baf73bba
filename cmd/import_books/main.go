package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"library-lending/config"
	"library-lending/library"

	"github.com/spf13/cobra"
)

// Imports books from a CSV file laid out as
// title,author,publisher,isbn[,available,reserved]. Imported books always
// start available; the flag columns are accepted and ignored.
func main() {
	var envFile, dbPath, csvPath, actor string
	cmd := &cobra.Command{
		Use:          "import_books",
		Short:        "Import books from a CSV file into the catalog",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}

			ctx := cmd.Context()
			manager, err := library.NewLibraryManager(ctx, cfg.DBPath, cfg.Logger(cmd.ErrOrStderr()))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer manager.Close()

			f, err := os.Open(csvPath)
			if err != nil {
				return err
			}
			defer f.Close()

			fmt.Printf("Importing books from %s...\n", csvPath)
			librarian := library.Principal{Username: actor, Role: library.RoleLibrarian}
			res, err := importBooks(ctx, manager.Engine(), librarian, f)
			if err != nil {
				return fmt.Errorf("read %s: %w", csvPath, err)
			}

			fmt.Printf("\nImport complete!\n")
			fmt.Printf("Successfully imported: %d books\n", res.imported)
			fmt.Printf("Skipped (duplicate ISBN): %d\n", res.duplicates)
			fmt.Printf("Errors: %d\n", res.errors)
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env", ".env", "optional dotenv file")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides LMS_DB_PATH)")
	cmd.Flags().StringVar(&csvPath, "file", "books.txt", "CSV file to import")
	cmd.Flags().StringVar(&actor, "librarian", "admin", "librarian account recorded as the importer")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type result struct {
	imported, duplicates, errors int
}

// importBooks adds every CSV row to the catalog, reporting per-row failures
// and carrying on.
func importBooks(ctx context.Context, e *library.Engine, actor library.Principal, r io.Reader) (result, error) {
	var res result
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		if len(rec) < 4 {
			fmt.Printf("Line %d: ERROR - want at least 4 fields, got %d\n", line, len(rec))
			res.errors++
			continue
		}

		b := library.Book{
			Title:     strings.TrimSpace(rec[0]),
			Author:    strings.TrimSpace(rec[1]),
			Publisher: strings.TrimSpace(rec[2]),
			ISBN:      strings.TrimSpace(rec[3]),
		}
		switch err := e.AddBook(ctx, actor, b); {
		case errors.Is(err, library.ErrDuplicateISBN):
			fmt.Printf("Line %d: skipped %s, ISBN already in catalog\n", line, b.ISBN)
			res.duplicates++
		case err != nil:
			fmt.Printf("Line %d: ERROR - %v\n", line, err)
			res.errors++
			if errors.Is(err, library.ErrPersistence) {
				return res, err
			}
		default:
			fmt.Printf("Importing: %s by %s... SUCCESS\n", b.Title, b.Author)
			res.imported++
		}
	}
}
