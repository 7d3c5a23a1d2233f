// Command seed fills a ledger database from a YAML catalog of authors,
// books and patrons.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"library-ledger/config"
	"library-ledger/internal/logging"
	"library-ledger/library"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Authors []CatalogAuthor `yaml:"authors"`
	Patrons []CatalogPatron `yaml:"patrons"`
}

type CatalogAuthor struct {
	Name  string        `yaml:"name"`
	Books []CatalogBook `yaml:"books"`
}

type CatalogBook struct {
	Title string `yaml:"title"`
	Genre string `yaml:"genre"`
}

type CatalogPatron struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Summary counts what an import created and what it skipped.
type Summary struct {
	Authors, Books, Patrons int
	Errors                  int
}

func loadCatalog(path string) (Catalog, error) {
	var cat Catalog
	data, err := os.ReadFile(path)
	if err != nil {
		return cat, fmt.Errorf("read catalog: %w", err)
	}
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return cat, fmt.Errorf("parse catalog: %w", err)
	}
	return cat, nil
}

// wipeDatabase removes the database file and its WAL companions.
func wipeDatabase(w io.Writer, dbPath string) error {
	fmt.Fprintln(w, "Cleaning up existing database files...")
	for _, file := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", file, err)
		}
	}
	return nil
}

// importCatalog adds every entry it can. A failing author skips its books;
// other failures are counted and reported, not fatal.
func importCatalog(ctx context.Context, w io.Writer, mgr *library.LibraryManager, cat Catalog) Summary {
	var sum Summary
	for _, a := range cat.Authors {
		fmt.Fprintf(w, "Importing author: %s... ", a.Name)
		authorID, err := mgr.AddAuthor(ctx, a.Name)
		if err != nil {
			fmt.Fprintf(w, "ERROR - %v\n", err)
			sum.Errors++
			continue
		}
		fmt.Fprintf(w, "SUCCESS (ID: %d)\n", authorID)
		sum.Authors++

		for _, b := range a.Books {
			fmt.Fprintf(w, "  Importing: %s... ", b.Title)
			bookID, err := mgr.AddBook(ctx, authorID, b.Title, b.Genre)
			if err != nil {
				fmt.Fprintf(w, "ERROR - %v\n", err)
				sum.Errors++
				continue
			}
			fmt.Fprintf(w, "SUCCESS (ID: %d)\n", bookID)
			sum.Books++
		}
	}
	for _, p := range cat.Patrons {
		fmt.Fprintf(w, "Registering patron: %s... ", p.Name)
		patronID, err := mgr.AddPatron(ctx, p.Name, p.Email)
		if err != nil {
			fmt.Fprintf(w, "ERROR - %s: %v\n", library.KindName(err), err)
			sum.Errors++
			continue
		}
		fmt.Fprintf(w, "SUCCESS (ID: %d)\n", patronID)
		sum.Patrons++
	}
	return sum
}

func printSummary(w io.Writer, sum Summary, books []library.Book) {
	fmt.Fprintf(w, "\nImport complete!\n")
	fmt.Fprintf(w, "Imported: %d authors, %d books, %d patrons\n", sum.Authors, sum.Books, sum.Patrons)
	fmt.Fprintf(w, "Errors: %d\n", sum.Errors)
	if len(books) == 0 {
		return
	}
	fmt.Fprintln(w, "\nImported books:")
	fmt.Fprintf(w, "%-3s %-50s %-20s\n", "ID", "Title", "Genre")
	fmt.Fprintln(w, strings.Repeat("-", 75))
	for _, b := range books {
		fmt.Fprintf(w, "%-3d %-50s %-20s\n", b.ID, truncateString(b.Title, 50), truncateString(b.Genre, 20))
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func newSeedCmd(out io.Writer) *cobra.Command {
	var (
		configPath string
		dbPath     string
		wipe       bool
	)
	cmd := &cobra.Command{
		Use:          "seed <catalog.yaml>",
		Short:        "Import authors, books and patrons from a YAML catalog",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			logger := logging.Init(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

			cat, err := loadCatalog(args[0])
			if err != nil {
				return err
			}
			if wipe {
				if err := wipeDatabase(out, cfg.DBPath); err != nil {
					return err
				}
			}

			mgr, err := library.NewLibraryManager(cfg.DBPath,
				library.WithLogger(logger),
				library.WithDatabaseOptions(library.WithBusyTimeout(cfg.BusyTimeout())),
			)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer mgr.Close()

			ctx := cmd.Context()
			sum := importCatalog(ctx, out, mgr, cat)
			books, err := mgr.ListBooks(ctx)
			if err != nil {
				return err
			}
			printSummary(out, sum, books)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath+" if present)")
	cmd.Flags().StringVar(&dbPath, "db", "", "database file, overrides config")
	cmd.Flags().BoolVar(&wipe, "wipe", false, "remove the existing database before importing")
	return cmd
}

func main() {
	if err := newSeedCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
