package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/config"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/planner"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// plannerDoc is the YAML layout used by export and import.
type plannerDoc struct {
	Items []models.PlannerItem `yaml:"items"`
}

type storeOptions struct {
	backend string
	file    string
}

func (o storeOptions) env(getenv func(string) string) func(string) string {
	return func(k string) string {
		switch {
		case k == "PLANNER_BACKEND" && o.backend != "":
			return o.backend
		case k == "PLANNER_FILE" && o.file != "":
			return o.file
		}
		if getenv == nil {
			return ""
		}
		return getenv(k)
	}
}

// openStore builds the planner backend named by o (or the environment).
func openStore(ctx context.Context, d deps, o storeOptions) (planner.Store, func(), error) {
	cfg, err := config.Load(o.env(d.getenv))
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Planner.Backend {
	case "postgres":
		if d.openDB == nil {
			return nil, nil, errors.New("openDB dependency is required")
		}
		db, err := d.openDB("postgres", cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("Failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("Failed to ping database: %w", err)
		}
		return planner.NewPostgresStore(db), func() { _ = db.Close() }, nil
	case "redis":
		client, err := planner.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("Failed to ping redis: %w", err)
		}
		return planner.NewRedisStore(client, "nocturnal:planner"), func() { _ = client.Close() }, nil
	default:
		return planner.NewFileStore(cfg.Planner.FilePath), func() {}, nil
	}
}

func addStoreFlags(cmd *cobra.Command, o *storeOptions) {
	cmd.Flags().StringVar(&o.backend, "backend", "", "planner backend: file, postgres or redis (default from PLANNER_BACKEND)")
	cmd.Flags().StringVar(&o.file, "file", "", "planner JSON file for the file backend (default from PLANNER_FILE)")
}

func newListCmd(d deps) *cobra.Command {
	var o storeOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print planner items as a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(cmd.Context(), d, o)
			if err != nil {
				return err
			}
			defer closeFn()
			items, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), items)
		},
	}
	addStoreFlags(cmd, &o)
	return cmd
}

func printItems(w io.Writer, items []models.PlannerItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No planner items.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPLATFORM\tSTATUS\tTOPIC")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Date, it.Platform, it.Status, it.Topic)
	}
	return tw.Flush()
}

func newExportCmd(d deps) *cobra.Command {
	var o storeOptions
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write planner items as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(cmd.Context(), d, o)
			if err != nil {
				return err
			}
			defer closeFn()
			items, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(plannerDoc{Items: items}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	addStoreFlags(cmd, &o)
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file (- for stdout)")
	return cmd
}

func newImportCmd(d deps) *cobra.Command {
	var o storeOptions
	var in string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert planner items from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if in != "" && in != "-" {
				f, err := os.Open(in)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var doc plannerDoc
			if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("decode %s: %w", in, err)
			}
			store, closeFn, err := openStore(cmd.Context(), d, o)
			if err != nil {
				return err
			}
			defer closeFn()
			n, err := upsertAll(cmd.Context(), store, doc.Items)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d planner items\n", n)
			return nil
		},
	}
	addStoreFlags(cmd, &o)
	cmd.Flags().StringVarP(&in, "input", "i", "-", "input file (- for stdin)")
	return cmd
}

func upsertAll(ctx context.Context, store planner.Store, items []models.PlannerItem) (int, error) {
	for i, it := range items {
		if _, err := store.Upsert(ctx, it); err != nil {
			return i, fmt.Errorf("upsert item %d (id=%q): %w", i, it.ID, err)
		}
	}
	return len(items), nil
}

func newCopyCmd(d deps) *cobra.Command {
	var from, to storeOptions
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy every planner item from one backend to another",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == to {
				return errors.New("--from and --to select the same store")
			}
			src, closeSrc, err := openStore(cmd.Context(), d, from)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer closeSrc()
			dst, closeDst, err := openStore(cmd.Context(), d, to)
			if err != nil {
				return fmt.Errorf("open destination: %w", err)
			}
			defer closeDst()

			items, err := src.List(cmd.Context())
			if err != nil {
				return err
			}
			n, err := upsertAll(cmd.Context(), dst, items)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %d planner items\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&from.backend, "from", "", "source backend")
	cmd.Flags().StringVar(&from.file, "from-file", "", "source planner file")
	cmd.Flags().StringVar(&to.backend, "to", "", "destination backend")
	cmd.Flags().StringVar(&to.file, "to-file", "", "destination planner file")
	return cmd
}

