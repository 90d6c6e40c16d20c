package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Zereker/cvstore/internal/action"
	"github.com/Zereker/cvstore/internal/domain"
	"github.com/Zereker/cvstore/internal/server"
)

// withFiles loads the config, builds the dependencies and runs fn against them.
func withFiles(fn func(files *action.Files) error) error {
	conf, err := server.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	srv, err := server.NewServer(conf)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() { _ = srv.Shutdown() }()

	return fn(srv.Files())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newIngestCommand() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Upload CV files as one all-or-nothing batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &domain.UploadRequest{AcceptLanguage: lang}
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()

				info, err := f.Stat()
				if err != nil {
					return err
				}
				req.Files = append(req.Files, domain.UploadFile{
					Name:   filepath.Base(path),
					Size:   info.Size(),
					Reader: f,
				})
			}

			return withFiles(func(files *action.Files) error {
				saved, err := files.Upload(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(saved)
			})
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Content language, in Accept-Language form (e.g. \"pl-PL\" or \"da, en-US;q=0.8\")")
	return cmd
}

func newSearchCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the CVs closest to a job description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFiles(func(files *action.Files) error {
				hits, err := files.Search(cmd.Context(), domain.SearchRequest{Query: args[0], Limit: limit})
				if err != nil {
					return err
				}
				return printJSON(hits)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", action.DefaultSearchLimit, "Maximum number of results")
	return cmd
}

func newListCommand() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored CVs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFiles(func(files *action.Files) error {
				page, err := files.List(cmd.Context(), domain.ListRequest{Limit: limit, Cursor: cursor})
				if err != nil {
					return err
				}
				return printJSON(page)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Page size")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor returned by the previous page")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a CV and its original file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFiles(func(files *action.Files) error {
				if err := files.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				return printJSON(map[string]string{"deleted": args[0]})
			})
		},
	}
}

func newRecoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Roll back upload batches left unfinished by a crash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFiles(func(files *action.Files) error {
				n, err := files.Recover(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(map[string]int{"recovered": n})
			})
		},
	}
}
