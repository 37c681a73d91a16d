package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rallycap/moments/internal/store"
)

// VersionsOptions holds flags for the versions command family.
type VersionsOptions struct {
	*RootOptions
	Database string
}

// versionRow is the JSON shape of one version in command output. Content
// is omitted except by show.
type versionRow struct {
	Version   int    `json:"version"`
	Hash      string `json:"hash"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	Content   string `json:"content,omitempty"`
}

// NewVersionsCommand creates the versions command and its subcommands.
func NewVersionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VersionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Inspect published payload versions",
		Long: `Inspect the immutable payload version history for a game.

Versions are append-only: publishing never rewrites an old row, and exactly
one version per game is active at a time.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newVersionsListCommand(opts))
	cmd.AddCommand(newVersionsActiveCommand(opts))
	cmd.AddCommand(newVersionsShowCommand(opts))
	cmd.AddCommand(newVersionsDiffCommand(opts))

	return cmd
}

func newVersionsListCommand(opts *VersionsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <game-id>",
		Short:         "List all payload versions for a game",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, f *Printer) error {
				versions, err := st.ListVersions(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list versions", err)
				}
				if len(versions) == 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("no versions for game %q", args[0]))
				}
				rows := make([]versionRow, len(versions))
				for i, v := range versions {
					rows[i] = toRow(v, false)
				}
				if opts.Format == "json" {
					return f.OK(rows)
				}
				var sb strings.Builder
				for _, r := range rows {
					marker := " "
					if r.Active {
						marker = "*"
					}
					fmt.Fprintf(&sb, "%s v%d  %s  %s\n", marker, r.Version, r.Hash, r.CreatedAt)
				}
				return f.OK(strings.TrimRight(sb.String(), "\n"))
			})
		},
	}
}

func newVersionsActiveCommand(opts *VersionsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "active <game-id>",
		Short:         "Show the active payload version for a game",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, f *Printer) error {
				v, err := st.ActiveVersion(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read active version", err)
				}
				if v == nil {
					return NewExitError(ExitFailure, fmt.Sprintf("no active version for game %q", args[0]))
				}
				if opts.Format == "json" {
					return f.OK(toRow(*v, true))
				}
				return f.OK(fmt.Sprintf("v%d  %s  %s", v.VersionNumber, v.PayloadHash, v.CreatedAt.Format("2006-01-02 15:04:05")))
			})
		},
	}
}

func newVersionsShowCommand(opts *VersionsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <game-id> <version>",
		Short:         "Print one version's payload content",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "version must be a number", err)
			}
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, f *Printer) error {
				v, err := st.GetVersion(ctx, args[0], number)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read version", err)
				}
				if v == nil {
					return NewExitError(ExitFailure,
						fmt.Sprintf("game %q has no version %d", args[0], number))
				}
				if opts.Format == "json" {
					return f.OK(toRow(*v, true))
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(v.Content))
				return nil
			})
		},
	}
}

func newVersionsDiffCommand(opts *VersionsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "diff <game-id> <version-a> <version-b>",
		Short:         "Compare two versions by payload hash",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "version must be a number", err)
			}
			b, err := strconv.Atoi(args[2])
			if err != nil {
				return WrapExitError(ExitCommandError, "version must be a number", err)
			}
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, f *Printer) error {
				va, err := st.GetVersion(ctx, args[0], a)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read version", err)
				}
				vb, err := st.GetVersion(ctx, args[0], b)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read version", err)
				}
				if va == nil || vb == nil {
					missing := a
					if va != nil {
						missing = b
					}
					return NewExitError(ExitFailure,
						fmt.Sprintf("game %q has no version %d", args[0], missing))
				}
				same := va.PayloadHash == vb.PayloadHash
				if opts.Format == "json" {
					return f.OK(map[string]any{
						"game_id":   args[0],
						"version_a": toRow(*va, false),
						"version_b": toRow(*vb, false),
						"identical": same,
					})
				}
				if same {
					return f.OK(fmt.Sprintf("v%d and v%d are identical (%s)", a, b, va.PayloadHash))
				}
				return f.OK(fmt.Sprintf("v%d %s\nv%d %s", a, va.PayloadHash, b, vb.PayloadHash))
			})
		},
	}
}

// withStore opens the database, runs fn, and closes it.
func withStore(opts *VersionsOptions, cmd *cobra.Command, fn func(context.Context, *store.Store, *Printer) error) error {
	formatter := &Printer{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, st, formatter)
}

func toRow(v store.Version, withContent bool) versionRow {
	r := versionRow{
		Version:   v.VersionNumber,
		Hash:      v.PayloadHash,
		Active:    v.IsActive,
		CreatedAt: v.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if withContent {
		r.Content = string(v.Content)
	}
	return r
}
