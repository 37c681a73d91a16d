package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rallycap/moments/internal/timeline"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// validateReport is the output of one validated document.
type validateReport struct {
	File        string                 `json:"file"`
	Valid       bool                   `json:"valid"`
	GameID      string                 `json:"game_id,omitempty"`
	Plays       int                    `json:"plays,omitempty"`
	Social      int                    `json:"social,omitempty"`
	Quarantined []timeline.Quarantined `json:"quarantined,omitempty"`
	Error       string                 `json:"error,omitempty"`
	ErrorCode   string                 `json:"error_code,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <timeline.json>...",
		Short: "Validate timeline documents without running the pipeline",
		Long: `Check timeline documents against the ingest schema and normalization
rules. Reports quarantined records and structural errors; writes nothing.

Example:
  moments validate game1.json
  moments validate --format json *.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, files []string, cmd *cobra.Command) error {
	formatter := &Printer{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	reports := make([]validateReport, 0, len(files))
	anyInvalid := false
	for _, f := range files {
		doc, err := os.ReadFile(f)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read timeline", err)
		}
		r := validateReport{File: f, Valid: true}
		tl, quarantined, err := timeline.Normalize(doc)
		r.Quarantined = quarantined
		if err != nil {
			r.Valid = false
			r.Error = err.Error()
			var ie *timeline.InputError
			if errors.As(err, &ie) {
				r.ErrorCode = ie.Code
			}
			anyInvalid = true
		} else {
			r.GameID = tl.GameID
			r.Plays = len(tl.Plays)
			r.Social = len(tl.Social)
		}
		reports = append(reports, r)
	}

	if opts.Format == "json" {
		if err := formatter.OK(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			if r.Valid {
				msg := fmt.Sprintf("%s: valid (%d plays, %d quarantined)",
					r.File, r.Plays, len(r.Quarantined))
				if err := formatter.OK(msg); err != nil {
					return err
				}
				for _, q := range r.Quarantined {
					formatter.Verbosef("  quarantined play %d: %s", q.PlayIndex, q.Reason)
				}
			} else {
				_ = formatter.Fail(r.ErrorCode, fmt.Sprintf("%s: %s", r.File, r.Error), nil)
			}
		}
	}

	if anyInvalid {
		return NewExitError(ExitFailure, "one or more documents are invalid")
	}
	return nil
}
