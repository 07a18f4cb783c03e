package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/churn/internal/profile"
)

// ValidationIssue is one reported profile error with its source position.
type ValidationIssue struct {
	Position string `json:"position,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Profiles []string          `json:"profiles,omitempty"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file-or-dir>...",
		Short: "Validate profiles without running them",
		Long: `Validate CUE profile files without starting the engine.

Compiles each profile and checks every field against the engine's
parameter ranges. All errors are reported at once, each with its CUE
source position. Directories are walked for .cue files.

Exit codes:
  0 - all profiles valid
  1 - one or more profiles invalid
  2 - command error (path not found, no CUE files)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	var names []string
	var issues []ValidationIssue

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return outputValidateError(formatter, profile.ErrCodeNotFound,
				fmt.Sprintf("path not found: %s", path))
		}

		if info.IsDir() {
			profiles, errs := profile.LoadDir(path)
			// A bad directory ends the command; bad files inside a good
			// directory accumulate as validation issues.
			if profiles == nil && len(errs) == 1 {
				if le := asLoadError(errs[0]); le != nil && isCommandLevelCode(le.Code) {
					return outputValidateError(formatter, le.Code, le.Message)
				}
			}
			for _, p := range profiles {
				names = append(names, p.Name)
			}
			for _, err := range errs {
				issues = append(issues, issueFromError(err))
			}
			formatter.VerboseLog("validated %d profile(s) in %s", len(profiles), path)
			continue
		}

		p, err := profile.Load(path)
		if err != nil {
			if le := asLoadError(err); le != nil && le.Code == profile.ErrCodeNotFound {
				return outputValidateError(formatter, le.Code, le.Message)
			}
			issues = append(issues, issueFromError(err))
			continue
		}
		names = append(names, p.Name)
	}

	if len(issues) > 0 {
		return outputValidationErrors(formatter, names, issues)
	}

	return outputValidateSuccess(formatter, names)
}

// isCommandLevelCode reports whether a load error code means the command
// itself was misused rather than a profile being invalid.
func isCommandLevelCode(code string) bool {
	return code == profile.ErrCodeNotFound || code == profile.ErrCodeNoFiles
}

// asLoadError unwraps a profile LoadError, or nil.
func asLoadError(err error) *profile.LoadError {
	var le *profile.LoadError
	if errors.As(err, &le) {
		return le
	}
	return nil
}

// issueFromError converts any load failure into a reportable issue.
func issueFromError(err error) ValidationIssue {
	if le := asLoadError(err); le != nil {
		return ValidationIssue{
			Position: positionString(le.Pos),
			Code:     le.Code,
			Message:  le.Message,
		}
	}
	return ValidationIssue{Code: profile.ErrCodeGeneric, Message: err.Error()}
}

// positionString renders a CUE position, or "" when there is none.
func positionString(pos token.Pos) string {
	if pos.IsValid() {
		return pos.String()
	}
	return ""
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, names []string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Profiles: names})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d profile(s) valid\n", len(names))
	for _, name := range names {
		fmt.Fprintf(formatter.Writer, "  %s\n", name)
	}
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs the collected validation failures.
func outputValidationErrors(formatter *OutputFormatter, names []string, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:    false,
			Profiles: names,
			Errors:   issues,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}

		if err := writeJSONResponse(formatter.Writer, response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.Position != "" {
			fmt.Fprintln(formatter.Writer, issue.Position)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
