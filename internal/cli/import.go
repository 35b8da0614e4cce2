package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/planner/internal/core"
	"github.com/JonMunkholm/planner/internal/csvimport"
	"github.com/JonMunkholm/planner/internal/storage"
)

// parseFlags are shared by validate and import.
type parseFlags struct {
	format          string
	extendedAliases bool
	headerRows      int
	maxSize         int64
}

func (f *parseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", FormatJSON, "Output format (json, yaml)")
	cmd.Flags().BoolVar(&f.extendedAliases, "extended-aliases", false, `Also accept "hours" and "estimated" as estimate headers`)
	cmd.Flags().IntVar(&f.headerRows, "header-rows", csvimport.DefaultHeaderSearchRows, "Number of leading lines searched for the header row")
	cmd.Flags().Int64Var(&f.maxSize, "max-size", core.DefaultMaxFileSize, "Largest accepted file in bytes")
}

func (f *parseFlags) options() csvimport.Options {
	opts := csvimport.Options{HeaderSearchRows: f.headerRows}
	if f.extendedAliases {
		opts.Aliases = csvimport.ExtendedAliases()
	}
	return opts
}

func validateCmd() *cobra.Command {
	var flags parseFlags

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check whether a plan file would import",
		Long: `Validate reports the detected delimiter, header line and column mapping of
a plan file. It exits with an error when the file would not import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(flags.format); err != nil {
				return err
			}
			report, err := validateFile(args[0], flags)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), flags.format, report); err != nil {
				return err
			}
			if !report.Valid {
				return fmt.Errorf("%s: %s", args[0], report.Reason)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func validateFile(path string, flags parseFlags) (csvimport.ValidationReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return csvimport.ValidationReport{}, err
	}
	defer f.Close()

	text, err := csvimport.ReadText(f, flags.maxSize)
	if err != nil {
		if errors.Is(err, csvimport.ErrEmptyFile) {
			return csvimport.ValidationReport{Reason: "empty file"}, nil
		}
		return csvimport.ValidationReport{}, fmt.Errorf("read %s: %w", path, err)
	}
	return csvimport.Validate(text, flags.options()), nil
}

// importReport is the output of planctl import.
type importReport struct {
	Project core.Project       `json:"project"`
	Result  *core.ImportResult `json:"result"`
	Plan    *core.PlanView     `json:"plan"`
}

func importCmd() *cobra.Command {
	var (
		flags parseFlags
		name  string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a plan file into a scratch project and print the result",
		Long: `Import runs the full import into an in-memory project: tasks, skipped rows,
project details from the metadata block, and the resulting plan with hours
and progress. Nothing is written anywhere.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(flags.format); err != nil {
				return err
			}
			report, err := importFile(cmd, args[0], name, flags)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), flags.format, report)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "Project name (default: the file name)")
	return cmd
}

func importFile(cmd *cobra.Command, path, name string, flags parseFlags) (*importReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ctx := cmd.Context()
	svc := core.NewService(storage.NewMemory(), core.Options{
		MaxFileSize:      flags.maxSize,
		HeaderSearchRows: flags.headerRows,
		ExtendedAliases:  flags.extendedAliases,
	})

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	p, err := svc.CreateProject(ctx, core.Project{Name: name})
	if err != nil {
		return nil, err
	}

	res, err := svc.ImportCSV(ctx, core.ImportRequest{
		ProjectID: p.ID,
		FileName:  filepath.Base(path),
		Body:      f,
		ApplyMeta: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %s", path, core.FormatUserError(err))
	}

	if p, err = svc.GetProject(ctx, p.ID); err != nil {
		return nil, err
	}
	plan, err := svc.GetPlan(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &importReport{Project: p, Result: res, Plan: plan}, nil
}
