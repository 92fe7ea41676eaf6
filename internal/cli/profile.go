package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chambrid/xtream-desk/pkg/docstore"
	"github.com/chambrid/xtream-desk/pkg/profile"
	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// profileFlags holds the flags of the profile subcommands
type profileFlags struct {
	ID        string
	Name      string
	URL       string
	Username  string
	Password  string
	Format    string
	Active    bool
	File      string
	IOFormat  string
	Overwrite bool
}

// exportResult is the data of a successful export envelope
type exportResult struct {
	File   string `json:"file"`
	Format string `json:"format"`
}

// validationEntry is one row of the validate command's output
type validationEntry struct {
	ID     string                    `json:"id"`
	Name   string                    `json:"name"`
	Result *profile.ValidationResult `json:"result"`
}

func (a *app) newProfileCmd() *cobra.Command {
	var flags profileFlags

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved panel accounts",
		Long: `Manage saved panel accounts (profiles).

A profile is a named set of panel credentials with an opaque id. Profiles are
stored as one list; saving a profile with an existing id replaces it in place.`,
		Example: `  # List saved profiles
  xtream-desk profile list -o table

  # Save a new profile (an id is generated)
  xtream-desk profile save --name Home --url http://panel.example:8080 --username alice --password secret

  # Make a profile the active one
  xtream-desk profile activate profile_1234

  # Back up and restore
  xtream-desk profile export --file profiles.yaml
  xtream-desk profile import --file profiles.yaml --overwrite`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp := a.svc.GetProfileAccounts(cmd.Context())
			return printEnvelope(a, cmd, resp, printProfileTable)
		},
	}

	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Create or replace a profile",
		Long: `Create a profile, or replace the profile with the same --id in place.

Without --id a new id is generated. When --id names an existing profile its
createdAt and lastUsed values are kept. The profile is validated first and
rejected if it has errors; warnings are logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProfileSave(cmd, &flags)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a profile (unknown ids succeed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp := a.svc.DeleteProfileAccount(cmd.Context(), args[0])
			return printEnvelope(a, cmd, resp, func(w io.Writer, _ xtream.Unit) error {
				_, err := fmt.Fprintf(w, "Deleted profile %s\n", args[0])
				return err
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.svc.Profiles().Get(cmd.Context(), args[0])
			resp := xtream.Ok(p)
			if err != nil {
				resp = xtream.Fail[xtream.ProfileAccount](profile.Message(err))
			}
			return printEnvelope(a, cmd, resp, printProfileDetails)
		},
	}

	activateCmd := &cobra.Command{
		Use:   "activate <id>",
		Short: "Mark a profile as the active one",
		Long: `Mark a profile as active, clear the flag on every other profile and stamp
the profile's lastUsed time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp := xtream.OkUnit()
			if err := a.svc.Profiles().Activate(cmd.Context(), args[0], a.now()); err != nil {
				resp = xtream.Fail[xtream.Unit](profile.Message(err))
			}
			return printEnvelope(a, cmd, resp, func(w io.Writer, _ xtream.Unit) error {
				_, err := fmt.Fprintf(w, "Activated profile %s\n", args[0])
				return err
			})
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate [id]",
		Short: "Check saved profiles for problems",
		Long: `Check one saved profile, or all of them, for a missing id or name and an
unusable URL. Empty credentials are reported as warnings. Exits non-zero when
any profile has errors.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProfileValidate(cmd, args)
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write all profiles to a YAML or JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProfileExport(cmd, &flags)
		},
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load profiles from a YAML or JSON export",
		Long: `Load profiles from a file written by export. Profiles whose id already
exists are skipped unless --overwrite is given, in which case they are
replaced in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProfileImport(cmd, &flags)
		},
	}

	profileCmd.AddCommand(listCmd, saveCmd, deleteCmd, showCmd, activateCmd, validateCmd, exportCmd, importCmd)

	// Save command flags
	saveCmd.Flags().StringVar(&flags.ID, "id", "", "Profile id (generated when empty)")
	saveCmd.Flags().StringVar(&flags.Name, "name", "", "Display name (required)")
	saveCmd.Flags().StringVar(&flags.URL, "url", "", "Panel base URL (required)")
	saveCmd.Flags().StringVar(&flags.Username, "username", "", "Panel username")
	saveCmd.Flags().StringVar(&flags.Password, "password", "", "Panel password")
	saveCmd.Flags().StringVar(&flags.Format, "format", "", "Preferred stream format")
	saveCmd.Flags().BoolVar(&flags.Active, "active", false, "Store the profile with isActive set")
	_ = saveCmd.MarkFlagRequired("name")
	_ = saveCmd.MarkFlagRequired("url")

	// Export/import flags
	exportCmd.Flags().StringVar(&flags.File, "file", "", "Export file path (required)")
	exportCmd.Flags().StringVar(&flags.IOFormat, "format", "", "File format: yaml, json (auto-detected from file extension)")
	_ = exportCmd.MarkFlagRequired("file")

	importCmd.Flags().StringVar(&flags.File, "file", "", "Import file path (required)")
	importCmd.Flags().StringVar(&flags.IOFormat, "format", "", "File format: yaml, json (auto-detected from file extension)")
	importCmd.Flags().BoolVar(&flags.Overwrite, "overwrite", false, "Replace profiles whose id already exists")
	_ = importCmd.MarkFlagRequired("file")

	return profileCmd
}

func (a *app) runProfileSave(cmd *cobra.Command, flags *profileFlags) error {
	ctx := cmd.Context()

	cfg := xtream.XtreamConfig{
		URL:      flags.URL,
		Username: flags.Username,
		Password: flags.Password,
	}
	if flags.Format != "" {
		cfg.PreferredFormat = xtream.StringPtr(flags.Format)
	}

	p := profile.NewProfile(flags.Name, cfg, a.now())
	if flags.ID != "" {
		p.ID = flags.ID
		if existing, err := a.svc.Profiles().Get(ctx, flags.ID); err == nil {
			p.CreatedAt = existing.CreatedAt
			p.LastUsed = existing.LastUsed
		} else if !profile.IsNotFound(err) {
			return printEnvelope(a, cmd, xtream.Fail[xtream.ProfileAccount](profile.Message(err)), nil)
		}
	}
	p.IsActive = flags.Active

	validation := profile.Validate(p)
	for _, warning := range validation.Warnings {
		a.log.Info("Profile warning", "id", p.ID, "warning", warning)
	}
	if !validation.Valid {
		message := "Profile is invalid: " + strings.Join(validation.Errors, "; ")
		return printEnvelope(a, cmd, xtream.Fail[xtream.ProfileAccount](message), nil)
	}

	resp := a.svc.SaveProfileAccount(ctx, p)
	if !resp.Success {
		return printEnvelope(a, cmd, xtream.Fail[xtream.ProfileAccount](resp.ErrorMessage()), nil)
	}
	return printEnvelope(a, cmd, xtream.Ok(p), printProfileDetails)
}

func (a *app) runProfileValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var profiles []xtream.ProfileAccount
	if len(args) == 1 {
		p, err := a.svc.Profiles().Get(ctx, args[0])
		if err != nil {
			return printEnvelope(a, cmd, xtream.Fail[[]validationEntry](profile.Message(err)), nil)
		}
		profiles = []xtream.ProfileAccount{p}
	} else {
		list := a.svc.GetProfileAccounts(ctx)
		data, ok := list.Unwrap()
		if !ok {
			return printEnvelope(a, cmd, xtream.Fail[[]validationEntry](list.ErrorMessage()), nil)
		}
		profiles = data
	}

	entries := make([]validationEntry, 0, len(profiles))
	invalid := 0
	for _, p := range profiles {
		result := profile.Validate(p)
		if !result.Valid {
			invalid++
		}
		entries = append(entries, validationEntry{ID: p.ID, Name: p.Name, Result: result})
	}

	if err := printEnvelope(a, cmd, xtream.Ok(entries), printValidationTable); err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d profiles are invalid", invalid, len(entries))
	}
	return nil
}

func (a *app) runProfileExport(cmd *cobra.Command, flags *profileFlags) error {
	format, err := resolveFormat(flags.IOFormat, flags.File)
	if err != nil {
		return err
	}

	// An existing file is only replaced once the export has fully succeeded.
	var buf bytes.Buffer
	resp := xtream.Ok(exportResult{File: flags.File, Format: string(format)})
	if err := a.svc.Profiles().Export(cmd.Context(), &buf, format); err != nil {
		resp = xtream.Fail[exportResult](profile.Message(err))
	} else if err := docstore.WriteFileAtomic(flags.File, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return printEnvelope(a, cmd, resp, func(w io.Writer, r exportResult) error {
		_, err := fmt.Fprintf(w, "Exported profiles to %s (%s)\n", r.File, r.Format)
		return err
	})
}

func (a *app) runProfileImport(cmd *cobra.Command, flags *profileFlags) error {
	format, err := resolveFormat(flags.IOFormat, flags.File)
	if err != nil {
		return err
	}

	f, err := os.Open(flags.File)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	result, err := a.svc.Profiles().Import(cmd.Context(), f, format, flags.Overwrite)
	var resp xtream.APIResponse[profile.ImportResult]
	if err != nil {
		resp = xtream.Fail[profile.ImportResult](profile.Message(err))
	} else {
		resp = xtream.Ok(*result)
	}
	return printEnvelope(a, cmd, resp, func(w io.Writer, r profile.ImportResult) error {
		_, err := fmt.Fprintf(w, "Imported %d, replaced %d, skipped %d\n", r.Imported, r.Replaced, len(r.Skipped))
		if err == nil && len(r.Skipped) > 0 {
			_, err = fmt.Fprintf(w, "Skipped (use --overwrite to replace): %s\n", strings.Join(r.Skipped, ", "))
		}
		return err
	})
}

func resolveFormat(explicit, path string) (profile.Format, error) {
	if explicit != "" {
		return profile.ParseFormat(explicit)
	}
	return profile.FormatFromPath(path), nil
}

func printProfileTable(w io.Writer, profiles []xtream.ProfileAccount) error {
	if len(profiles) == 0 {
		_, err := fmt.Fprintln(w, "No profiles found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tNAME\tURL\tUSERNAME\tACTIVE\tCREATED\tLAST USED\n")
	for _, p := range profiles {
		active := ""
		if p.IsActive {
			active = "*"
		}
		lastUsed := "never"
		if p.LastUsed != nil {
			lastUsed = *p.LastUsed
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.Config.URL, p.Config.Username, active, p.CreatedAt, lastUsed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nTotal: %d profiles\n", len(profiles))
	return err
}

func printProfileDetails(w io.Writer, p xtream.ProfileAccount) error {
	format := ""
	if p.Config.PreferredFormat != nil {
		format = *p.Config.PreferredFormat
	}
	lastUsed := "never"
	if p.LastUsed != nil {
		lastUsed = *p.LastUsed
	}
	password := ""
	if p.Config.Password != "" {
		password = "********"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", p.ID},
		{"Name", p.Name},
		{"URL", p.Config.URL},
		{"Username", p.Config.Username},
		{"Password", password},
		{"Format", format},
		{"Active", fmt.Sprintf("%t", p.IsActive)},
		{"Created", p.CreatedAt},
		{"Last used", lastUsed},
	}
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

func printValidationTable(w io.Writer, entries []validationEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tNAME\tVALID\tPROBLEMS\n")
	for _, e := range entries {
		problems := append(append([]string{}, e.Result.Errors...), e.Result.Warnings...)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", e.ID, e.Name, e.Result.Valid, strings.Join(problems, "; "))
	}
	return tw.Flush()
}
