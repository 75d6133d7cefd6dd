package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/applytrack/internal/model"
)

var editApp struct {
	company, role, source, location, notes, applied, nextAction string
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change an application's details",
	Long:  "Updates the given fields of an application. Pass an empty value to clear an optional field. Use the status command to move it between stages.",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

func init() {
	f := editCmd.Flags()
	f.StringVar(&editApp.company, "company", "", "company name")
	f.StringVar(&editApp.role, "role", "", "role title")
	f.StringVar(&editApp.source, "source", "", "where the application came from")
	f.StringVar(&editApp.location, "location", "", "job location")
	f.StringVar(&editApp.notes, "notes", "", "free-form notes")
	f.StringVar(&editApp.applied, "applied", "", "applied date, YYYY-MM-DD")
	f.StringVar(&editApp.nextAction, "next-action", "", "next action date, YYYY-MM-DD")
	rootCmd.AddCommand(editCmd)
}

// editPatch builds a patch from the flags the user actually set.
func editPatch(changed func(name string) bool) model.ApplicationPatch {
	var p model.ApplicationPatch
	pick := func(name string, v *string) *string {
		if !changed(name) {
			return nil
		}
		s := *v
		return &s
	}
	p.Company = pick("company", &editApp.company)
	p.Role = pick("role", &editApp.role)
	p.Source = pick("source", &editApp.source)
	p.Location = pick("location", &editApp.location)
	p.Notes = pick("notes", &editApp.notes)
	p.AppliedDate = pick("applied", &editApp.applied)
	p.NextActionDate = pick("next-action", &editApp.nextAction)
	return p
}

func runEdit(cmd *cobra.Command, args []string) error {
	patch := editPatch(cmd.Flags().Changed)
	if patch.Empty() {
		return errors.New("nothing to change: pass at least one field flag")
	}

	logger := setupStderrLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	sqlStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	app, err := newIngester(cfg, sqlStore, nil, logger).Edit(args[0], patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated %s: %s / %s [%s]\n", app.ID, app.Company, app.Role, app.Status)
	return nil
}
