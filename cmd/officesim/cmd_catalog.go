package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/mini-office/internal/interaction"
	"github.com/talgya/mini-office/internal/work"
)

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Validate and list the configured interaction catalog",
		RunE:  runCatalog,
	}
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defs, err := loadDefinitions(cfg.Office.CatalogFile)
	if err != nil {
		return err
	}

	catalog := interaction.NewCatalog()
	_, regErr := catalog.RegisterDefinitions(defs, work.NewBoard(cfg.BoardConfig()))

	out := cmd.OutOrStdout()
	for _, obj := range catalog.Objects() {
		fmt.Fprintf(out, "%s at %s\n", obj.Name, obj.Position)
		for _, it := range obj.Interactions() {
			var effects []string
			for _, e := range it.Effects() {
				effects = append(effects, fmt.Sprintf("%s%+.0f", e.Kind, e.Delta))
			}
			fmt.Fprintf(out, "  %-16s %-4s %5.0fs  %s\n", it.Name(), it.Category(), it.Duration(), strings.Join(effects, " "))
		}
	}
	return regErr
}
