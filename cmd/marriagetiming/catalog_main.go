package main

import (
	"github.com/spf13/cobra"

	"github.com/shigemiyagi/marriage-astrology-app/internal/catalog"
	"github.com/shigemiyagi/marriage-astrology-app/internal/render"
)

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the event catalog with scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := loadCatalog(cfg.Catalog)
			if err != nil {
				return err
			}
			r, format, err := newRenderer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if format == render.FormatJSON {
				return r.JSON(cat.All())
			}
			return r.Events(cat.All())
		},
	}
}

func newRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the birthplace presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			regions, err := catalog.DefaultRegions()
			if err != nil {
				return err
			}
			r, format, err := newRenderer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if format == render.FormatJSON {
				return r.JSON(regions.All())
			}
			return r.Regions(regions.Zone, regions.All())
		},
	}
}
