package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gardencore/pkg/domain"
)

// SiteCmd returns the site command group.
func SiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Describe sites",
	}
	cmd.AddCommand(siteEstimateCmd())
	return cmd
}

func siteEstimateCmd() *cobra.Command {
	var (
		name          string
		lat, lon      float64
		width, length float64
		out           string
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Draft a site file from regional soil and climate estimates",
		Long: `Estimate soil, hardiness zone and the sun and water breakdown for a
rectangular site and print it as a YAML site file ready for generate.

Latitude and longitude default to GARDENCORE_LATITUDE / GARDENCORE_LONGITUDE.

Examples:
  gardencore site estimate --name "Back Yard" --width 40 --length 25
  gardencore site estimate --lat 35.2 --lon -92.4 --width 10 --length 10 --out site.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			loc := cfg.Location()
			if cmd.Flags().Changed("lat") {
				loc.Latitude = lat
			}
			if cmd.Flags().Changed("lon") {
				loc.Longitude = lon
			}
			site := domain.Site{
				Name:       name,
				Location:   domain.Location{Latitude: loc.Latitude, Longitude: loc.Longitude},
				Dimensions: domain.Dimensions{Width: width, Length: length},
			}
			if !cmd.Flags().Changed("lat") && !cmd.Flags().Changed("lon") {
				site.Location.Label = loc.Label
			}
			report, err := newEnvironment(cfg).Lookup(cmd.Context(), loc.Latitude, loc.Longitude, site.TotalArea())
			if err != nil {
				return err
			}
			site = report.ApplyTo(site)

			for _, w := range report.Warnings {
				printf(cmd.ErrOrStderr(), "%s %s\n", warnMark, w)
			}
			data, err := yaml.Marshal(site)
			if err != nil {
				return fmt.Errorf("encode site: %w", err)
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("write site: %w", err)
			}
			printf(cmd.OutOrStdout(), "%s wrote %s (zone %s, %.0f sq ft)\n", okMark, out, site.HardinessZone, site.TotalArea())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "My Garden", "site name")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.Flags().Float64Var(&width, "width", 0, "site width in feet")
	cmd.Flags().Float64Var(&length, "length", 0, "site length in feet")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the site file here instead of stdout")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("length")
	return cmd
}
