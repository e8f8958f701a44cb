package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gardencore/internal/adapters/designs"
	"gardencore/internal/catalog"
	"gardencore/pkg/domain"
)

// GenerateCmd returns the generate command.
func GenerateCmd() *cobra.Command {
	var (
		sitePath      string
		catalogFile   string
		plantsPerZone int
		diversity     float64
		outDir        string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a planting design for a site",
		Long: `Store the site described by --site, generate a design against the stored
catalog and print a summary. --catalog first loads any plants from that file the
store does not hold yet. --out also writes the design as
<dir>/design_<site>_<timestamp>.json.

Examples:
  gardencore generate --site backyard.yaml --catalog data/plants/plant_database.json
  gardencore generate --site backyard.yaml --plants-per-zone 3 --diversity-factor 0.9 --out data/designs`,
		Args: cobra.NoArgs,
		RunE: withApp(appOptions{events: true}, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()
			if catalogFile != "" {
				plants, err := catalog.Load(catalogFile)
				if err != nil {
					return err
				}
				_, res, err := a.svc.ImportCatalog(ctx, newPlants(a.svc.ListPlants(ctx), plants))
				if err != nil {
					return err
				}
				printViolations(out, res.Violations)
			}

			site, err := loadSite(sitePath)
			if err != nil {
				return err
			}
			site, res, err := a.svc.CreateSite(ctx, site)
			if err != nil {
				return err
			}
			printViolations(out, res.Violations)

			var opts domain.DesignOptions
			if cmd.Flags().Changed("plants-per-zone") {
				opts.PlantsPerZone = plantsPerZone
			}
			if cmd.Flags().Changed("diversity-factor") {
				opts.DiversityFactor = &diversity
			}
			rec, res, err := a.svc.GenerateDesign(ctx, site.ID, opts)
			if err != nil {
				return err
			}
			printViolations(out, res.Violations)
			printDesign(out, rec)

			if outDir != "" {
				path, err := writeDesign(outDir, rec)
				if err != nil {
					return err
				}
				printf(out, "%s saved %s\n", okMark, path)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&sitePath, "site", "", "site file (YAML or JSON)")
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "catalog file to load before generating")
	cmd.Flags().IntVar(&plantsPerZone, "plants-per-zone", 0, "plants to select per zone (default GARDENCORE_PLANTS_PER_ZONE)")
	cmd.Flags().Float64Var(&diversity, "diversity-factor", 0, "category diversity pressure in [0,1] (default GARDENCORE_DIVERSITY_FACTOR)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory to write the design JSON into")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

func loadSite(path string) (domain.Site, error) {
	data, err := os.ReadFile(path) // #nosec G304: operator supplied path
	if err != nil {
		return domain.Site{}, fmt.Errorf("read site: %w", err)
	}
	var site domain.Site
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &site)
	default:
		err = yaml.Unmarshal(data, &site)
	}
	if err != nil {
		return domain.Site{}, fmt.Errorf("decode site %s: %w", path, err)
	}
	site.Base = domain.Base{}
	return site, nil
}

func writeDesign(dir string, rec domain.DesignRecord) (string, error) {
	data, err := designs.Render(designs.FormatJSON, rec)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, rec.FileStem()+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write design: %w", err)
	}
	return path, nil
}

func printDesign(w io.Writer, rec domain.DesignRecord) {
	d := rec.Design
	printf(w, "%s %s\n", heading.Sprint("Design"), rec.ID)
	printf(w, "Site: %s (%.0f sq ft, zone %s)\n", d.Site.Name, d.Site.TotalArea(), d.Site.HardinessZone)
	for _, z := range d.Zones {
		printf(w, "\n%s\n", heading.Sprintf("%s: %s / %s, %.1f sq ft", z.Zone.ID, z.Zone.SunExposure, z.Zone.WaterCondition, z.Zone.Area))
		if len(z.Plants) == 0 {
			printf(w, "  %s\n", dim.Sprint("no suitable plants"))
			continue
		}
		for _, sel := range z.Plants {
			printf(w, "  %3d x %-32s %-20s %s\n", sel.Quantity, sel.Plant.ScientificName, sel.Plant.Category, dim.Sprintf("score %.2f", sel.Score))
		}
	}
	s := d.Statistics
	printf(w, "\nTotal plants %d, native %.1f%%, water %.2f, maintenance %.2f, biodiversity %.2f\n",
		s.TotalPlants, s.NativePercentage, s.WaterUsageScore, s.MaintenanceScore, s.BiodiversityScore)
}
