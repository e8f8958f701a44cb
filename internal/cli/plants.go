package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gardencore/internal/catalog"
	"gardencore/pkg/domain"
)

// PlantsCmd returns the plants command group.
func PlantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plants",
		Short: "Manage the plant catalog",
	}
	cmd.AddCommand(plantsListCmd())
	cmd.AddCommand(plantsAddCmd())
	cmd.AddCommand(plantsImportCmd())
	return cmd
}

func plantsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored plants, or the plants in a catalog file",
		Long: `List the plants held in the configured store.

Examples:
  gardencore plants list
  gardencore plants list --catalog data/plants/plant_database.json`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().String("catalog", "", "read a catalog file instead of the store")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("catalog")
		if path != "" {
			plants, err := catalog.Load(path)
			if err != nil {
				return err
			}
			printPlants(cmd.OutOrStdout(), plants)
			return nil
		}
		return withApp(appOptions{}, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			printPlants(cmd.OutOrStdout(), a.svc.ListPlants(ctx))
			return nil
		})(cmd, args)
	}
	return cmd
}

func plantsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add FILE",
		Short: "Append the plants in FILE to a catalog file",
		Long: `Append one or more plant records (JSON or YAML list) to the catalog file.
A duplicate scientific name stops the command at that record.

Examples:
  gardencore plants add redbud.yaml
  gardencore plants add new.json --catalog plants.yaml`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().String("catalog", "", "catalog file to extend (default GARDENCORE_CATALOG_PATH)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path, err := catalogPath(cmd)
		if err != nil {
			return err
		}
		additions, err := catalog.Load(args[0])
		if err != nil {
			return err
		}
		var total int
		for _, p := range additions {
			all, err := catalog.Add(path, p)
			if err != nil {
				return err
			}
			total = len(all)
			printf(cmd.OutOrStdout(), "%s added %s\n", okMark, p.ScientificName)
		}
		printf(cmd.OutOrStdout(), "%s now holds %d plants\n", path, total)
		return nil
	}
	return cmd
}

func plantsImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [PATTERN]",
		Short: "Load catalog files into the store",
		Long: `Load every catalog file matching PATTERN (doublestar syntax) into the
configured store. Plants already stored under the same scientific name are skipped.

Examples:
  gardencore plants import
  gardencore plants import 'data/plants/**/*.{json,yaml}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: withApp(appOptions{}, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			pattern := a.cfg.CatalogPath
			if len(args) == 1 {
				pattern = args[0]
			}
			plants, files, err := catalog.LoadGlob(pattern)
			if err != nil {
				return err
			}
			fresh := newPlants(a.svc.ListPlants(ctx), plants)
			created, res, err := a.svc.ImportCatalog(ctx, fresh)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range files {
				printf(out, "%s\n", dim.Sprint(f))
			}
			printViolations(out, res.Violations)
			printf(out, "%s imported %d plants (%d already stored)\n", okMark, len(created), len(plants)-len(fresh))
			return nil
		}),
	}
	return cmd
}

// newPlants drops candidates whose scientific name is already stored.
func newPlants(stored, candidates []domain.Plant) []domain.Plant {
	seen := make(map[string]struct{}, len(stored))
	for _, p := range stored {
		seen[strings.ToLower(p.ScientificName)] = struct{}{}
	}
	out := make([]domain.Plant, 0, len(candidates))
	for _, p := range candidates {
		if _, ok := seen[strings.ToLower(p.ScientificName)]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

func catalogPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		return path, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.CatalogPath, nil
}

func printPlants(w io.Writer, plants []domain.Plant) {
	if len(plants) == 0 {
		printf(w, "No plants.\n")
		return
	}
	printf(w, "%s\n", heading.Sprintf("%-32s %-24s %-20s %-10s %s", "SCIENTIFIC NAME", "COMMON NAME", "TYPE", "WATER", "SUN"))
	for _, p := range plants {
		sun := make([]string, len(p.SunExposure))
		for i, s := range p.SunExposure {
			sun[i] = string(s)
		}
		printf(w, "%-32s %-24s %-20s %-10s %s\n", p.ScientificName, p.CommonName, p.Category, p.WaterNeeds, strings.Join(sun, ","))
	}
}

func printViolations(w io.Writer, violations []domain.Violation) {
	for _, v := range violations {
		subject := string(v.Entity)
		if v.EntityID != "" {
			subject = fmt.Sprintf("%s %s", v.Entity, v.EntityID)
		}
		printf(w, "%s %s (%s): %s\n", warnMark, v.Rule, subject, v.Message)
	}
}
