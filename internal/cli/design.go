package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gardencore/internal/adapters/designs"
	"gardencore/internal/blob"
)

// DesignCmd returns the design command group.
func DesignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "design",
		Short: "Inspect and export stored designs",
	}
	cmd.AddCommand(designListCmd())
	cmd.AddCommand(designShowCmd())
	cmd.AddCommand(designExportCmd())
	return cmd
}

func designListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored designs",
		Args:  cobra.NoArgs,
		RunE: withApp(appOptions{}, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()
			recs := a.svc.ListDesigns(ctx)
			if len(recs) == 0 {
				printf(out, "No designs.\n")
				return nil
			}
			printf(out, "%s\n", heading.Sprintf("%-36s %-24s %-6s %-7s %s", "ID", "SITE", "ZONES", "PLANTS", "CREATED"))
			for _, rec := range recs {
				printf(out, "%-36s %-24s %-6d %-7d %s\n", rec.ID, rec.Design.Site.Name, len(rec.Design.Zones),
					rec.Design.Statistics.TotalPlants, rec.CreatedAt.UTC().Format(time.RFC3339))
			}
			return nil
		}),
	}
}

func designShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a stored design",
		Long: `Print a stored design as a summary, or rendered as json, csv or html.

Examples:
  gardencore design show 4f1c...
  gardencore design show 4f1c... --format csv > design.csv`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(appOptions{}, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			rec, err := a.svc.GetDesign(ctx, args[0])
			if err != nil {
				return err
			}
			if format == "" {
				printDesign(cmd.OutOrStdout(), rec)
				return nil
			}
			f, err := designs.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == designs.FormatPNG {
				return errors.New("png output is binary; use design export")
			}
			data, err := designs.Render(f, rec)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json, csv or html")
	return cmd
}

func designExportCmd() *cobra.Command {
	var (
		formats []string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Render a design and store the artifacts",
		Long: `Render a stored design in each requested format and write the artifacts to
the configured blob store (GARDENCORE_BLOB_DRIVER).

Examples:
  gardencore design export 4f1c...
  gardencore design export 4f1c... --format png --format csv`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(appOptions{}, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			store, err := blob.OpenConfig(ctx, a.cfg.Blob())
			if err != nil {
				return err
			}
			parsed := make([]designs.Format, 0, len(formats))
			for _, raw := range formats {
				f, err := designs.ParseFormat(raw)
				if err != nil {
					return err
				}
				parsed = append(parsed, f)
			}

			worker := designs.NewWorker(a.svc, store, designs.NewMemoryAuditLog())
			worker.Start()
			defer func() { _ = worker.Stop(context.Background()) }()

			job, err := worker.EnqueueExport(ctx, designs.ExportInput{DesignID: args[0], Formats: parsed, RequestedBy: "cli"})
			if err != nil {
				return err
			}
			job, err = awaitExport(ctx, worker, job.ID, timeout)
			if err != nil {
				return err
			}
			if job.Status == designs.ExportStatusFailed {
				return fmt.Errorf("export failed: %s", job.Error)
			}
			out := cmd.OutOrStdout()
			for _, art := range job.Artifacts {
				printf(out, "%s %-5s %8d bytes  %s\n", okMark, art.Format, art.SizeBytes, art.Key)
				if art.URL != "" {
					printf(out, "        %s\n", dim.Sprint(art.URL))
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "formats to export (default all)")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "how long to wait for the export")
	return cmd
}

func awaitExport(ctx context.Context, w *designs.Worker, id string, timeout time.Duration) (designs.ExportRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		rec, ok := w.GetExport(id)
		if !ok {
			return designs.ExportRecord{}, fmt.Errorf("export %s disappeared", id)
		}
		if rec.Status == designs.ExportStatusSucceeded || rec.Status == designs.ExportStatusFailed {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return rec, fmt.Errorf("waiting for export %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}
