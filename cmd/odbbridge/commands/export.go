package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"odbbridge/internal/services/exporter"
	"odbbridge/internal/store"
)

func exportCmd() *cobra.Command {
	var (
		src   string
		out   string
		steps []string
		field string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write mesh.json, steps.json and nt11.jsonl from a results store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if src == "" {
				return usageError(cmd, "--odb is required")
			}
			if out == "" {
				return usageError(cmd, "--out is required")
			}
			if field == "" {
				field = wire.Config.Field
			}
			l := wire.Config.Layout(out)
			if err := l.EnsureDir(); err != nil {
				return err
			}

			svc, source, err := wire.Exporter(src, l)
			if err != nil {
				return fmt.Errorf("open %s: %w", src, err)
			}
			defer func() { err = errors.Join(err, source.Close()) }()

			fields, err := store.NewFieldStreamWriter(l.Fields)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, fields.Close()) }()

			sum, err := svc.Export(fields, exporter.Options{Field: field, Steps: stepList(steps)})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Exported %d instances (%d nodes, %d elements), %d steps, %d frames (%d without %s), %d buckets, %d values.\n",
				sum.Instances, sum.Nodes, sum.Elements, sum.Steps, sum.Frames, sum.SkippedFrames, field, sum.Buckets, sum.Values)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s, %s, %s\n", l.Mesh, l.Catalog, l.Fields)
			return nil
		},
	}
	cmd.Flags().StringVarP(&src, "odb", "i", "", "results store to read")
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory for the artifacts")
	cmd.Flags().StringSliceVarP(&steps, "steps", "s", nil, "only export these steps")
	cmd.Flags().StringVar(&field, "field", "", "scalar field to export (default from config, NT11)")
	return cmd
}
