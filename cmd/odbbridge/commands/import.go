package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"odbbridge/internal/store"
)

func importCmd() *cobra.Command {
	var (
		in        string
		mesh      string
		catalog   string
		fields    string
		out       string
		steps     []string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Rebuild a results store from mesh.json, steps.json and nt11.jsonl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if out == "" {
				return usageError(cmd, "--out is required")
			}
			l := wire.Config.Layout(in)
			if in == "" {
				if mesh == "" || catalog == "" || fields == "" {
					return usageError(cmd, "give --in, or all of --mesh, --catalog and --fields")
				}
				l = store.Layout{Mesh: mesh, Catalog: catalog, Fields: fields}
			}

			stream, err := store.OpenFieldStream(l.Fields)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, stream.Close()) }()

			sum, err := wire.Importer(l, stepList(steps), overwrite).Import(out, stream)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Imported %d instances (%d nodes, %d elements), %d steps, %d frames (%d not in catalog), %d buckets, %d values.\n",
				sum.Instances, sum.Nodes, sum.Elements, sum.Steps, sum.Frames, sum.LazyFrames, sum.Buckets, sum.Values)
			if sum.SkippedBuckets > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Skipped %d buckets outside --steps.\n", sum.SkippedBuckets)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (geometry %s)\n", out, sum.Fingerprint)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "directory holding the artifacts")
	cmd.Flags().StringVar(&mesh, "mesh", "", "mesh document (instead of --in)")
	cmd.Flags().StringVar(&catalog, "catalog", "", "step catalog (instead of --in)")
	cmd.Flags().StringVar(&fields, "fields", "", "field stream (instead of --in)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "results store to create")
	cmd.Flags().StringSliceVarP(&steps, "steps", "s", nil, "only import these steps")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing results store")
	return cmd
}
