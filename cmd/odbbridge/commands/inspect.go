package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"odbbridge/internal/domain"
	"odbbridge/internal/store"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <dir>",
		Short: "Validate an interchange set and print what it holds",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageError(cmd, "expected one directory, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			l := wire.Config.Layout(args[0])
			stream, err := store.OpenFieldStream(l.Fields)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, stream.Close()) }()

			rep, err := wire.Inspector(l).Inspect(stream)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Instances: %d (%d nodes, %d elements)\n", rep.Instances, rep.Nodes, rep.Elements)
			fmt.Fprintf(w, "Steps:     %d (%d frames, %d more in stream)\n", rep.Steps, rep.Frames, rep.UncataloguedFrames)
			fmt.Fprintf(w, "Buckets:   %d (%d values)\n", rep.Buckets, rep.Values)
			for _, p := range domain.Positions {
				if n := rep.Positions[p]; n > 0 {
					fmt.Fprintf(w, "  %-18s %d\n", p, n)
				}
			}
			for _, sp := range rep.SectionPoints {
				fmt.Fprintf(w, "Section point %s\n", sp)
			}
			return nil
		},
	}
}
