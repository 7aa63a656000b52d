package commands

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bereal_explorer/internal/extract"
)

func (a *app) extractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract -f <export.zip> -gz <events.gz> -o <output_folder>",
		Short: "Write the normalized export, its warnings and every media file to a folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputRoot := a.v.GetString(keyOutput)
			if outputRoot == "" {
				return errors.New("missing required flag: -o, --output")
			}
			result, ingestErr := a.ingest(cmd.Context(), cmd.ErrOrStderr())
			if ingestErr != nil {
				return ingestErr
			}
			defer result.Release()

			written, writeErr := extract.WriteOutput(result, outputRoot, a.logger)
			if writeErr != nil {
				return writeErr
			}
			a.logger.Info("export written", zap.String("output", outputRoot), zap.Int("media", written))
			return nil
		},
	}
	addInputFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Output folder (required)")
	bindKey(cmd.Flags(), "output", keyOutput)
	return cmd
}
