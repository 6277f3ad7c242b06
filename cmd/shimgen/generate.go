package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ygrebnov/shim/internal/generate"
	"github.com/ygrebnov/shim/internal/loader"
	"github.com/ygrebnov/shim/internal/manifest"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate adapters for the pairs of a manifest",
	Long: `Loads the packages the manifest refers to, resolves every pair and the
pairs they need, and writes the adapters. Shell types are written to a
separate file when the manifest lists contracts under "shells".

Example:
  shimgen generate --manifest shim.yaml --output adapters_gen.go`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("manifest", "m", "", "Manifest file (default from config: shim.yaml)")
	generateCmd.Flags().StringP("output", "o", "", "Adapter output file")
	generateCmd.Flags().String("shells", "", "Shell output file")
	generateCmd.Flags().String("dir", "", "Directory packages are loaded from")
	generateCmd.Flags().StringSlice("tags", nil, "Build tags")
	generateCmd.Flags().Int("concurrency", 0, "Pairs resolved at once")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	gc := cfg.Generate
	flags := cmd.Flags()
	if flags.Changed("manifest") {
		gc.Manifest, _ = flags.GetString("manifest")
	}
	if flags.Changed("output") {
		gc.Output, _ = flags.GetString("output")
	}
	if flags.Changed("shells") {
		gc.Shells, _ = flags.GetString("shells")
	}
	if flags.Changed("dir") {
		gc.Dir, _ = flags.GetString("dir")
	}
	if flags.Changed("tags") {
		gc.Tags, _ = flags.GetStringSlice("tags")
	}
	if flags.Changed("concurrency") {
		gc.Concurrency, _ = flags.GetInt("concurrency")
	}

	m, err := manifest.Load(gc.Manifest)
	if err != nil {
		return err
	}
	logger.Debug("manifest loaded",
		zap.String("path", gc.Manifest),
		zap.Int("pairs", len(m.Pairs)),
		zap.Strings("packages", m.Packages()),
	)

	ctx := cmd.Context()
	u, err := loader.Load(ctx, logger, gc.Dir, gc.Tags, m.Packages()...)
	if err != nil {
		return err
	}
	out, err := generate.Run(ctx, logger, u, m, gc.Concurrency)
	if err != nil {
		return err
	}

	if out.Adapters != nil {
		if err := writeFile(gc.Output, out.Adapters); err != nil {
			return err
		}
	}
	if out.Shells != nil {
		if err := writeFile(gc.Shells, out.Shells); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, src []byte) error {
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return err
	}
	logger.Info("written", zap.String("path", path), zap.Int("bytes", len(src)))
	return nil
}
