package main

import (
	"github.com/spf13/cobra"

	"github.com/ygrebnov/shim/internal/generate"
	"github.com/ygrebnov/shim/internal/loader"
	"github.com/ygrebnov/shim/internal/manifest"
)

var (
	shellPackage string
	shellPath    string
	shellOutput  string
)

var shellCmd = &cobra.Command{
	Use:   "shell [contract...]",
	Short: "Generate run-time shells for contracts",
	Long: `Writes one shell type per contract, registered with the run-time
registry in an init function. Contracts are "import/path.Name" references.

Example:
  shimgen shell --package adapters --path example.com/app/adapters \
    --output shells_gen.go example.com/app/api.Named`,
	Args: cobra.MinimumNArgs(1),
	RunE: runShell,
}

func init() {
	shellCmd.Flags().StringVar(&shellPackage, "package", "", "Package name of the output (required)")
	shellCmd.Flags().StringVar(&shellPath, "path", "", "Import path of the output package (required)")
	shellCmd.Flags().StringVarP(&shellOutput, "output", "o", "", "Output file (default from config)")
	_ = shellCmd.MarkFlagRequired("package")
	_ = shellCmd.MarkFlagRequired("path")
}

func runShell(cmd *cobra.Command, args []string) error {
	m := &manifest.Manifest{Package: shellPackage, Path: shellPath, Shells: args}
	if err := m.Validate(); err != nil {
		return err
	}
	output := shellOutput
	if output == "" {
		output = cfg.Generate.Shells
	}

	ctx := cmd.Context()
	u, err := loader.Load(ctx, logger, cfg.Generate.Dir, cfg.Generate.Tags, m.Packages()...)
	if err != nil {
		return err
	}
	out, err := generate.Run(ctx, logger, u, m, 1)
	if err != nil {
		return err
	}
	return writeFile(output, out.Shells)
}
