package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/flame/internal/kernel"
)

func kernelCmd() *cobra.Command {
	var (
		f        sceneFlags
		validate bool
	)
	cmd := &cobra.Command{
		Use:   "kernel",
		Short: "Print the generated WGSL sampling shader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			f.setupLogging()

			cfg, fns, err := f.build(cmd)
			if err != nil {
				return err
			}
			prog, err := kernel.Compile(fns, kernel.Options{Iterations: cfg.Iterations, Warmup: cfg.Warmup})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprint(cmd.OutOrStdout(), prog.WGSL()); err != nil {
				return err
			}
			if validate {
				spirv, err := prog.Validate()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "// valid: %d bytes of SPIR-V\n", len(spirv))
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&validate, "validate", false, "compile the shader to SPIR-V with naga")
	return cmd
}
