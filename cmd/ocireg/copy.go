package main

import (
	"github.com/spf13/cobra"

	"github.com/bibin-skaria/ocireg/copy"
)

func newCopyCommand() *cobra.Command {
	var sourceInsecure, targetInsecure bool
	cmd := &cobra.Command{
		Use:   "copy <src-registry>/<repository>:<tag> <dst-registry>/<repository>:<tag>",
		Short: "Copy an image and its index between registries, preserving digests",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, err := resolveURI(ctx, args[0], sourceInsecure)
			if err != nil {
				return err
			}
			dst, err := resolveURI(ctx, args[1], targetInsecure)
			if err != nil {
				return err
			}
			return copy.Copy(ctx, src, dst)
		},
	}
	cmd.Flags().BoolVar(&sourceInsecure, "source-insecure", false, "connect to the source registry over plain http")
	cmd.Flags().BoolVar(&targetInsecure, "target-insecure", false, "connect to the target registry over plain http")
	return cmd
}
