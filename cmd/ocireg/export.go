package main

import (
	"os"

	"github.com/spf13/cobra"

	img "github.com/bibin-skaria/ocireg/image"
)

func newExportCommand() *cobra.Command {
	var insecure bool
	var platformFlag string
	var output string

	cmd := &cobra.Command{
		Use:   "export <registry>/<repository>:<tag>",
		Short: "Flatten an image's layers into a single root filesystem tar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := resolveURI(ctx, args[0], insecure)
			if err != nil {
				return err
			}
			platform, err := parsePlatformFlag(platformFlag)
			if err != nil {
				return err
			}
			resolved, err := resolvePullImage(ctx, u, platform)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			return img.Filesystem(ctx, u, resolved, out)
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	cmd.Flags().StringVar(&platformFlag, "platform", "", "platform to select from an index, e.g. linux/amd64")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
