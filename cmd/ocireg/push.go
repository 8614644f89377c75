package main

import (
	"github.com/spf13/cobra"

	"github.com/bibin-skaria/ocireg/archive"
)

func newPushCommand() *cobra.Command {
	var insecure bool
	cmd := &cobra.Command{
		Use:   "push <archive-path> <registry>/<repository>:<tag>",
		Short: "Push an OCI-archive tarball to a registry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := resolveURI(ctx, args[1], insecure)
			if err != nil {
				return err
			}
			return archive.Push(ctx, args[0], u)
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	return cmd
}
