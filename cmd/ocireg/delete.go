package main

import (
	"github.com/spf13/cobra"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
)

func newDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a blob or tag from a registry",
	}
	cmd.AddCommand(newDeleteBlobCommand())
	cmd.AddCommand(newDeleteTagCommand())
	return cmd
}

func newDeleteBlobCommand() *cobra.Command {
	var insecure bool
	cmd := &cobra.Command{
		Use:   "blob <registry>/<repository>@<digest>",
		Short: "Delete a blob by digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := resolveURI(ctx, args[0], insecure)
			if err != nil {
				return err
			}
			if !u.Reference.IsDigest() {
				return ocierr.DeleteBlobNoDigest()
			}
			return u.Registry.DeleteBlob(ctx, u.Repository, u.Reference.Digest)
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	return cmd
}

func newDeleteTagCommand() *cobra.Command {
	var insecure bool
	cmd := &cobra.Command{
		Use:   "tag <registry>/<repository>:<tag>",
		Short: "Delete a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := resolveURI(ctx, args[0], insecure)
			if err != nil {
				return err
			}
			return u.Registry.DeleteTag(ctx, u.Repository, u.Reference)
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	return cmd
}
