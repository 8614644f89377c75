package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

func newCatalogCommand() *cobra.Command {
	var insecure bool
	cmd := &cobra.Command{
		Use:   "catalog <registry>",
		Short: "List every repository a registry exposes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			uri := ocitypes.ParseRegistryURI(args[0])
			if insecure || cliConfig.Insecure {
				uri.Secure = false
			}
			reg, err := registry.NewRegistry(ctx, uri, http.DefaultClient)
			if err != nil {
				return err
			}
			repos, err := reg.Catalog(ctx)
			if err != nil {
				return err
			}
			for _, repo := range repos {
				fmt.Fprintln(cmd.OutOrStdout(), repo)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	return cmd
}

func newListCommand() *cobra.Command {
	var insecure bool
	cmd := &cobra.Command{
		Use:   "list <registry>/<repository>",
		Short: "List every tag in a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := resolveURI(ctx, args[0]+":_", insecure)
			if err != nil {
				return err
			}
			tags, err := u.Registry.GetTags(ctx, u.Repository)
			if err != nil {
				return err
			}
			for _, tag := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), tag)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	return cmd
}
