package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	img "github.com/bibin-skaria/ocireg/image"
)

func newManifestCommand() *cobra.Command {
	var insecure bool
	cmd := &cobra.Command{
		Use:   "manifest <registry>/<repository>@<digest>",
		Short: "Print an image manifest as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := resolveURI(ctx, args[0], insecure)
			if err != nil {
				return err
			}
			image, err := img.Fetch(ctx, u)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(image, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	return cmd
}

func newConfigCommand() *cobra.Command {
	var insecure bool
	cmd := &cobra.Command{
		Use:   "config <registry>/<repository>@<digest>",
		Short: "Print an image's config blob as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := resolveURI(ctx, args[0], insecure)
			if err != nil {
				return err
			}
			image, err := img.Fetch(ctx, u)
			if err != nil {
				return err
			}
			body, _, err := u.Registry.FetchBlob(ctx, u.Repository, image.Config.Digest)
			if err != nil {
				return err
			}
			defer body.Close()
			var cfg json.RawMessage
			if err := json.NewDecoder(body).Decode(&cfg); err != nil {
				return err
			}
			out, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	return cmd
}
