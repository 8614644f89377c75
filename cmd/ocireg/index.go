package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	img "github.com/bibin-skaria/ocireg/image"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
)

func newIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect and mutate image indexes",
	}
	cmd.AddCommand(newIndexGetCommand())
	cmd.AddCommand(newIndexAddCommand())
	return cmd
}

func newIndexGetCommand() *cobra.Command {
	var insecure bool
	cmd := &cobra.Command{
		Use:   "get <registry>/<repository>:<tag>",
		Short: "Print an image index as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := resolveURI(ctx, args[0], insecure)
			if err != nil {
				return err
			}
			idx, err := img.FetchIndex(ctx, u)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(idx, "", "  ")
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

// newIndexAddCommand adds or replaces the entry for a platform within an
// existing index, creating the index if it does not exist yet.
func newIndexAddCommand() *cobra.Command {
	var insecure bool
	cmd := &cobra.Command{
		Use:   "add <registry>/<repository>:<tag> <manifest-digest> <platform>",
		Short: "Add or replace an index entry for a manifest and platform",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := resolveURI(ctx, args[0], insecure)
			if err != nil {
				return err
			}
			manifestRef, err := ocitypes.ParseReference(args[1])
			if err != nil {
				return err
			}
			platform, err := ocitypes.ParsePlatform(args[2])
			if err != nil {
				return err
			}

			idx, err := img.FetchIndex(ctx, u)
			if err != nil {
				idx = img.New(nil)
			}

			body, err := u.Registry.FetchManifestRaw(ctx, u.Repository, manifestRef.String())
			if err != nil {
				return err
			}
			entry := ocitypes.Layer{
				MediaType: ocitypes.MediaTypeManifest,
				Size:      int64(len(body)),
				Digest:    manifestRef.Digest,
				Platform:  &platform,
			}

			replaced := false
			for i, m := range idx.Manifests {
				if m.Platform != nil && m.Platform.Equal(platform) {
					idx.Manifests[i] = entry
					replaced = true
					break
				}
			}
			if !replaced {
				idx.Manifests = append(idx.Manifests, entry)
			}

			if _, err := img.PushIndex(ctx, u, idx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "index updated")
			return nil
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	return cmd
}
