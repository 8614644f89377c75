package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	img "github.com/bibin-skaria/ocireg/image"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

// resolvePullImage resolves u to a concrete Image: if u's reference names
// an index, the platform-selection rule picks one of its entries;
// otherwise u is assumed to already name a manifest directly.
func resolvePullImage(ctx context.Context, u *registry.URI, platform *ocitypes.Platform) (ocitypes.Image, error) {
	isIndex, err := img.CheckIndex(ctx, u)
	if err != nil {
		return ocitypes.Image{}, err
	}
	if !isIndex {
		return img.Fetch(ctx, u)
	}
	idx, err := img.FetchIndex(ctx, u)
	if err != nil || !ocitypes.IsIndexMediaType(idx.MediaType.String()) {
		return img.Fetch(ctx, u)
	}
	resolved, err := img.FetchImage(ctx, u, idx, platform)
	if err != nil {
		return ocitypes.Image{}, err
	}
	if resolved == nil {
		return ocitypes.Image{}, fmt.Errorf("ocireg: index at %s has no entries", u.String())
	}
	return *resolved, nil
}

func newPullCommand() *cobra.Command {
	var insecure bool
	var format string
	var platformFlag string
	var output string

	cmd := &cobra.Command{
		Use:   "pull <registry>/<repository>:<tag>",
		Short: "Download an image as a docker-load tarball or OCI archive",
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

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "oci":
				idx, err := img.FetchIndex(ctx, u)
				if err != nil {
					return err
				}
				return img.ToOCI(ctx, u, idx, platform, out)
			case "tarball", "":
				resolved, err := resolvePullImage(ctx, u, platform)
				if err != nil {
					return err
				}
				return img.ToTarball(ctx, u, resolved, u.Repository+":"+u.Reference.String(), out)
			default:
				return fmt.Errorf("ocireg: unknown --format %q, expected tarball or oci", format)
			}
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	cmd.Flags().StringVar(&format, "format", "tarball", "output format: tarball or oci")
	cmd.Flags().StringVar(&platformFlag, "platform", "", "platform to select from an index, e.g. linux/amd64")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
