package main

import (
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

func newBlobCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob",
		Short: "Inspect and transfer individual blobs",
	}
	cmd.AddCommand(newBlobGetCommand())
	cmd.AddCommand(newBlobPushCommand())
	cmd.AddCommand(newBlobDeleteCommand())
	return cmd
}

func newBlobGetCommand() *cobra.Command {
	var insecure bool
	cmd := &cobra.Command{
		Use:   "get <registry>/<repository>@<digest>",
		Short: "Download a blob to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := resolveURI(ctx, args[0], insecure)
			if err != nil {
				return err
			}
			if !u.Reference.IsDigest() {
				return ocierr.DirectLoadBlob(args[0])
			}
			body, _, err := u.Registry.FetchBlob(ctx, u.Repository, u.Reference.Digest)
			if err != nil {
				return err
			}
			defer body.Close()
			_, err = io.Copy(cmd.OutOrStdout(), body)
			return err
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	return cmd
}

func newBlobPushCommand() *cobra.Command {
	var insecure bool
	var mediaType string
	cmd := &cobra.Command{
		Use:   "push <file> <registry>/<repository>:<tag>",
		Short: "Upload a file as a blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := resolveURI(ctx, args[1], insecure)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return ocierr.File(err)
			}
			mt, err := ocitypes.ParseMediaType(mediaType)
			if err != nil {
				return err
			}
			w, ok, err := registry.CreateWriter(ctx, u.Registry, u.Repository, mt, int64(len(data)), digest.FromBytes(data))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "blob already present, skipped")
				return nil
			}
			if err := w.Write(ctx, data); err != nil {
				return err
			}
			layer, err := w.Layer()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), layer.Digest.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain http")
	cmd.Flags().StringVar(&mediaType, "media-type", "application/vnd.oci.image.layer.v1.tar", "media type to tag the uploaded blob with")
	return cmd
}

func newBlobDeleteCommand() *cobra.Command {
	var insecure bool
	cmd := &cobra.Command{
		Use:   "delete <registry>/<repository>@<digest>",
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
