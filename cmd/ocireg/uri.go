package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/bibin-skaria/ocireg/internal/ocitypes"
	"github.com/bibin-skaria/ocireg/registry"
)

// resolveURI parses s and resolves credentials for its registry half. If
// s has no registry segment (no "/"), it is prefixed with the
// ~/.ocireg.yaml default registry, if one is configured. The connection
// is treated as insecure if --insecure was passed on the command line or
// if the config file sets insecure as the default.
func resolveURI(ctx context.Context, s string, insecure bool) (*registry.URI, error) {
	if cliConfig.DefaultRegistry != "" && !strings.Contains(s, "/") {
		s = cliConfig.DefaultRegistry + "/" + s
	}
	u, err := registry.NewURI(ctx, s, http.DefaultClient)
	if err != nil {
		return nil, err
	}
	if insecure || cliConfig.Insecure {
		u.SetSecure(false)
	}
	return u, nil
}

func parsePlatformFlag(s string) (*ocitypes.Platform, error) {
	if s == "" {
		return nil, nil
	}
	p, err := ocitypes.ParsePlatform(s)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
