package ocitypes

import "testing"

func TestParseRegistryURI(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantBase   string
		wantSecure bool
	}{
		{"bare host with port", "localhost:5000", "localhost:5000", false},
		{"loopback ip", "127.0.0.1", "127.0.0.1", false},
		{"ecr public base", "public.ecr.aws/bottlerocket", "public.ecr.aws/bottlerocket", true},
		{"explicit http", "http://public.ecr.aws", "public.ecr.aws", false},
		{"explicit https", "https://example.com", "example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRegistryURI(tt.in)
			if got.Base != tt.wantBase {
				t.Errorf("Base = %q, want %q", got.Base, tt.wantBase)
			}
			if got.Secure != tt.wantSecure {
				t.Errorf("Secure = %v, want %v", got.Secure, tt.wantSecure)
			}
		})
	}
}

func TestRegistryURIToURL(t *testing.T) {
	r := ParseRegistryURI("localhost:5000")
	u, err := r.URL()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := u.String(), "http://localhost:5000"; got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}

	r = ParseRegistryURI("public.ecr.aws/bottlerocket")
	u, err = r.URL()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := u.String(), "https://public.ecr.aws/bottlerocket"; got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
}

func TestParseReference(t *testing.T) {
	ref, err := ParseReference("latest")
	if err != nil {
		t.Fatal(err)
	}
	if ref.IsDigest() || ref.Tag != "latest" {
		t.Errorf("got %+v, want tag latest", ref)
	}
	if ref.String() != "latest" {
		t.Errorf("String() = %q", ref.String())
	}

	ref, err = ParseReference("sha256:1234567890abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if !ref.IsDigest() {
		t.Fatalf("expected digest reference, got %+v", ref)
	}
	if ref.String() != "sha256:1234567890abcdef" {
		t.Errorf("String() = %q", ref.String())
	}
}

func TestParseURI(t *testing.T) {
	p, err := ParseURI("localhost:5000/bottlerocket-test:latest")
	if err != nil {
		t.Fatal(err)
	}
	if p.Registry.Base != "localhost:5000" || p.Registry.Secure {
		t.Errorf("registry = %+v", p.Registry)
	}
	if p.Repository != "bottlerocket-test" {
		t.Errorf("repository = %q", p.Repository)
	}
	if p.Reference.IsDigest() || p.Reference.Tag != "latest" {
		t.Errorf("reference = %+v", p.Reference)
	}
	if got, want := p.String(), "localhost:5000/bottlerocket-test:latest"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	p, err = ParseURI("fake.io/bottlerocket/bottlerocket-test:latest")
	if err != nil {
		t.Fatal(err)
	}
	if p.Repository != "bottlerocket/bottlerocket-test" {
		t.Errorf("repository = %q", p.Repository)
	}
	if got, want := p.String(), "fake.io/bottlerocket/bottlerocket-test:latest"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	p, err = ParseURI("fake.io/bottlerocket/bottlerocket-test@sha256:1234567890abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if p.Repository != "bottlerocket/bottlerocket-test" {
		t.Errorf("repository = %q", p.Repository)
	}
	if !p.Reference.IsDigest() || p.Reference.Digest.Encoded() != "1234567890abcdef" {
		t.Errorf("reference = %+v", p.Reference)
	}
	if got, want := p.String(), "fake.io/bottlerocket/bottlerocket-test@sha256:1234567890abcdef"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseURIMalformed(t *testing.T) {
	if _, err := ParseURI("justaregistry"); err == nil {
		t.Error("expected error for uri with no object")
	}
	if _, err := ParseURI("registry/repo"); err == nil {
		t.Error("expected error for object without tag or digest")
	}
	if _, err := ParseURI("registry/repo@nocolon"); err == nil {
		t.Error("expected error for digest without algorithm")
	}
}
