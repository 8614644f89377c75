package ocitypes

import "testing"

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("linux/amd64")
	if err != nil {
		t.Fatal(err)
	}
	if p.OS != "linux" || p.Architecture != "amd64" {
		t.Errorf("got %+v", p)
	}
	if p.String() != "linux/amd64" {
		t.Errorf("String() = %q", p.String())
	}
}

func TestPlatformEqual(t *testing.T) {
	a := Platform{OS: "linux", Architecture: "amd64"}
	b := Platform{OS: "linux", Architecture: "amd64"}
	c := Platform{OS: "linux", Architecture: "arm64"}
	if !a.Equal(b) {
		t.Error("expected equal platforms to compare equal")
	}
	if a.Equal(c) {
		t.Error("expected different architectures to compare unequal")
	}
}
