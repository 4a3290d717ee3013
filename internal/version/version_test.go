// ABOUTME: Tests for version constants
// ABOUTME: Checks the product identity and that the version is a release number
package version

import (
	"regexp"
	"testing"
)

func TestProduct(t *testing.T) {
	if Product != "audioscape" {
		t.Errorf("expected product audioscape, got %q", Product)
	}
}

func TestProductIsDNSLabel(t *testing.T) {
	// The product ends up in default installation names advertised over mDNS
	label := regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	if !label.MatchString(Product) {
		t.Errorf("product %q is not a valid DNS label", Product)
	}
}

func TestVersionIsSemantic(t *testing.T) {
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	if !semver.MatchString(Version) {
		t.Errorf("expected a major.minor.patch version, got %q", Version)
	}
}

func TestManufacturer(t *testing.T) {
	if Manufacturer != "Audioscape" {
		t.Errorf("expected manufacturer Audioscape, got %q", Manufacturer)
	}
}
