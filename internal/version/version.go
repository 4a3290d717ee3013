// ABOUTME: Product and version constants
// ABOUTME: Reported by the CLI, the monitor and the mDNS advertisement
package version

const (
	// Version is the release of this build
	Version = "0.3.0"

	// Product names the application
	Product = "audioscape"

	// Manufacturer is reported alongside the product
	Manufacturer = "Audioscape"
)
