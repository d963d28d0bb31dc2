// ABOUTME: Version and product identification constants
// ABOUTME: Logged at startup and shown in CLI output
package version

const (
	// Version is the software version logged at startup.
	Version = "0.3.0"

	// Product is the product name sent in diagnostics.
	Product = "MuseLink Console"

	// Manufacturer identifies the project.
	Manufacturer = "MuseLink"
)
