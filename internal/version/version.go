// ABOUTME: Version and product identification
// ABOUTME: Reported by the CLI, the control server and mDNS records
package version

// Product identification
const (
	Version      = "0.3.0"
	Product      = "Resonate Recorder"
	Manufacturer = "Resonate"
)

// String returns the product and version, e.g. "Resonate Recorder 0.3.0"
func String() string {
	return Product + " " + Version
}
