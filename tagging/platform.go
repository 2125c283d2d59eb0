package tagging

// Target stock-photo marketplaces for keyword CSV export.
const (
	PlatformShutterstock = "shutterstock"
	PlatformAdobeStock   = "adobe_stock"
	PlatformOther        = "other"
)

// IsValidPlatform checks if a string is a known export platform
func IsValidPlatform(platform string) bool {
	switch platform {
	case PlatformShutterstock, PlatformAdobeStock, PlatformOther:
		return true
	default:
		return false
	}
}
