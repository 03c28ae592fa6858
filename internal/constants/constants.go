// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Listing constants
const (
	// DefaultStaffListLimit is the number of staff returned when no limit is given
	DefaultStaffListLimit = 50

	// MaxStaffListLimit is the upper bound accepted for the staff list limit
	MaxStaffListLimit = 200
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) of kiosk frames sent to the descriptor service
	MaxImageSize = 1280
)

// File upload constants
const (
	// MaxUploadSize is the maximum kiosk frame upload size in bytes (10MB)
	MaxUploadSize = 10 << 20

	// MaxJSONBodySize is the maximum JSON request body size in bytes (5MB, enough for many descriptors)
	MaxJSONBodySize = 5 << 20
)
