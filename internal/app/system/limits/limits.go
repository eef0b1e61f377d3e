// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxJSONBody bounds JSON request bodies (notifications, login).
	MaxJSONBody = 1 << 20 // 1 MB

	// MultipartOverhead is allowed on top of the thumbnail size for the
	// article text fields and multipart framing.
	MultipartOverhead = 1 << 20 // 1 MB
)
