package detect

// DefaultKeywords is the built-in meeting-related keyword set matched
// against normalized tokens. Overridable via detector configuration.
var DefaultKeywords = []string{
	"meeting", "call", "appointment", "schedule", "calendar",
	"invite", "invitation", "conference", "discussion",
}
