package profile

import "strings"

const (
	DefaultProfile = "default"

	// profileNone disables the system prompt entirely.
	profileNone = "none"
)

func templateName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		return DefaultProfile
	case profileNone:
		return ""
	default:
		return name
	}
}
