package profile

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed templates/*.md
var templatesFS embed.FS

// ResolveSystemProfile returns the system prompt stored under the named
// template. An empty name selects the default profile.
func ResolveSystemProfile(name string) (string, error) {
	template := templateName(name)
	if template == "" {
		return "", nil
	}

	content, err := templatesFS.ReadFile(templatePath(template))
	if err != nil {
		return "", fmt.Errorf("load %s profile template: %w", template, err)
	}

	profile := strings.TrimSpace(string(content))
	if profile == "" {
		return "", fmt.Errorf("profile template %q is empty", template)
	}

	return profile, nil
}

func templatePath(templateName string) string {
	return "templates/" + strings.TrimSpace(templateName) + ".md"
}
