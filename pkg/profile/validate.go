package profile

import (
	"net/url"
	"strings"

	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// Validate checks p for problems that would make it unusable against a
// panel. It is advisory: Save stores records regardless.
func Validate(p xtream.ProfileAccount) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	if strings.TrimSpace(p.ID) == "" {
		result.Errors = append(result.Errors, "id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		result.Errors = append(result.Errors, "name is required")
	}

	if strings.TrimSpace(p.Config.URL) == "" {
		result.Errors = append(result.Errors, "config.url is required")
	} else if u, err := url.Parse(p.Config.URL); err != nil {
		result.Errors = append(result.Errors, "config.url is not a valid URL: "+err.Error())
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result.Errors = append(result.Errors, "config.url must be an absolute http or https URL")
	}

	if p.Config.Username == "" {
		result.Warnings = append(result.Warnings, "config.username is empty")
	}
	if p.Config.Password == "" {
		result.Warnings = append(result.Warnings, "config.password is empty")
	}

	result.Valid = len(result.Errors) == 0
	return result
}
