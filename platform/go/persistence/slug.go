package persistence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxSlugLength matches a DNS label so slugs can name subdomains and buckets.
const MaxSlugLength = 63

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NormalizeSlug lowercases and trims an organization slug and checks it is
// URL-safe: lower-case alphanumerics separated by single hyphens.
func NormalizeSlug(input string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(input))
	switch {
	case slug == "":
		return "", errors.New("slug is required")
	case len(slug) > MaxSlugLength:
		return "", fmt.Errorf("slug must be at most %d characters", MaxSlugLength)
	case !slugPattern.MatchString(slug):
		return "", fmt.Errorf("invalid slug %q: use lower-case letters, digits and single hyphens", input)
	}
	return slug, nil
}
