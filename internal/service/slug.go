package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9가-힣]+`)

// Slugify lowercases name and replaces runs of anything but latin letters,
// digits and Hangul syllables with a single dash.
func Slugify(name string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// uniqueSlug appends a base36 timestamp so renames never collide.
func uniqueSlug(name string, now time.Time) string {
	suffix := strconv.FormatInt(now.UnixMilli(), 36)
	if s := Slugify(name); s != "" {
		return s + "-" + suffix
	}
	return suffix
}
