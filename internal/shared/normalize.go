package shared

import (
	"regexp"
	"strings"
)

var (
	titleClause = regexp.MustCompile(`(?i)^(.*?) (?:\(From|- From|\(Feat\.)`)
	albumClause = regexp.MustCompile(`(?i)\(From "(.*?)"\)|- From "(.*?)"`)
	nonAlnum    = regexp.MustCompile(`[^\p{L}\p{N}]+`)

	albumNoise = []*regexp.Regexp{
		noisePattern("original motion picture soundtrack"),
		noisePattern("deluxe edition"),
	}

	albumReplacer = strings.NewReplacer("&", "And", "-", "", "(", "", ")", "")
)

func noisePattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\(?\s*` + regexp.QuoteMeta(phrase) + `\s*\)?`)
}

// CleanTitle drops a trailing "(From ...)", "- From ..." or "(Feat. ...)" clause from a track title.
//
// Titles without such a clause are returned unchanged.
func CleanTitle(s string) string {
	if m := titleClause.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// CleanAlbum extracts the quoted source from `(From "...")` or `- From "..."` album names.
func CleanAlbum(s string) string {
	m := albumClause.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// FoldAlbum reduces an album name to a comparison key: noise phrases removed, punctuation collapsed to single spaces.
//
// The result is only meant for similarity scoring and never replaces the display name.
// Folding is repeated until it reaches a fixed point, so FoldAlbum(FoldAlbum(s)) == FoldAlbum(s).
func FoldAlbum(s string) string {
	for {
		next := foldAlbumOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func foldAlbumOnce(s string) string {
	for _, re := range albumNoise {
		s = strings.TrimSpace(re.ReplaceAllString(s, ""))
	}
	s = albumReplacer.Replace(s)
	return strings.TrimSpace(nonAlnum.ReplaceAllString(s, " "))
}

// SplitList splits a comma separated list, trimming blanks and dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
