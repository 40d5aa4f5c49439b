package tools

import (
	"fmt"
	"regexp"
	"strconv"
)

// Version is a major.minor.patch triple. Missing components are zero.
type Version [3]int

var versionPattern = regexp.MustCompile(`(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// ParseVersion extracts the first dotted number from a banner such as
// "ffmpeg version 6.1.1-3ubuntu5" or "edge-tts 6.1.12".
func ParseVersion(banner string) (Version, bool) {
	m := versionPattern.FindStringSubmatch(banner)
	if m == nil {
		return Version{}, false
	}
	var v Version
	for i := range v {
		if m[i+1] != "" {
			v[i], _ = strconv.Atoi(m[i+1])
		}
	}
	return v, true
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool {
	for i := range v {
		if v[i] != o[i] {
			return v[i] < o[i]
		}
	}
	return false
}

func (v Version) String() string {
	if v[2] == 0 {
		return fmt.Sprintf("%d.%d", v[0], v[1])
	}
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// MarshalText renders the version for JSON output.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
