package policy

import "strings"

// GlobMatch checks if path matches pattern, adapted directly from the
// teacher's internal/routing/glob.go: "*" matches one dotted segment,
// "**" matches zero or more, segments split on ".".
func GlobMatch(pattern, path string) bool {
	return globMatch(strings.Split(pattern, "."), strings.Split(path, "."))
}

func globMatch(pat, seg []string) bool {
	for len(pat) > 0 {
		p := pat[0]
		pat = pat[1:]

		if p == "**" {
			if len(pat) == 0 {
				return true
			}
			for i := 0; i <= len(seg); i++ {
				if globMatch(pat, seg[i:]) {
					return true
				}
			}
			return false
		}

		if len(seg) == 0 {
			return false
		}
		if p != "*" && p != seg[0] {
			return false
		}
		seg = seg[1:]
	}
	return len(seg) == 0
}

// GlobSpecificity scores a pattern's specificity: literal segments
// outweigh "*", which outweighs "**" (teacher's
// internal/routing/glob.go GlobSpecificity).
func GlobSpecificity(pattern string) int {
	score := 0
	for _, p := range strings.Split(pattern, ".") {
		switch p {
		case "**":
		case "*":
			score++
		default:
			score += 10
		}
	}
	return score
}
