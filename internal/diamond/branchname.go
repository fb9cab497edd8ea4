package diamond

import (
	"strings"
	"unicode"
)

// _generatedBranchNameLimit caps the length of a name generated from a
// commit subject, so an unusually long subject doesn't produce an
// unwieldy branch name.
const _generatedBranchNameLimit = 60

// GenerateBranchName derives a branch name from a commit subject by
// lowercasing it and joining its words with hyphens, stopping once the
// result would exceed the generated-name length limit.
func GenerateBranchName(subject string) string {
	words := strings.FieldsFunc(strings.ToLower(subject), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 {
		return ""
	}

	var name strings.Builder
	for _, w := range words {
		needHyphen := name.Len() > 0
		newLen := name.Len() + len(w)
		if needHyphen {
			newLen++
		}
		if newLen > _generatedBranchNameLimit {
			break
		}

		if needHyphen {
			name.WriteByte('-')
		}
		for _, r := range w {
			name.WriteRune(unicode.ToLower(r))
		}
	}

	return name.String()
}
