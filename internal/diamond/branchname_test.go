package diamond_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rsperko/diamond/internal/diamond"
)

func TestGenerateBranchName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{name: "simple", subject: "Add widget support", want: "add-widget-support"},
		{name: "punctuation", subject: "Fix bug: nil pointer!", want: "fix-bug-nil-pointer"},
		{name: "numbers", subject: "Bump go to 1.26", want: "bump-go-to-1-26"},
		{name: "empty", subject: "", want: ""},
		{name: "only punctuation", subject: "---", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, diamond.GenerateBranchName(tt.subject))
		})
	}
}

func TestGenerateBranchName_Truncates(t *testing.T) {
	t.Parallel()

	subject := strings.Repeat("word ", 30) // far longer than the 60-char limit
	got := diamond.GenerateBranchName(subject)

	assert.LessOrEqual(t, len(got), 60)
	assert.False(t, strings.HasSuffix(got, "-"), "truncated name must not end with a dangling hyphen")
}
