package artifact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_AssignsUniqueIDs(t *testing.T) {
	t.Parallel()

	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		a := New("title", TypeCode, "content", now)
		assert.NotEmpty(t, a.ID)
		assert.False(t, seen[a.ID], "duplicate ID %s", a.ID)
		seen[a.ID] = true
	}
}

func TestGroupKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    Artifact
		want Key
	}{
		{
			name: "code includes language",
			a:    Artifact{Title: "script", Type: TypeCode, Language: "python"},
			want: Key{Title: "script", Type: TypeCode, Language: "python"},
		},
		{
			name: "svg ignores language",
			a:    Artifact{Title: "chart", Type: TypeSVG, Language: "python"},
			want: Key{Title: "chart", Type: TypeSVG},
		},
		{
			name: "markdown ignores language",
			a:    Artifact{Title: "notes", Type: TypeMarkdown, Language: "go"},
			want: Key{Title: "notes", Type: TypeMarkdown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.a.GroupKey())
		})
	}
}

func TestFile_Path(t *testing.T) {
	t.Parallel()

	flat := File{Name: "main.js"}
	assert.Equal(t, "main.js", flat.Path())

	nested := File{Name: "main.js", Dir: "2026/08"}
	assert.Equal(t, "2026/08/main.js", nested.Path())
}
