package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeFold(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"only blanks", []string{"", "  ", "\t"}, []string{}},
		{"trims and keeps order", []string{" b ", "a"}, []string{"b", "a"}},
		{"first spelling wins", []string{"Chess", "chess", "CHESS", "go"}, []string{"Chess", "go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeFold(tt.in))
		})
	}
}

func TestNormalizeList(t *testing.T) {
	assert.Equal(t, "chess, Go", NormalizeList(" chess,Go , chess,,  go"))
	assert.Equal(t, "hiking", NormalizeList("hiking"))
	assert.Equal(t, "", NormalizeList(" , ,"))
}
