package configurable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() []*Configurable {
	general := &Configurable{ID: "editor.general", DisplayName: "General"}
	return []*Configurable{
		{ID: "editor", DisplayName: "Editor", Children: []*Configurable{
			general,
			{ID: "editor.fonts", DisplayName: "Font"},
		}},
		{ID: "vcs", DisplayName: "Version Control", Children: []*Configurable{general}},
		nil,
	}
}

func TestFlattenPreOrderOnce(t *testing.T) {
	flat := Flatten(sampleTree())
	assert.Equal(t, []string{"editor", "editor.general", "editor.fonts", "vcs"}, IDs(flat))
}

func TestFind(t *testing.T) {
	roots := sampleTree()
	c := Find(roots, "editor.fonts")
	require.NotNil(t, c)
	assert.Equal(t, "Font", c.DisplayName)
	assert.False(t, c.IsComposite())
	assert.True(t, roots[0].IsComposite())
	assert.Nil(t, Find(roots, "missing"))
}

func TestFindByName(t *testing.T) {
	roots := sampleTree()
	assert.Same(t, roots[1], FindByName(roots, "version control"))
	assert.Nil(t, FindByName(roots, "General"))
}
