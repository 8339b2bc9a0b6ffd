package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, (&Message{Content: "hi"}).Validate())
	assert.NoError(t, (&Message{AttachmentKey: "messages/k1"}).Validate())
	assert.NoError(t, (&Message{Content: "", AttachmentKey: "messages/k1"}).Validate())

	assert.ErrorIs(t, (&Message{}).Validate(), ErrInvalidInput)
	assert.ErrorIs(t, (&Message{Content: "   "}).Validate(), ErrInvalidInput)
}

func TestSeedCategories(t *testing.T) {
	cats := SeedCategories()
	require.Len(t, cats, 8)

	seen := make(map[string]bool, len(cats))
	for _, c := range cats {
		assert.NotEmpty(t, c.Code)
		assert.NotEmpty(t, c.Description)
		assert.False(t, seen[c.Code], "duplicate category code %s", c.Code)
		seen[c.Code] = true
	}
	assert.True(t, seen["GovScam"])
	assert.True(t, seen["LoanScam"])
}
