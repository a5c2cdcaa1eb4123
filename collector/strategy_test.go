package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategy_Validate(t *testing.T) {
	assert.NoError(t, ResolvedSource("video").Validate())
	assert.NoError(t, Attribute("[data-url]", "data-url").Validate())

	assert.Error(t, Strategy{}.Validate())
	assert.Error(t, ResolvedSource("video[").Validate())
	assert.Error(t, Strategy{Selector: "div", Extract: ExtractAttr}.Validate())
	assert.Error(t, Strategy{Selector: "div", Extract: "innerText"}.Validate())
}
