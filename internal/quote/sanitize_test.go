package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStandardOptions(t *testing.T) {
	got := SanitizeStandardOptions([]string{"Spindle motor", "nan", "  ", "Coolant nan system"})
	assert.Equal(t, []string{"Spindle motor", "Coolant  system"}, got)
}

func TestSanitizeStandardOptions_SubstringRule(t *testing.T) {
	got := SanitizeStandardOptions([]string{"Financing", "nannan", "Auto door", "Auto door"})
	assert.Equal(t, []string{"Ficing", "Auto door", "Auto door"}, got)
}

func TestSanitizeStandardOptions_Empty(t *testing.T) {
	assert.Empty(t, SanitizeStandardOptions(nil))
}
