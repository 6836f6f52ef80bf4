package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabledDefaults(t *testing.T) {
	t.Setenv("FLAG_SEED_DEMO_USER", "")
	t.Setenv("FLAG_SOMETHING_NEW", "")
	assert.True(t, Enabled(SeedDemoUser))
	assert.False(t, Enabled("something_new"))
}

func TestEnabledOverrides(t *testing.T) {
	t.Setenv("FLAG_SEED_DEMO_USER", "off")
	assert.False(t, Enabled(SeedDemoUser))

	t.Setenv("FLAG_BETA", "Yes")
	assert.True(t, Enabled("beta"))

	t.Setenv("FLAG_SPEC_GENERATION", "maybe")
	assert.True(t, Enabled(SpecGeneration))
}
