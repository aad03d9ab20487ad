package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrus/codegen"
	"pyrus/types"
)

func TestDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, types.Width32, cfg.IntWidth)
	assert.Equal(t, types.StringAlwaysOwned, cfg.Strings)
	assert.True(t, cfg.Optimize)
	assert.True(t, cfg.Passes.ConstantFolding)
	assert.True(t, cfg.Passes.DeadCode)
	assert.True(t, cfg.Passes.CSE)
	assert.Equal(t, codegen.WrapMandatory, cfg.Fallible)
}

func TestFullConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
[types]
int-width = 64
strings = "borrow"

[optimize]
enabled = true
constant-folding = false
dead-code = true
cse = false

[codegen]
fallible = "best-effort"
`))
	require.NoError(t, err)

	assert.Equal(t, types.Width64, cfg.IntWidth)
	assert.Equal(t, types.StringBorrowWhenPossible, cfg.Strings)
	assert.False(t, cfg.Passes.ConstantFolding)
	assert.True(t, cfg.Passes.DeadCode)
	assert.False(t, cfg.Passes.CSE)
	assert.Equal(t, codegen.WrapBestEffort, cfg.Fallible)
}

func TestOmittedSectionsKeepDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[types]
int-width = 64
`))
	require.NoError(t, err)

	assert.Equal(t, types.Width64, cfg.IntWidth)
	assert.Equal(t, types.StringAlwaysOwned, cfg.Strings)
	assert.True(t, cfg.Passes.CSE)
}

func TestInvalidValuesAreRejected(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"bad width", "[types]\nint-width = 16\n"},
		{"bad strings", "[types]\nstrings = \"shared\"\n"},
		{"bad fallible", "[codegen]\nfallible = \"never\"\n"},
		{"malformed toml", "[types\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.text))
			assert.Error(t, err)
		})
	}
}

func TestMapperReflectsConfig(t *testing.T) {
	cfg, err := Parse([]byte("[types]\nint-width = 64\n"))
	require.NoError(t, err)

	mapper := cfg.Mapper()
	assert.Equal(t, "i64", mapper.Map(types.PyInt).Repr())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/pyrus.toml")
	assert.Error(t, err)
}
