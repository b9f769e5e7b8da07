package seed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerate(t *testing.T) {
	for _, words := range []int{12, 15, 18, 21, 24} {
		s, err := Generate(words)
		require.NoError(t, err)
		assert.Equal(t, words, s.Words())
		assert.Equal(t, KindMnemonic, s.Kind)
		assert.NoError(t, s.Validate())
	}

	_, err := Generate(13)
	assert.ErrorIs(t, err, ErrWordCount)
}

func TestNewMnemonic(t *testing.T) {
	s, err := NewMnemonic("  ABANDON abandon abandon abandon abandon abandon\n abandon abandon abandon abandon abandon   about ")
	require.NoError(t, err)
	assert.Equal(t, validMnemonic, s.Seed)

	_, err = NewMnemonic("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)

	_, err = NewMnemonic("   ")
	assert.ErrorIs(t, err, ErrEmptySeed)
}

func TestNewRaw(t *testing.T) {
	s, err := NewRaw(" sEdT7wHTCLzDG7Natmm4QEXrSSKfKTs \n")
	require.NoError(t, err)
	assert.Equal(t, "sEdT7wHTCLzDG7Natmm4QEXrSSKfKTs", s.Seed)
	assert.Equal(t, KindRaw, s.Kind)
	assert.NoError(t, s.Validate())

	_, err = NewRaw("")
	assert.ErrorIs(t, err, ErrEmptySeed)
}

func TestSecretJSONShape(t *testing.T) {
	data, err := json.Marshal(Secret{Seed: "sEdT7"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"seed":"sEdT7"}`, string(data))
}

func TestValidateTamperedMnemonic(t *testing.T) {
	s := &Secret{Seed: "abandon about", Kind: KindMnemonic}
	assert.ErrorIs(t, s.Validate(), ErrInvalidMnemonic)
}
