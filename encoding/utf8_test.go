package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUTF8String(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"ascii", []byte("hello/world"), nil},
		{"empty", []byte{}, nil},
		{"multibyte", []byte("héllo-世界"), nil},
		{"null_byte", []byte{'a', 0x00, 'b'}, ErrNullCharacter},
		{"invalid_utf8", []byte{0xC0, 0x80}, ErrInvalidUTF8},
		{"lone_continuation", []byte{0x80}, ErrInvalidUTF8},
		{"noncharacter_fffe", []byte{0xEF, 0xBF, 0xBE}, ErrNonCharacterCodePoint},
		{"noncharacter_ffff", []byte{0xEF, 0xBF, 0xBF}, ErrNonCharacterCodePoint},
		{"noncharacter_fdd0", []byte{0xEF, 0xB7, 0x90}, ErrNonCharacterCodePoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUTF8String(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUTF8StringStrict(t *testing.T) {
	assert.NoError(t, ValidateUTF8StringStrict([]byte("ok\twith\nwhitespace")))
	assert.ErrorIs(t, ValidateUTF8StringStrict([]byte{'a', 0x01}), ErrControlCharacter)
	assert.ErrorIs(t, ValidateUTF8StringStrict([]byte{'a', 0x7F}), ErrControlCharacter)
}

func TestIsValidUTF8String(t *testing.T) {
	assert.True(t, IsValidUTF8String([]byte("plain")))
	assert.False(t, IsValidUTF8String([]byte{0x00}))
}

func TestValidateTopicName(t *testing.T) {
	assert.NoError(t, ValidateTopicName("a/b/c"))
	assert.NoError(t, ValidateTopicName(""))
	assert.ErrorIs(t, ValidateTopicName("a/+/c"), ErrInvalidPublishTopicName)
	assert.ErrorIs(t, ValidateTopicName("a/#"), ErrInvalidPublishTopicName)
}

func TestValidateTopicFilter(t *testing.T) {
	tests := []struct {
		filter  string
		wantErr error
	}{
		{"a/b/c", nil},
		{"+/b/#", nil},
		{"#", nil},
		{"+", nil},
		{"sport/+/player1", nil},
		{"", ErrEmptyTopicFilter},
		{"a/#/c", ErrInvalidTopicFilter},
		{"a/b#", ErrInvalidTopicFilter},
		{"a/+b/c", ErrInvalidTopicFilter},
		{"sport+", ErrInvalidTopicFilter},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			err := ValidateTopicFilter(tt.filter)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePacketID(t *testing.T) {
	assert.NoError(t, ValidatePacketID(1))
	assert.ErrorIs(t, ValidatePacketID(0), ErrInvalidPacketIDZero)
}
