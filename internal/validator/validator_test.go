package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		// Valid emails
		{"valid simple email", "alice@example.com", nil},
		{"valid list address", "dev-list@lists.example.com", nil},
		{"valid with plus", "alice+dev@example.com", nil},
		{"valid with dots", "first.last@example.com", nil},
		{"valid uppercase normalized", "ALICE@EXAMPLE.COM", nil},
		{"valid with whitespace trimmed", "  alice@example.com  ", nil},

		// Invalid emails
		{"empty string", "", ErrEmptyInput},
		{"whitespace only", "   ", ErrEmptyInput},
		{"missing @", "aliceexample.com", ErrInvalidEmail},
		{"missing domain", "alice@", ErrInvalidEmail},
		{"missing local part", "@example.com", ErrInvalidEmail},
		{"double @", "alice@@example.com", ErrInvalidEmail},
		{"invalid chars", "alice<>@example.com", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail_TooLong(t *testing.T) {
	// RFC 5321 caps addresses at 254 characters
	longLocal := strings.Repeat("a", 250)
	longEmail := longLocal + "@example.com"
	err := ValidateEmail(longEmail)
	assert.ErrorIs(t, err, ErrInputTooLong)
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		wantErr error
	}{
		// Valid domains
		{"valid simple", "example.com", nil},
		{"valid subdomain", "lists.example.com", nil},
		{"valid with hyphen", "my-lists.com", nil},
		{"valid short tld", "example.co", nil},
		{"valid uppercase normalized", "EXAMPLE.COM", nil},
		{"valid with whitespace trimmed", "  example.com  ", nil},
		{"valid single label", "localhost", nil},

		// Invalid domains
		{"empty string", "", ErrEmptyInput},
		{"whitespace only", "   ", ErrEmptyInput},
		{"starts with hyphen", "-example.com", ErrInvalidDomain},
		{"ends with hyphen", "example-.com", ErrInvalidDomain},
		{"double dot", "example..com", ErrInvalidDomain},
		{"starts with dot", ".example.com", ErrInvalidDomain},
		{"contains underscore", "my_lists.com", ErrInvalidDomain},
		{"contains space", "my lists.com", ErrInvalidDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDomain(tt.domain)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDomain_TooLong(t *testing.T) {
	longDomain := strings.Repeat("a", 254)
	err := ValidateDomain(longDomain)
	assert.ErrorIs(t, err, ErrInputTooLong)
}

func TestValidateLocalPart(t *testing.T) {
	tests := []struct {
		name      string
		localPart string
		wantErr   error
	}{
		// Valid local parts
		{"valid simple", "dev", nil},
		{"valid with dot", "dev.team", nil},
		{"valid with underscore", "dev_team", nil},
		{"valid bounce address", "dev-bounce", nil},
		{"valid alphanumeric", "dev123", nil},
		{"valid uppercase normalized", "DEV", nil},
		{"valid with whitespace trimmed", "  dev  ", nil},

		// Invalid local parts
		{"empty string", "", ErrEmptyInput},
		{"whitespace only", "   ", ErrEmptyInput},
		{"starts with dot", ".dev", ErrInvalidLocalPart},
		{"starts with hyphen", "-dev", ErrInvalidLocalPart},
		{"starts with underscore", "_dev", ErrInvalidLocalPart},
		{"contains space", "dev team", ErrInvalidLocalPart},
		{"contains @", "dev@team", ErrInvalidLocalPart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLocalPart(tt.localPart)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateLocalPart_TooLong(t *testing.T) {
	longLocalPart := "a" + strings.Repeat("b", 64)
	err := ValidateLocalPart(longLocalPart)
	assert.ErrorIs(t, err, ErrInputTooLong)
}

func TestValidateGroupID(t *testing.T) {
	tests := []struct {
		name    string
		groupID string
		wantErr error
	}{
		// Valid group ids
		{"valid simple", "dev", nil},
		{"valid with hyphen", "dev-team", nil},
		{"valid with dot", "dev.announce", nil},
		{"valid with underscore", "dev_team", nil},
		{"valid mixed case", "DevTeam", nil},
		{"valid numeric start", "42crew", nil},
		{"valid with whitespace trimmed", "  dev  ", nil},

		// Invalid group ids
		{"empty string", "", ErrEmptyInput},
		{"whitespace only", "   ", ErrEmptyInput},
		{"starts with dot", ".dev", ErrInvalidGroupID},
		{"starts with hyphen", "-dev", ErrInvalidGroupID},
		{"contains space", "dev team", ErrInvalidGroupID},
		{"contains @", "dev@team", ErrInvalidGroupID},
		{"contains slash", "dev/team", ErrInvalidGroupID},
		{"too long", "a" + strings.Repeat("b", 128), ErrInvalidGroupID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGroupID(tt.groupID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal attachment name", "minutes.pdf", "minutes.pdf"},
		{"with spaces", "meeting minutes.pdf", "meeting minutes.pdf"},
		{"path traversal dots", "../../../etc/passwd", "______etc_passwd"},
		{"forward slash", "path/to/patch.diff", "path_to_patch.diff"},
		{"backslash", "path\\to\\patch.diff", "path_to_patch.diff"},
		{"control chars", "patch\x00.diff", "patch.diff"},
		{"tab character", "patch\t.diff", "patch.diff"},
		{"newline", "patch\n.diff", "patch.diff"},
		{"empty string", "", "unnamed"},
		{"whitespace only", "   ", "unnamed"},
		{"double dots", "patch..diff", "patch_diff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeFilename(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSanitizeFilename_LongFilename(t *testing.T) {
	longFilename := strings.Repeat("a", 300) + ".txt"
	result := SanitizeFilename(longFilename)
	assert.LessOrEqual(t, len(result), 255)
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{"normal string", "hello world", 0, "hello world"},
		{"with control chars", "hello\x00world", 0, "helloworld"},
		{"with tab", "hello\tworld", 0, "helloworld"},
		{"with newline", "hello\nworld", 0, "helloworld"},
		{"trim whitespace", "  hello  ", 0, "hello"},
		{"enforce max length", "hello world", 5, "hello"},
		{"max length zero means no limit", "hello world", 0, "hello world"},
		{"empty string", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeString(tt.input, tt.maxLength)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestValidatePagination(t *testing.T) {
	tests := []struct {
		name           string
		inputLimit     int
		inputOffset    int
		expectedLimit  int
		expectedOffset int
	}{
		{"valid values", 10, 20, 10, 20},
		{"zero limit uses default", 0, 0, DefaultLimit, 0},
		{"negative limit uses default", -5, 0, DefaultLimit, 0},
		{"limit exceeds max", 200, 0, MaxLimit, 0},
		{"negative offset becomes zero", 10, -5, 10, 0},
		{"all defaults", 0, -1, DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := ValidatePagination(tt.inputLimit, tt.inputOffset)
			assert.Equal(t, tt.expectedLimit, limit)
			assert.Equal(t, tt.expectedOffset, offset)
		})
	}
}
