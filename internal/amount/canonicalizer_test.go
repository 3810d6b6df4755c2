package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"payreq/pkg/errors"
)

func TestToCanonical(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "plain integer", input: "1000", want: "1000.00"},
		{name: "grouped integer", input: "1,000", want: "1000.00"},
		{name: "one fraction digit", input: "1,000.5", want: "1000.50"},
		{name: "two fraction digits", input: "12,345.67", want: "12345.67"},
		{name: "leading whitespace", input: "  250.00 ", want: "250.00"},
		{name: "empty", input: "", wantErr: errors.ErrAmountInvalid},
		{name: "letters", input: "12a4", wantErr: errors.ErrAmountInvalid},
		{name: "two decimal points", input: "1.2.3", wantErr: errors.ErrAmountInvalid},
		{name: "negative sign", input: "-50", wantErr: errors.ErrAmountInvalid},
		{name: "three fraction digits", input: "10.123", wantErr: errors.ErrAmountPrecision},
		{name: "zero", input: "0", wantErr: errors.ErrAmountNotPositive},
		{name: "zero with fraction", input: "0.00", wantErr: errors.ErrAmountNotPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToCanonical(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToCanonical_RoundTrip(t *testing.T) {
	// display -> canonical -> display must be stable
	canonical, err := ToCanonical("1,234,567.89")
	assert.NoError(t, err)
	assert.Equal(t, "1234567.89", canonical)

	display := ToDisplay(canonical)
	assert.Equal(t, "1,234,567.89", display)

	again, err := ToCanonical(display)
	assert.NoError(t, err)
	assert.Equal(t, canonical, again)
}

func TestToDisplay(t *testing.T) {
	assert.Equal(t, "100.00", ToDisplay("100.00"))
	assert.Equal(t, "1,000.00", ToDisplay("1000.00"))
	assert.Equal(t, "12,345,678.90", ToDisplay("12345678.90"))
	assert.Equal(t, "999", ToDisplay("999"))

	// Non-canonical input is echoed back untouched
	assert.Equal(t, "abc", ToDisplay("abc"))
	assert.Equal(t, "", ToDisplay(""))
	assert.Equal(t, ".50", ToDisplay(".50"))
}

func TestReformat(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr error
	}{
		{input: "1234", want: "1,234"},
		{input: "1234.5", want: "1,234.5"},
		{input: "1234.", want: "1,234."},
		{input: "1,2,3,4", want: "1,234"},
		{input: "", want: ""},
		{input: "12.345", wantErr: errors.ErrAmountPrecision},
		{input: "1.2.3", wantErr: errors.ErrAmountInvalid},
		{input: "12x", wantErr: errors.ErrAmountInvalid},
	}

	for _, tt := range tests {
		got, err := Reformat(tt.input)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, "input %q", tt.input)
			continue
		}
		assert.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("1000.00", "1000.00"))
	assert.True(t, Equal("1000.00", "1000"))
	assert.False(t, Equal("1000.00", "1000.01"))
	assert.False(t, Equal("abc", "1000.00"))
}
