package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameKey(t *testing.T) {
	cases := map[string]string{
		"  Café   CENTRAL ": "cafe central",
		"cafe central":      "cafe central",
		"Ñandú Stores":      "nandu stores",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NameKey(in), "entrada %q", in)
	}
}

func TestTaxID(t *testing.T) {
	assert.Equal(t, "900123456-7", TaxID(" 900.123.456 - 7 "))
	assert.Equal(t, "ABC123", TaxID("abc 123"))
}

func TestNITVerificationDigit(t *testing.T) {
	d, err := ComputeNITVerificationDigit("800197268")
	require.NoError(t, err)
	assert.Equal(t, byte('4'), d, "NIT de la DIAN")

	assert.NoError(t, ValidateNITVerificationDigit("800.197.268-4"))
	assert.Error(t, ValidateNITVerificationDigit("800197268-5"))
	assert.Error(t, ValidateNITVerificationDigit("12345"))
}

func TestPhone(t *testing.T) {
	got, err := Phone("300 123 4567", "CO")
	require.NoError(t, err)
	assert.Equal(t, "+573001234567", got)

	got, err = Phone("+57 300 123 4567", "US")
	require.NoError(t, err)
	assert.Equal(t, "+573001234567", got)

	_, err = Phone("123", "CO")
	assert.ErrorIs(t, err, ErrInvalidPhone)

	_, err = Phone("", "CO")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}
