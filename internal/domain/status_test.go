package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" disbursed ")
	require.NoError(t, err)
	assert.Equal(t, StatusDisbursed, s)

	s, err = ParseStatus("Submitted_To_Bank")
	require.NoError(t, err)
	assert.Equal(t, StatusSubmittedToBank, s)

	_, err = ParseStatus("APPROVED")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestClientStatus_Terminal(t *testing.T) {
	for _, s := range AllStatuses {
		assert.Equal(t, s == StatusDisbursed || s == StatusDeclined, s.Terminal(), s)
	}
}
