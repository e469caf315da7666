package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateThreadID(t *testing.T) {
	valid := []string{
		"3f8a2c1e-9b4d-4e7f-8a6b-1c2d3e4f5a6b",
		"3F8A2C1E-9B4D-4E7F-AA6B-1C2D3E4F5A6B",
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8", // v1
	}
	for _, id := range valid {
		require.NoError(t, ValidateThreadID(id), id)
	}

	invalid := []string{
		"",
		"not-a-uuid",
		"{3f8a2c1e-9b4d-4e7f-8a6b-1c2d3e4f5a6b}",
		"urn:uuid:3f8a2c1e-9b4d-4e7f-8a6b-1c2d3e4f5a6b",
		"3f8a2c1e-9b4d-0e7f-8a6b-1c2d3e4f5a6b", // version 0
		"3f8a2c1e-9b4d-4e7f-ca6b-1c2d3e4f5a6b", // microsoft variant
		"3f8a2c1e9b4d4e7f8a6b1c2d3e4f5a6b",
	}
	for _, id := range invalid {
		err := ValidateThreadID(id)
		require.Error(t, err, id)
		require.True(t, errors.Is(err, ErrInvalidThreadID))
	}
}

func TestErrorCode(t *testing.T) {
	require.Equal(t, "", ErrorCode(nil))
	require.Equal(t, "", ErrorCode(ErrRequestAborted))
	require.Equal(t, CodeInvalidThreadID, ErrorCode(ValidateThreadID("x")))
	require.Equal(t, CodeUnauthorized, ErrorCode(ErrUnauthorized))
	require.Equal(t, CodeFetchFailed, ErrorCode(ErrFetchFailed))
	require.Equal(t, CodeFetchFailed, ErrorCode(errors.New("boom")))
}
