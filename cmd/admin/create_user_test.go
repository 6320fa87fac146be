package main

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPassword_FromPipe(t *testing.T) {
	got, err := readPassword(strings.NewReader("s3cret-pass\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", got)
}

func TestReadPassword_EmptyInput(t *testing.T) {
	_, err := readPassword(strings.NewReader(""))
	assert.ErrorIs(t, err, io.EOF)
}
