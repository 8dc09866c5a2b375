package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountEvents(t *testing.T) {
	stream := ": ping\n\n" +
		"id: 1\nevent: transaction\ndata: {}\n\n" +
		"id: 4\nevent: state\ndata: {}\n\n" +
		"id: 2\nevent: transaction\ndata: {}\n\n"

	var calls int
	n, err := countEvents(strings.NewReader(stream), func() { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, calls)
}
