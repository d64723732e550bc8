package util_test

import (
	"testing"

	"github.com/cairndb/cairn/disk"
	"github.com/cairndb/cairn/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	A int64
	B string
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := sample{A: 42, B: "hello"}

	buf, err := util.EncodePage(in)
	require.NoError(t, err)
	assert.Len(t, buf, disk.PageSize)

	out, err := util.DecodePage[sample](buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	big := make([]byte, disk.PageSize*2)
	_, err := util.EncodePage(big)
	assert.Error(t, err)
}
