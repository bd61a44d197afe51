package plumbing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitIDRoundTrip(t *testing.T) {
	id, err := CommitIDFromHex("deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", id.String())
	assert.False(t, id.IsZero())

	var buf bytes.Buffer
	id.WriteTo(&buf)

	got, err := ReadCommitID(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, id.Equal(got))
}

func TestCommitIDZero(t *testing.T) {
	assert.True(t, ZeroCommitID.IsZero())
	assert.True(t, NewCommitID(nil).IsZero())
}

func TestCommitIDCompareOrdersByBytes(t *testing.T) {
	a := NewCommitID([]byte{0x01})
	b := NewCommitID([]byte{0x02})
	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(a))
}
