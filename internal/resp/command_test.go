package resp

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestCmd(t *testing.T) {
	v := NewArray(NewBulkStringFrom("set"), NewBulkStringFrom("foo"), NewBulkStringFrom("bar"))
	cmd, err := v.Cmd()

	assert.NilError(t, err)
	assert.Equal(t, cmd.Name, "SET")
	assert.DeepEqual(t, cmd.StringArgs(), []string{"foo", "bar"})
}

func TestCmd_NotAnArray(t *testing.T) {
	_, err := NewInt(1).Cmd()
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestCmd_NonBulkElement(t *testing.T) {
	v := NewArray(NewInt(1))
	_, err := v.Cmd()
	assert.ErrorIs(t, err, ErrInvalidCommand)
}
