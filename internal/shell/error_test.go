package shell_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/auth-fusion/authfusion/internal/shell"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, shell.ExitCode(nil))
	assert.Equal(t, 1, shell.ExitCode(assert.AnError))
	assert.Equal(t, 3, shell.ExitCode(shell.NewExitError(3)))
	assert.Equal(t, 2, shell.ExitCode(fmt.Errorf("scan: %w", shell.Exit(2, assert.AnError))))
}

func TestExitError(t *testing.T) {
	err := shell.Exit(2, assert.AnError)

	assert.True(t, shell.IsExitError(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, assert.AnError.Error(), err.Error())
	assert.Equal(t, "shell exited with 1", shell.NewExitError(1).Error())
	assert.False(t, shell.IsExitError(nil))
	assert.False(t, shell.IsExitError(assert.AnError))
}
