// SPDX-License-Identifier: MIT

package recon

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/katalvlaran/supereeg/matrix"
)

func TestClassifySolve(t *testing.T) {
	singular := fmt.Errorf("SolveSymmetric: %w", matrix.ErrSingular)
	err := classifySolve(singular)
	assert.ErrorIs(t, err, ErrSingularMatrix)
	assert.ErrorIs(t, err, matrix.ErrSingular)

	other := errors.New("boom")
	assert.Same(t, other, classifySolve(other))
}
