package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictParameters(t *testing.T) {
	params, err := predictParameters(384)
	require.NoError(t, err)
	assert.Equal(t, float64(384), params.GetStructValue().AsMap()["outputDimensionality"])

	params, err = predictParameters(0)
	require.NoError(t, err)
	assert.Nil(t, params)
}
