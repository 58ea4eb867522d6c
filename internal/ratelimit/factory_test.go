package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowfence/flowfence-go/internal/clock"
	"github.com/flowfence/flowfence-go/internal/constants"
	"github.com/flowfence/flowfence-go/internal/storage"
)

func TestFactory_CreateAllAlgorithms(t *testing.T) {
	backend := storage.NewMemoryBackend(clock.NewMockClock(0), time.Hour)
	defer backend.Close()

	factory := NewFactory()
	for _, algorithmID := range Algorithms() {
		algorithm, err := factory.Create(&Config{
			Algorithm:   algorithmID,
			WindowMs:    10000,
			MaxRequests: 5,
		}, backend)
		require.NoError(t, err, algorithmID)
		assert.Equal(t, algorithmID, algorithm.Type())
	}
}

func TestFactory_Create_ValidationErrors(t *testing.T) {
	backend := storage.NewMemoryBackend(clock.NewMockClock(0), time.Hour)
	defer backend.Close()

	factory := NewFactory()

	tests := []struct {
		name      string
		config    *Config
		errorType error
	}{
		{
			name:      "nil config",
			config:    nil,
			errorType: ErrNilConfig,
		},
		{
			name: "unknown algorithm",
			config: &Config{
				Algorithm:   "LEAKY_TOKEN",
				WindowMs:    1000,
				MaxRequests: 1,
			},
			errorType: ErrUnknownAlgorithm,
		},
		{
			name: "non-positive window",
			config: &Config{
				Algorithm:   constants.AlgorithmFixedWindow,
				WindowMs:    0,
				MaxRequests: 1,
			},
			errorType: ErrInvalidWindow,
		},
		{
			name: "non-positive limit",
			config: &Config{
				Algorithm:   constants.AlgorithmFixedWindow,
				WindowMs:    1000,
				MaxRequests: 0,
			},
			errorType: ErrInvalidMaxRequests,
		},
		{
			name: "negative bucket size",
			config: &Config{
				Algorithm:   constants.AlgorithmTokenBucket,
				WindowMs:    1000,
				MaxRequests: 5,
				BucketSize:  -1,
			},
			errorType: ErrInvalidBucketSize,
		},
		{
			name: "negative processing rate",
			config: &Config{
				Algorithm:      constants.AlgorithmLeakingBucket,
				WindowMs:       1000,
				MaxRequests:    5,
				ProcessingRate: -0.5,
			},
			errorType: ErrInvalidProcessingRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.Create(tt.config, backend)
			assert.ErrorIs(t, err, tt.errorType)
		})
	}
}

func TestFactory_Create_NilBackend(t *testing.T) {
	_, err := NewFactory().Create(&Config{
		Algorithm:   constants.AlgorithmFixedWindow,
		WindowMs:    1000,
		MaxRequests: 1,
	}, nil)
	assert.ErrorIs(t, err, ErrNilBackend)
}

func TestFactory_Create_DefaultsDerivedFromLimit(t *testing.T) {
	backend := storage.NewMemoryBackend(clock.NewMockClock(0), time.Hour)
	defer backend.Close()

	// Token bucket defaults: bucketSize=maxRequests, refill over one window
	algorithm, err := NewFactory().Create(&Config{
		Algorithm:   constants.AlgorithmTokenBucket,
		WindowMs:    10000,
		MaxRequests: 7,
	}, backend)
	require.NoError(t, err)

	tokenBucket := algorithm.(*tokenBucketAlgorithm)
	assert.Equal(t, 7, tokenBucket.config.BucketSize)
	assert.Equal(t, 7, tokenBucket.config.RefillRate)
	assert.Equal(t, int64(10000), tokenBucket.config.RefillIntervalMs)

	// Leaking bucket defaults: queueSize=maxRequests, drain one window's
	// worth of requests per window
	algorithm, err = NewFactory().Create(&Config{
		Algorithm:   constants.AlgorithmLeakingBucket,
		WindowMs:    10000,
		MaxRequests: 8,
	}, backend)
	require.NoError(t, err)

	leakingBucket := algorithm.(*leakingBucketAlgorithm)
	assert.Equal(t, 8, leakingBucket.config.QueueSize)
	assert.InDelta(t, 0.8, leakingBucket.config.ProcessingRate, 1e-9)
}
