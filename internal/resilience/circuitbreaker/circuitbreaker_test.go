package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Name:             "test-circuit",
		MaxRequests:      1,
		Interval:         10 * time.Second,
		Timeout:          50 * time.Millisecond,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

func TestNew(t *testing.T) {
	cb := New(testConfig())

	require.NotNil(t, cb)
	assert.Equal(t, "test-circuit", cb.Name())
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.False(t, cb.IsOpen())
}

func TestCircuitBreaker_Run_PassesThroughErrors(t *testing.T) {
	cb := New(testConfig())
	testErr := errors.New("smtp: 554 rejected")

	assert.NoError(t, cb.Run(func() error { return nil }))
	assert.Equal(t, testErr, cb.Run(func() error { return testErr }))
	assert.False(t, IsRejection(testErr))
}

func TestCircuitBreaker_TripsOpenAndNotifies(t *testing.T) {
	var transitions []gobreaker.State
	cb := New(testConfig(), func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	})
	testErr := errors.New("connection refused")

	for i := 0; i < 3; i++ {
		_ = cb.Run(func() error { return testErr })
	}
	require.True(t, cb.IsOpen())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	called := false
	err := cb.Run(func() error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.True(t, IsRejection(err))
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := New(testConfig())
	for i := 0; i < 3; i++ {
		_ = cb.Run(func() error { return errors.New("down") })
	}
	require.True(t, cb.IsOpen())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, cb.State())

	require.NoError(t, cb.Run(func() error { return nil }))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_MinRequests(t *testing.T) {
	cb := New(testConfig())
	for i := 0; i < 2; i++ {
		_ = cb.Run(func() error { return errors.New("down") })
	}
	assert.False(t, cb.IsOpen())
}

func TestDeliveryConfig(t *testing.T) {
	cfg := DeliveryConfig("email")
	assert.Equal(t, "deliver-email", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)

	def := DefaultConfig("x")
	assert.Equal(t, "x", def.Name)
	assert.Equal(t, 0.6, def.FailureThreshold)
}
