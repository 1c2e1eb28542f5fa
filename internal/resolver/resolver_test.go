package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flat-hunter/internal/circuitbreaker"
	apperrors "github.com/flat-hunter/internal/errors"
	"github.com/flat-hunter/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.LevelError, logging.FormatText)
}

func TestParseSqmPrice(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		wantErr bool
	}{
		{name: "panel text with unit", text: "4.850 €/m²", want: 4850},
		{name: "plain number", text: "950", want: 950},
		{name: "surrounding whitespace", text: "  1.200 €/m² ", want: 1200},
		{name: "empty", text: "", wantErr: true},
		{name: "no number", text: "k.A.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSqmPrice(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsParse(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuggestionSelector(t *testing.T) {
	assert.True(t, hasHouseNumber.MatchString("Musterstraße 5, Berlin"))
	assert.True(t, hasHouseNumber.MatchString("10115 Berlin"))
	assert.False(t, hasHouseNumber.MatchString("Friedrichshain, Berlin"))
}

func TestWithTimeoutConvertsExpiry(t *testing.T) {
	slow := Func(func(ctx context.Context, address string) (Result, error) {
		<-ctx.Done()
		return Result{}, ctx.Err()
	})

	res := WithTimeout(slow, 10*time.Millisecond)
	_, err := res.Resolve(context.Background(), "Musterstraße 5")
	require.Error(t, err)
	assert.True(t, apperrors.IsResolution(err))
}

func TestWithTimeoutPassesThroughSuccess(t *testing.T) {
	fast := Func(func(ctx context.Context, address string) (Result, error) {
		return Result{SqmPrice: 16, Address: "Berlin"}, nil
	})

	got, err := WithTimeout(fast, time.Second).Resolve(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, Result{SqmPrice: 16, Address: "Berlin"}, got)
}

func TestWithBreakerFailsFastWhenOpen(t *testing.T) {
	failing := Func(func(ctx context.Context, address string) (Result, error) {
		return Result{}, errors.New("session crashed")
	})

	breaker := circuitbreaker.New(circuitbreaker.Config{MaxFailures: 2, Cooldown: time.Hour})
	res := WithBreaker(failing, breaker)
	ctx := context.Background()

	_, err := res.Resolve(ctx, "a")
	require.Error(t, err)
	assert.False(t, apperrors.IsResolution(err), "inner error passes through unchanged")

	_, err = res.Resolve(ctx, "b")
	require.Error(t, err)
	require.Equal(t, circuitbreaker.StateOpen, breaker.State())

	// Open breaker: rejected without invoking the inner resolver, surfaced
	// as an ordinary resolution failure.
	_, err = res.Resolve(ctx, "c")
	require.Error(t, err)
	assert.True(t, apperrors.IsResolution(err))
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
}

func TestWithBreakerPassesThroughSuccess(t *testing.T) {
	ok := Func(func(ctx context.Context, address string) (Result, error) {
		return Result{SqmPrice: 20, Address: "Berlin"}, nil
	})

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig())
	got, err := WithBreaker(ok, breaker).Resolve(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 20, got.SqmPrice)
	assert.Equal(t, circuitbreaker.StateClosed, breaker.State())
}

func TestNewImmoweltDefaults(t *testing.T) {
	r := NewImmowelt(ImmoweltConfig{}, testLogger())
	assert.Equal(t, 10*time.Second, r.cfg.StepWait)
	assert.Equal(t, 5*time.Second, r.cfg.ConsentDelay)
}
