package di

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BubbleScope/pkg/config"
)

func TestInitializeAppWithoutBackends(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Logging.Output = "stderr"
	cfg.Logging.Level = "error"

	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, app)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, app.RunContext(ctx))
}

func TestThresholdOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Fitting.Quality.HighRSquared = 0.9
	th := ProvideThresholds(cfg)
	assert.Equal(t, 0.9, th.HighRSquared)
	assert.Equal(t, 0.60, th.AcceptableRSquared)
}

func TestDisabledBackendsAreNil(t *testing.T) {
	cfg := config.Default()
	ch, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)
	assert.Nil(t, ProvidePriceSource(ch, cfg, nil))

	store, err := ProvideSelectionStore(ch, cfg)
	require.NoError(t, err)
	assert.Nil(t, store)

	p, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Nil(t, ProvideLimiter(&config.Config{}))
}
