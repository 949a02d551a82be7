package connector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heterosync/dbsync/internal/connector"
)

func TestRegistry_ConnectUsesRegisteredFactory(t *testing.T) {
	r := connector.NewRegistry()
	called := false
	r.Register(connector.Postgres, func(ctx context.Context, cfg connector.ConnectionConfig) (connector.Connector, error) {
		called = true
		return nil, nil
	})

	assert.True(t, r.IsRegistered(connector.Postgres))
	assert.False(t, r.IsRegistered(connector.MySQL))

	_, err := r.Connect(context.Background(), connector.ConnectionConfig{Dialect: connector.Postgres})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRegistry_ConnectUnregisteredDialectErrors(t *testing.T) {
	r := connector.NewRegistry()
	_, err := r.Connect(context.Background(), connector.ConnectionConfig{Dialect: connector.MySQL})
	assert.True(t, errors.Is(err, connector.ErrDialectNotFound))
}

func TestRegistry_RegisterOverwritesPreviousFactory(t *testing.T) {
	r := connector.NewRegistry()
	r.Register(connector.Postgres, func(ctx context.Context, cfg connector.ConnectionConfig) (connector.Connector, error) {
		return nil, errors.New("first")
	})
	r.Register(connector.Postgres, func(ctx context.Context, cfg connector.ConnectionConfig) (connector.Connector, error) {
		return nil, errors.New("second")
	})

	_, err := r.Connect(context.Background(), connector.ConnectionConfig{Dialect: connector.Postgres})
	assert.EqualError(t, err, "second")
}
