package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectPostgresBadDSN(t *testing.T) {
	_, err := ConnectPostgres(context.Background(), "postgres://%zz invalid")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse postgres dsn")
}
