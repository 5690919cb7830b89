package client

import (
	"time"

	"balance_tracker/internal/infrastructure/httpclient"

	"go.uber.org/zap"
)

const testBackoff = 5 * time.Millisecond

func newTestExecutor() *httpclient.Client {
	return httpclient.New(2*time.Second, zap.NewNop(), nil)
}
