package inject

import (
	"context"

	"github.com/ccrighton/mcp4xxx/components/board"
)

// SPIConn is an injected SPI connection.
type SPIConn struct {
	board.SPIConn
	ExchangeFunc func(ctx context.Context, tx, rx []byte) error
}

// Exchange calls the injected ExchangeFunc or the real version.
func (s *SPIConn) Exchange(ctx context.Context, tx, rx []byte) error {
	if s.ExchangeFunc == nil {
		return s.SPIConn.Exchange(ctx, tx, rx)
	}
	return s.ExchangeFunc(ctx, tx, rx)
}
