//go:build !opus

package audioconv

import (
	"errors"
	"io"
)

func decodeOggOpus(io.Reader, Options) ([]float32, error) {
	return nil, errors.New("opus support not compiled in (build with -tags opus)")
}
