package infrastructure

import (
	"context"
	"fmt"
	"io"

	"github.com/yourusername/ytfetch-go/internal/domain"
)

// copyBufferSize bounds the memory used per transfer.
const copyBufferSize = 32 * 1024

// copyChunks copies src into dst one buffer at a time. Read failures are
// tagged with readErr, write failures with domain.ErrIO, and ctx is checked
// between chunks so a cancelled transfer stops promptly.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, readErr error, onChunk func(n int)) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("%w: write: %w", domain.ErrIO, werr)
			}
			written += int64(n)
			if onChunk != nil {
				onChunk(n)
			}
		}

		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			if cerr := ctx.Err(); cerr != nil {
				return written, cerr
			}
			return written, fmt.Errorf("%w: read: %w", readErr, rerr)
		}
	}
}
