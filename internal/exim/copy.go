package exim

import (
	"context"
	"io"
)

const copyBufferSize = 4096

// copyStream copies in to out, calling onChunk with the size of every chunk
// written. It stops with ctx.Err() between chunks.
func copyStream(ctx context.Context, in io.Reader, out io.Writer, onChunk func(n int64)) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := in.Read(buf)
		if n > 0 {
			m, err := out.Write(buf[:n])
			written += int64(m)
			if err != nil {
				return written, err
			}
			if m != n {
				return written, io.ErrShortWrite
			}
			if onChunk != nil {
				onChunk(int64(m))
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// CopyStream copies in to out, reporting written / total as progress after
// every chunk and 1 when done. A total of 0 or less reports only the end.
func CopyStream(ctx context.Context, in io.Reader, out io.Writer, total int64, onProgress func(float64)) (int64, error) {
	if onProgress == nil {
		onProgress = func(float64) {}
	}
	var done int64
	n, err := copyStream(ctx, in, out, func(n int64) {
		done += n
		if total > 0 && done < total {
			onProgress(float64(done) / float64(total))
		}
	})
	if err != nil {
		return n, err
	}
	onProgress(1)
	return n, nil
}
