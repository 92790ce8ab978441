// Package hashing implements C1: streaming, cancellable content hashing with
// bounded memory use regardless of file size.
package hashing

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/pkg/errors"
)

// chunkSize is the size of the buffer used to stream file content into the
// underlying hash functions. 64 KiB keeps memory use constant regardless of
// file size while avoiding excessive syscall overhead.
const chunkSize = 64 * 1024

// ErrHashFailure is returned (wrapped) for any failure reading or hashing a
// file, whether due to a missing file, a locked file, or an I/O error. The
// spec treats all such failures as a single kind.
var ErrHashFailure = errors.New("hash failure")

// SHA256 computes the lowercase hex SHA-256 digest of the file at path,
// streaming its content in fixed-size chunks.
func SHA256(ctx context.Context, path string) (string, error) {
	digests, err := stream(ctx, path, sha256.New())
	if err != nil {
		return "", err
	}
	return digests[0], nil
}

// MD5 computes the lowercase hex MD5 digest of the file at path, streaming
// its content in fixed-size chunks.
func MD5(ctx context.Context, path string) (string, error) {
	digests, err := stream(ctx, path, md5.New())
	if err != nil {
		return "", err
	}
	return digests[0], nil
}

// Both computes both the SHA-256 and MD5 digests of the file at path in a
// single pass, so the file is only read once.
func Both(ctx context.Context, path string) (sha256Hex string, md5Hex string, err error) {
	shaHash := sha256.New()
	md5Hash := md5.New()
	if err := streamMulti(ctx, path, shaHash, md5Hash); err != nil {
		return "", "", err
	}
	return hex.EncodeToString(shaHash.Sum(nil)), hex.EncodeToString(md5Hash.Sum(nil)), nil
}

// stream is a convenience wrapper around streamMulti for a single hash.
func stream(ctx context.Context, path string, h hash.Hash) ([]string, error) {
	if err := streamMulti(ctx, path, h); err != nil {
		return nil, err
	}
	return []string{hex.EncodeToString(h.Sum(nil))}, nil
}

// streamMulti reads the file at path in fixed-size chunks, writing each chunk
// to every hash in hashes, so that multiple digests can be computed in a
// single read pass. It is synchronous; AsyncSHA256 and AsyncMD5 serve
// callers that want cancellable background hashing. Synchronous and
// asynchronous forms produce bit-identical output because the Async
// functions do nothing but run SHA256 or MD5 on a separate goroutine.
func streamMulti(ctx context.Context, path string, hashes ...hash.Hash) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(ErrHashFailure, "unable to open %q: %v", path, err)
	}
	defer file.Close()

	buffer := make([]byte, chunkSize)
	writers := make([]io.Writer, len(hashes))
	for i, h := range hashes {
		writers[i] = h
	}
	multi := io.MultiWriter(writers...)

	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(ErrHashFailure, err.Error())
		}

		n, readErr := file.Read(buffer)
		if n > 0 {
			if _, werr := multi.Write(buffer[:n]); werr != nil {
				return errors.Wrapf(ErrHashFailure, "unable to hash chunk: %v", werr)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return errors.Wrapf(ErrHashFailure, "unable to read %q: %v", path, readErr)
		}
	}

	return nil
}

// Result is the outcome of an asynchronous hash computation.
type Result struct {
	// Value is the computed digest (or digests, joined by the caller's
	// convention) on success.
	Value string
	// Err is set if hashing failed or was cancelled.
	Err error
}

// AsyncSHA256 computes the SHA-256 digest of path on a separate goroutine,
// honoring ctx cancellation, and delivers the result on the returned channel
// exactly once.
func AsyncSHA256(ctx context.Context, path string) <-chan Result {
	results := make(chan Result, 1)
	go func() {
		value, err := SHA256(ctx, path)
		results <- Result{Value: value, Err: err}
	}()
	return results
}

// AsyncMD5 computes the MD5 digest of path on a separate goroutine, honoring
// ctx cancellation, and delivers the result on the returned channel exactly
// once.
func AsyncMD5(ctx context.Context, path string) <-chan Result {
	results := make(chan Result, 1)
	go func() {
		value, err := MD5(ctx, path)
		results <- Result{Value: value, Err: err}
	}()
	return results
}
