package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const casAlgorithmPrefix = "sha256"

// spooled is a payload copied to a temporary file while its digest is computed.
type spooled struct {
	file   *os.File
	path   string
	digest string
	size   int64
}

func spool(ctx context.Context, dir string, r io.Reader) (*spooled, error) {
	if r == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, "put-*")
	if err != nil {
		return nil, err
	}
	s := &spooled{file: tmp, path: tmp.Name()}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		s.discard()
		return nil, err
	}
	s.size = n
	s.digest = hex.EncodeToString(h.Sum(nil))
	return s, nil
}

func (s *spooled) key() string {
	return casKeyFromDigest(s.digest)
}

func (s *spooled) result() BlobPutResult {
	return BlobPutResult{SHA256: s.digest, SizeBytes: s.size, BlobKey: s.key()}
}

// rewind positions the file at its start for re-reading.
func (s *spooled) rewind() error {
	_, err := s.file.Seek(0, io.SeekStart)
	return err
}

func (s *spooled) discard() {
	_ = s.file.Close()
	_ = os.Remove(s.path)
}

func casKeyFromDigest(digest string) string {
	return fmt.Sprintf("%s/%s/%s/%s", casAlgorithmPrefix, digest[0:2], digest[2:4], digest)
}
