package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aakash-taneja/miles/internal/domain"
)

// FileStore is a content-addressed store on the local filesystem. It is
// intended for development and test environments where the hosted artifact
// store is not configured. Identifiers are derived from the payload, so
// re-uploading identical bytes yields the same identifier, matching the
// hosted store's contract.
type FileStore struct {
	basePath string
	baseURL  string
}

// NewFileStore initializes a FileStore rooted at basePath. Stored payloads
// resolve as baseURL/<cid>.
func NewFileStore(basePath, baseURL string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload persists the payload under its content identifier. The name
// argument exists to satisfy the artifact store contract and is not part of
// the address.
func (s *FileStore) Upload(ctx context.Context, name string, data []byte) (domain.Variant, error) {
	if s == nil {
		return domain.Variant{}, errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return domain.Variant{}, err
	}
	if len(data) == 0 {
		return domain.Variant{}, errors.New("storage: empty payload")
	}
	cid := ContentID(data)
	fullPath := filepath.Join(s.basePath, cid)
	if _, err := os.Stat(fullPath); err == nil {
		return s.variant(cid), nil
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return domain.Variant{}, fmt.Errorf("storage: write file: %w", err)
	}
	return s.variant(cid), nil
}

// Fetch reads a payload back by content identifier.
func (s *FileStore) Fetch(ctx context.Context, cid string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cid = strings.TrimSpace(cid)
	if cid == "" || strings.ContainsAny(cid, "/\\.") {
		return nil, fmt.Errorf("storage: invalid cid %q", cid)
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, cid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("storage: read file: %w", err)
	}
	return data, nil
}

func (s *FileStore) variant(cid string) domain.Variant {
	return domain.Variant{CID: cid, URL: s.baseURL + "/" + cid}
}

// ContentID derives the deterministic identifier for a payload.
func ContentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
