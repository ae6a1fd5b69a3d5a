package snapshot

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvandessel/thoughtseed/internal/pathutil"
)

// FormatVersion is the current snapshot file format.
const FormatVersion = 1

// MaxDecompressedSize is the maximum allowed size of a decompressed payload (512MB).
const MaxDecompressedSize = 512 * 1024 * 1024

// Kinds of snapshot file.
const (
	KindNetwork   = "network"
	KindAnalytics = "analytics"
)

// Header is the plain-text first line of a snapshot file.
type Header struct {
	Version   int       `json:"version"`
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
}

// FileStore keeps the latest network snapshot at path and the latest
// analytics snapshot next to it. Saving overwrites the previous snapshot.
type FileStore struct {
	networkPath   string
	analyticsPath string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file store. "net.snap" pairs with "net_analytics.snap".
func NewFileStore(path string) *FileStore {
	ext := filepath.Ext(path)
	return &FileStore{
		networkPath:   path,
		analyticsPath: strings.TrimSuffix(path, ext) + "_analytics" + ext,
	}
}

// NetworkPath returns the network snapshot file path.
func (s *FileStore) NetworkPath() string { return s.networkPath }

// AnalyticsPath returns the analytics snapshot file path.
func (s *FileStore) AnalyticsPath() string { return s.analyticsPath }

// SaveNetwork writes snap to the network path.
func (s *FileStore) SaveNetwork(ctx context.Context, snap *NetworkSnapshot) error {
	if err := snap.validate(); err != nil {
		return err
	}
	header := Header{
		Kind:      KindNetwork,
		ID:        snap.ID,
		CreatedAt: snap.CreatedAt,
		NodeCount: len(snap.Thoughtseeds),
		EdgeCount: snap.EdgeCount(),
	}
	return writeFile(ctx, s.networkPath, header, snap)
}

// LoadNetwork reads the network snapshot.
func (s *FileStore) LoadNetwork(ctx context.Context) (*NetworkSnapshot, error) {
	var snap NetworkSnapshot
	if _, err := readFile(ctx, s.networkPath, KindNetwork, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveAnalytics writes snap to the analytics path.
func (s *FileStore) SaveAnalytics(ctx context.Context, snap *AnalyticsSnapshot) error {
	header := Header{
		Kind:      KindAnalytics,
		ID:        snap.ID,
		CreatedAt: snap.CreatedAt,
	}
	if snap.Result != nil {
		header.NodeCount = len(snap.Result.Communities)
	}
	return writeFile(ctx, s.analyticsPath, header, snap)
}

// LoadAnalytics reads the analytics snapshot.
func (s *FileStore) LoadAnalytics(ctx context.Context) (*AnalyticsSnapshot, error) {
	var snap AnalyticsSnapshot
	if _, err := readFile(ctx, s.analyticsPath, KindAnalytics, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Close is a no-op; files are not held open between calls.
func (s *FileStore) Close() error { return nil }

// writeFile writes header line + gzip-compressed JSON payload. The file is
// written to a temporary name and renamed into place.
func writeFile(ctx context.Context, path string, header Header, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if err := json.NewEncoder(gzw).Encode(v); err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	hash := sha256.Sum256(compressed.Bytes())
	header.Version = FormatVersion
	header.Checksum = "sha256:" + hex.EncodeToString(hash[:])

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	w := bufio.NewWriter(f)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming snapshot: %w", err)
	}
	return nil
}

// readFile verifies and decodes a snapshot file into v.
func readFile(ctx context.Context, path, kind string, v any) (*Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, pathutil.RedactPath(path))
		}
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}
	if header.Kind != kind {
		return nil, fmt.Errorf("expected %s snapshot, got %s", kind, header.Kind)
	}

	compressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}

	hash := sha256.Sum256(compressed)
	actual := "sha256:" + hex.EncodeToString(hash[:])
	if actual != header.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, header.Checksum, actual)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(decompressed)) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	if err := json.Unmarshal(decompressed, v); err != nil {
		return nil, fmt.Errorf("parsing payload: %w", err)
	}
	return header, nil
}

func readHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}
	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, header.Version, FormatVersion)
	}
	return &header, nil
}

// ReadHeader reads only the header line of a snapshot file.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}
