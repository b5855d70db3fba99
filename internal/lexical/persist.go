package lexical

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// On-disk layout: 8-byte magic, big-endian uint16 format version, then a
// zstd stream holding a gob-encoded modelSnapshot.
const (
	modelMagic = "WGBM25\x00\x00"

	// FormatVersion is bumped whenever modelSnapshot changes incompatibly.
	FormatVersion uint16 = 1
)

var (
	// ErrModelNotFound is returned by LoadOkapi when the file does not exist.
	ErrModelNotFound = wgerrors.New(wgerrors.ErrCodeIndexNotFound, "lexical model not found", nil)

	// ErrModelIncompatible is returned by LoadOkapi for a foreign or
	// differently versioned file.
	ErrModelIncompatible = wgerrors.New(wgerrors.ErrCodeModelIncompatible, "lexical model format incompatible", nil)
)

type modelSnapshot struct {
	Config      Config
	IDs         []string
	DocLen      []int
	TermFreqs   []map[string]int
	DocFreq     map[string]int
	AvgDocLen   float64
	Fingerprint string
	BuiltAt     time.Time
}

// SaveOkapi writes m to path, replacing any existing file atomically.
func SaveOkapi(m *OkapiModel, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(modelMagic); err != nil {
		cleanup()
		return err
	}
	if err := binary.Write(w, binary.BigEndian, FormatVersion); err != nil {
		cleanup()
		return err
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		cleanup()
		return fmt.Errorf("create zstd writer: %w", err)
	}
	snap := modelSnapshot{
		Config:      m.config,
		IDs:         m.ids,
		DocLen:      m.docLen,
		TermFreqs:   m.termFreqs,
		DocFreq:     m.docFreq,
		AvgDocLen:   m.avgDocLen,
		Fingerprint: m.fingerprint,
		BuiltAt:     m.builtAt,
	}
	if err := gob.NewEncoder(zw).Encode(&snap); err != nil {
		_ = zw.Close()
		cleanup()
		return fmt.Errorf("encode model: %w", err)
	}
	if err := zw.Close(); err != nil {
		cleanup()
		return fmt.Errorf("flush zstd: %w", err)
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return err
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename model file: %w", err)
	}
	return nil
}

// LoadOkapi reads a model written by SaveOkapi.
func LoadOkapi(path string) (*OkapiModel, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	header := make([]byte, len(modelMagic))
	if _, err := io.ReadFull(r, header); err != nil || !bytes.Equal(header, []byte(modelMagic)) {
		return nil, ErrModelIncompatible
	}
	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil || version != FormatVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrModelIncompatible, version, FormatVersion)
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelIncompatible, err)
	}
	defer zr.Close()

	var snap modelSnapshot
	if err := gob.NewDecoder(zr).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrModelIncompatible, err)
	}
	if len(snap.IDs) != len(snap.DocLen) || len(snap.IDs) != len(snap.TermFreqs) {
		return nil, fmt.Errorf("%w: inconsistent document tables", ErrModelIncompatible)
	}

	for i := range snap.TermFreqs {
		if snap.TermFreqs[i] == nil {
			snap.TermFreqs[i] = map[string]int{}
		}
	}
	if snap.DocFreq == nil {
		snap.DocFreq = map[string]int{}
	}

	return &OkapiModel{
		config:      snap.Config,
		tokenizer:   NewTokenizer(snap.Config),
		ids:         snap.IDs,
		docLen:      snap.DocLen,
		termFreqs:   snap.TermFreqs,
		docFreq:     snap.DocFreq,
		avgDocLen:   snap.AvgDocLen,
		fingerprint: snap.Fingerprint,
		builtAt:     snap.BuiltAt,
	}, nil
}

// LoadOrBuildOkapi loads the model at path when it matches docs and cfg.
// A missing, incompatible or stale file is rebuilt from docs and saved back;
// rebuilt reports whether that happened. A failed save is logged, not returned.
func LoadOrBuildOkapi(ctx context.Context, path string, docs []Document, cfg Config) (m *OkapiModel, rebuilt bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	loaded, err := LoadOkapi(path)
	switch {
	case err == nil:
		if loaded.config == cfg && loaded.fingerprint == Fingerprint(docs) {
			return loaded, false, nil
		}
		slog.Warn("lexical model stale, rebuilding", slog.String("path", path))
	case errors.Is(err, ErrModelNotFound):
		slog.Info("lexical model not found, building", slog.String("path", path))
	case errors.Is(err, ErrModelIncompatible):
		slog.Warn("lexical model incompatible, rebuilding",
			slog.String("path", path), slog.String("error", err.Error()))
	default:
		return nil, false, err
	}

	m = BuildOkapi(docs, cfg)
	if saveErr := SaveOkapi(m, path); saveErr != nil {
		slog.Warn("failed to save lexical model", slog.String("path", path), slog.String("error", saveErr.Error()))
	}
	return m, true, nil
}
