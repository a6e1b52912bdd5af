// Package persistence saves and loads a vindex.Snapshot as a pair of
// files: a `<name>.npz`-style zip archive holding the raw vector matrix
// and doc id list, and a `<name>.json` metadata sidecar.
//
// Grounded on the teacher's persistence package conventions: atomic
// temp-file-then-rename writes (manager.go's AtomicSaveToDir), a CRC32
// checksum wrapper (checksum.go), and a magic/version header on the
// binary side (format.go) — generalized here to the single zip archive
// and JSON sidecar spec.md §6 specifies, using archive/zip with a
// klauspost/compress/flate-registered compressor rather than the stdlib
// compress/flate the teacher would otherwise reach for.
package persistence

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	"github.com/hupe1980/hybridsearch/vindex"
)

const formatVersion = 1

// Metadata is the JSON sidecar written alongside the npz archive.
type Metadata struct {
	Dimension     int    `json:"dimension"`
	Count         int    `json:"count"`
	EmbedderID    string `json:"embedder_id"`
	Distance      string `json:"distance"`
	FormatVersion int    `json:"format_version"`
}

// SaveIndex writes snap under dir as <name>.npz and <name>.json. Each
// file is written to a temporary name and renamed into place only once
// fully written, so neither is ever left partially written. The two
// renames are separate steps: a failure after the .npz rename leaves the
// new .npz beside the previous .json.
func SaveIndex(dir, name string, snap *vindex.Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persistence: create dir %s: %w", dir, err)
	}

	npzPath := filepath.Join(dir, name+".npz")
	jsonPath := filepath.Join(dir, name+".json")

	npzData, err := encodeNPZ(snap)
	if err != nil {
		return fmt.Errorf("persistence: encode %s: %w", npzPath, err)
	}

	meta := Metadata{
		Dimension:     snap.Dimension,
		Count:         len(snap.DocIDs),
		EmbedderID:    snap.EmbedderID,
		Distance:      snap.Distance.String(),
		FormatVersion: formatVersion,
	}
	jsonData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: encode %s: %w", jsonPath, err)
	}

	if err := writeAtomic(npzPath, npzData); err != nil {
		return err
	}
	return writeAtomic(jsonPath, jsonData)
}

// LoadOption configures LoadIndex verification behavior.
type LoadOption func(*loadOptions)

type loadOptions struct {
	expectEmbedderID string
}

// WithEmbedderIDCheck requests an EmbedderMismatch failure if the loaded
// archive's recorded embedder_id differs from embedderID.
func WithEmbedderIDCheck(embedderID string) LoadOption {
	return func(o *loadOptions) {
		o.expectEmbedderID = embedderID
	}
}

// LoadIndex reads <name>.npz and <name>.json from dir and reconstructs a
// vindex.Snapshot, failing with MissingFile, VersionMismatch,
// ShapeMismatch, or EmbedderMismatch per spec.md §6.
func LoadIndex(dir, name string, opts ...LoadOption) (*vindex.Snapshot, error) {
	var lo loadOptions
	for _, fn := range opts {
		fn(&lo)
	}

	npzPath := filepath.Join(dir, name+".npz")
	jsonPath := filepath.Join(dir, name+".json")

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, &MissingFileError{Path: jsonPath, cause: err}
	}

	npzData, err := os.ReadFile(npzPath)
	if err != nil {
		return nil, &MissingFileError{Path: npzPath, cause: err}
	}

	var meta Metadata
	if err := json.Unmarshal(jsonData, &meta); err != nil {
		return nil, fmt.Errorf("persistence: parse %s: %w", jsonPath, err)
	}

	if meta.FormatVersion != formatVersion {
		return nil, &VersionMismatchError{Got: meta.FormatVersion, Want: formatVersion}
	}

	if lo.expectEmbedderID != "" && lo.expectEmbedderID != meta.EmbedderID {
		return nil, &EmbedderMismatchError{Got: meta.EmbedderID, Want: lo.expectEmbedderID}
	}

	distance, err := vindex.ParseDistanceKind(meta.Distance)
	if err != nil {
		return nil, fmt.Errorf("persistence: %s: %w", jsonPath, err)
	}

	docIDs, vectors, err := decodeNPZ(npzData, meta.Dimension)
	if err != nil {
		return nil, fmt.Errorf("persistence: decode %s: %w", npzPath, err)
	}

	if len(docIDs) != meta.Count || len(vectors) != meta.Count {
		return nil, &ShapeMismatchError{
			Reason: fmt.Sprintf("metadata declares count=%d, archive has %d doc ids and %d vectors", meta.Count, len(docIDs), len(vectors)),
		}
	}

	return &vindex.Snapshot{
		Dimension:  meta.Dimension,
		Distance:   distance,
		EmbedderID: meta.EmbedderID,
		DocIDs:     docIDs,
		Vectors:    vectors,
	}, nil
}

// encodeNPZ packs the vector matrix and doc id list into a zip archive
// with two members: vectors.bin (raw f16 little-endian, row-major) and
// doc_ids.bin (length-prefixed UTF-8 strings). A CRC32 of the whole
// archive payload is appended as a trailing checksum.bin member so
// LoadIndex can detect storage corruption.
func encodeNPZ(snap *vindex.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})

	vecBuf := &bytes.Buffer{}
	for _, row := range snap.Vectors {
		for _, bits := range row {
			if err := binary.Write(vecBuf, binary.LittleEndian, bits); err != nil {
				return nil, err
			}
		}
	}
	if err := writeZipMember(zw, "vectors.bin", vecBuf.Bytes()); err != nil {
		return nil, err
	}

	idBuf := &bytes.Buffer{}
	for _, id := range snap.DocIDs {
		if err := binary.Write(idBuf, binary.LittleEndian, uint32(len(id))); err != nil {
			return nil, err
		}
		idBuf.WriteString(id)
	}
	if err := writeZipMember(zw, "doc_ids.bin", idBuf.Bytes()); err != nil {
		return nil, err
	}

	checksum := crc32.ChecksumIEEE(append(vecBuf.Bytes(), idBuf.Bytes()...))
	checksumBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(checksumBuf, checksum)
	if err := writeZipMember(zw, "checksum.bin", checksumBuf); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeNPZ(data []byte, dimension int) (docIDs []string, vectors [][]uint16, err error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, err
	}
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	members := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, err
		}
		members[f.Name] = content
	}

	vecData, ok := members["vectors.bin"]
	if !ok {
		return nil, nil, fmt.Errorf("persistence: archive missing vectors.bin")
	}
	idData, ok := members["doc_ids.bin"]
	if !ok {
		return nil, nil, fmt.Errorf("persistence: archive missing doc_ids.bin")
	}

	if checksumData, ok := members["checksum.bin"]; ok && len(checksumData) == 4 {
		want := binary.LittleEndian.Uint32(checksumData)
		got := crc32.ChecksumIEEE(append(append([]byte{}, vecData...), idData...))
		if got != want {
			return nil, nil, fmt.Errorf("persistence: checksum mismatch: want 0x%08x, got 0x%08x", want, got)
		}
	}

	if dimension <= 0 {
		return nil, nil, &ShapeMismatchError{Reason: "metadata dimension must be positive"}
	}
	rowBytes := dimension * 2
	if rowBytes == 0 || len(vecData)%rowBytes != 0 {
		return nil, nil, &ShapeMismatchError{Reason: fmt.Sprintf("vectors.bin length %d not a multiple of row size %d", len(vecData), rowBytes)}
	}
	rowCount := len(vecData) / rowBytes
	vectors = make([][]uint16, rowCount)
	r := bytes.NewReader(vecData)
	for i := range vectors {
		row := make([]uint16, dimension)
		for j := range row {
			if err := binary.Read(r, binary.LittleEndian, &row[j]); err != nil {
				return nil, nil, err
			}
		}
		vectors[i] = row
	}

	r2 := bytes.NewReader(idData)
	for r2.Len() > 0 {
		var n uint32
		if err := binary.Read(r2, binary.LittleEndian, &n); err != nil {
			return nil, nil, err
		}
		idBytes := make([]byte, n)
		if _, err := io.ReadFull(r2, idBytes); err != nil {
			return nil, nil, err
		}
		docIDs = append(docIDs, string(idBytes))
	}

	return docIDs, vectors, nil
}

func writeZipMember(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

// writeAtomic writes data to a temp file in the same directory as path
// and renames it into place, so a failed write never leaves path
// partially written (spec.md §7: "save writes to a temporary name and
// renames only on completion").
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("persistence: create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("persistence: write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("persistence: sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persistence: close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("persistence: rename into %s: %w", path, err)
	}
	return nil
}
