package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/text"
	"github.com/kailas-cloud/jobrec/internal/domain/vectorspace"
)

const (
	modelMagic  = "JRMODEL1"
	matrixMagic = "JRMATRX1"
)

// EncodeAll/DecodeAll are safe for concurrent use on a shared coder.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Parts maps part names to their encoded bytes.
type Parts map[string][]byte

// Encode serializes b into its parts, including the manifest.
func Encode(b *Bundle, version string, createdAt time.Time) (Manifest, Parts, error) {
	if b == nil || b.Model == nil || b.Matrix == nil {
		return Manifest{}, nil, fmt.Errorf("%w: bundle is incomplete", domain.ErrInvalidArgument)
	}
	if b.Matrix.Rows() != b.Corpus.Len() {
		return Manifest{}, nil, fmt.Errorf("%w: matrix has %d rows for %d postings",
			domain.ErrInvalidArgument, b.Matrix.Rows(), b.Corpus.Len())
	}
	if b.Matrix.Cols() != b.Model.Vocabulary().Size() {
		return Manifest{}, nil, fmt.Errorf("%w: matrix has %d columns for %d terms",
			domain.ErrInvalidArgument, b.Matrix.Cols(), b.Model.Vocabulary().Size())
	}

	var corpus bytes.Buffer
	if err := WriteCorpus(&corpus, b.Corpus); err != nil {
		return Manifest{}, nil, fmt.Errorf("encode corpus: %w", err)
	}
	model, err := encodeModel(b.Model, b.Normalizer)
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("encode model: %w", err)
	}
	parts := Parts{
		PartCorpus: corpus.Bytes(),
		PartModel:  model,
		PartMatrix: encodeMatrix(b.Matrix),
	}

	m := Manifest{
		Version:   version,
		CreatedAt: createdAt.UTC(),
		Rows:      b.Matrix.Rows(),
		Cols:      b.Matrix.Cols(),
		NNZ:       b.Matrix.NNZ(),
		Checksums: make(map[string]string, len(dataParts)),
	}
	for _, name := range dataParts {
		m.Checksums[name] = checksum(parts[name])
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("encode manifest: %w", err)
	}
	parts[PartManifest] = raw
	return m, parts, nil
}

// Decode validates parts and rebuilds the bundle. Every validation failure
// is a *CorruptionError.
func Decode(parts Parts) (*Bundle, error) {
	m, err := ParseManifest(parts[PartManifest])
	if err != nil {
		return nil, err
	}
	for _, name := range dataParts {
		data, ok := parts[name]
		if !ok {
			return nil, corrupt(name, "part is missing")
		}
		if got := checksum(data); got != m.Checksums[name] {
			return nil, corrupt(name, "checksum mismatch")
		}
	}

	model, cfg, err := decodeModel(parts[PartModel])
	if err != nil {
		return nil, err
	}
	matrix, err := decodeMatrix(parts[PartMatrix])
	if err != nil {
		return nil, err
	}
	corpus, err := ReadCorpus(bytes.NewReader(parts[PartCorpus]), int64(len(parts[PartCorpus])))
	if err != nil {
		return nil, corrupt(PartCorpus, "%v", err)
	}

	if matrix.Cols() != model.Vocabulary().Size() {
		return nil, corrupt(PartMatrix, "%d columns for %d vocabulary terms", matrix.Cols(), model.Vocabulary().Size())
	}
	if matrix.Rows() != corpus.Len() {
		return nil, corrupt(PartMatrix, "%d rows for %d postings", matrix.Rows(), corpus.Len())
	}
	if m.Rows != matrix.Rows() || m.Cols != matrix.Cols() || m.NNZ != matrix.NNZ() {
		return nil, corrupt(PartManifest, "shape %dx%d/%d does not match matrix %dx%d/%d",
			m.Rows, m.Cols, m.NNZ, matrix.Rows(), matrix.Cols(), matrix.NNZ())
	}

	return &Bundle{Corpus: corpus, Model: model, Matrix: matrix, Normalizer: cfg, Manifest: m}, nil
}

// ParseManifest decodes and sanity checks a manifest part.
func ParseManifest(raw []byte) (Manifest, error) {
	if raw == nil {
		return Manifest{}, corrupt(PartManifest, "part is missing")
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, corrupt(PartManifest, "invalid json: %v", err)
	}
	if m.Version == "" {
		return Manifest{}, corrupt(PartManifest, "version is empty")
	}
	for _, name := range dataParts {
		if m.Checksums[name] == "" {
			return Manifest{}, corrupt(PartManifest, "no checksum for %s", name)
		}
	}
	return m, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func encodeModel(m *vectorspace.Model, cfg text.Config) ([]byte, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal normalizer config: %w", err)
	}
	terms := m.Vocabulary().Terms()

	buf := make([]byte, 0, 64+len(terms)*24)
	buf = append(buf, modelMagic...)
	buf = binary.AppendUvarint(buf, uint64(len(terms)))
	for _, t := range terms {
		buf = binary.AppendUvarint(buf, uint64(len(t)))
		buf = append(buf, t...)
	}
	for _, w := range m.IDF() {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(w))
	}
	buf = binary.AppendUvarint(buf, uint64(m.DocCount()))
	buf = binary.AppendUvarint(buf, uint64(m.MaxFeatures()))
	buf = binary.AppendUvarint(buf, uint64(len(cfgJSON)))
	buf = append(buf, cfgJSON...)
	return zstdEncoder.EncodeAll(buf, nil), nil
}

func decodeModel(data []byte) (*vectorspace.Model, text.Config, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, text.Config{}, corrupt(PartModel, "decompress: %v", err)
	}
	r := reader{buf: raw}
	if !r.magic(modelMagic) {
		return nil, text.Config{}, corrupt(PartModel, "bad magic")
	}

	n := r.uvarint()
	if n > uint64(r.remaining()) {
		return nil, text.Config{}, corrupt(PartModel, "term count %d exceeds payload", n)
	}
	terms := make([]string, n)
	for i := range terms {
		terms[i] = string(r.take(r.uvarint()))
	}
	idf := make([]float64, n)
	for i := range idf {
		idf[i] = math.Float64frombits(r.u64())
	}
	docCount := r.uvarint()
	maxFeatures := r.uvarint()
	cfgJSON := r.take(r.uvarint())
	if r.err != nil {
		return nil, text.Config{}, corrupt(PartModel, "%v", r.err)
	}
	if r.remaining() != 0 {
		return nil, text.Config{}, corrupt(PartModel, "%d trailing bytes", r.remaining())
	}

	var cfg text.Config
	if err := json.Unmarshal(cfgJSON, &cfg); err != nil {
		return nil, text.Config{}, corrupt(PartModel, "normalizer config: %v", err)
	}
	vocab, err := vectorspace.NewVocabulary(terms)
	if err != nil {
		return nil, text.Config{}, corrupt(PartModel, "%v", err)
	}
	model, err := vectorspace.NewModel(vocab, idf, int(docCount), int(maxFeatures))
	if err != nil {
		return nil, text.Config{}, corrupt(PartModel, "%v", err)
	}
	return model, cfg, nil
}

func encodeMatrix(m *vectorspace.Matrix) []byte {
	buf := make([]byte, 0, 32+len(m.Indptr())*8+m.NNZ()*12)
	buf = append(buf, matrixMagic...)
	buf = binary.AppendUvarint(buf, uint64(m.Rows()))
	buf = binary.AppendUvarint(buf, uint64(m.Cols()))
	buf = binary.AppendUvarint(buf, uint64(m.NNZ()))
	for _, p := range m.Indptr() {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(p))
	}
	for _, c := range m.Indices() {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c))
	}
	for _, v := range m.Values() {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return zstdEncoder.EncodeAll(buf, nil)
}

func decodeMatrix(data []byte) (*vectorspace.Matrix, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, corrupt(PartMatrix, "decompress: %v", err)
	}
	r := reader{buf: raw}
	if !r.magic(matrixMagic) {
		return nil, corrupt(PartMatrix, "bad magic")
	}
	rows, cols, nnz := r.uvarint(), r.uvarint(), r.uvarint()
	if r.err != nil {
		return nil, corrupt(PartMatrix, "%v", r.err)
	}
	// Exact size check before allocating anything sized by the header.
	left := uint64(r.remaining())
	if rows >= left || nnz > left || cols > math.MaxInt32 || (rows+1)*8+nnz*12 != left {
		return nil, corrupt(PartMatrix, "header %dx%d/%d does not match %d payload bytes", rows, cols, nnz, left)
	}

	indptr := make([]int64, rows+1)
	for i := range indptr {
		indptr[i] = int64(r.u64())
	}
	indices := make([]int32, nnz)
	for i := range indices {
		indices[i] = int32(r.u32())
	}
	values := make([]float64, nnz)
	for i := range values {
		values[i] = math.Float64frombits(r.u64())
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return nil, corrupt(PartMatrix, "non-finite weight at entry %d", i)
		}
	}
	if r.err != nil {
		return nil, corrupt(PartMatrix, "%v", r.err)
	}

	m, err := vectorspace.NewMatrix(int(rows), int(cols), indptr, indices, values)
	if err != nil {
		return nil, corrupt(PartMatrix, "%v", err)
	}
	return m, nil
}

var errShort = errors.New("unexpected end of data")

// reader is a sticky-error cursor over a decoded part.
type reader struct {
	buf []byte
	err error
}

func (r *reader) remaining() int { return len(r.buf) }

func (r *reader) magic(want string) bool {
	got := r.take(uint64(len(want)))
	return r.err == nil && string(got) == want
}

func (r *reader) take(n uint64) []byte {
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.buf)) {
		r.err = errShort
		return nil
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf)
	if n <= 0 {
		r.err = errShort
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}
