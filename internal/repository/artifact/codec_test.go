package artifact_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact/artifacttest"
)

var created = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func encode(t *testing.T, b *artifact.Bundle) (artifact.Manifest, artifact.Parts) {
	t.Helper()
	m, parts, err := artifact.Encode(b, "v1", created)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return m, parts
}

// reseal recomputes the manifest checksums after a deliberate edit.
func reseal(t *testing.T, parts artifact.Parts) {
	t.Helper()
	var m artifact.Manifest
	if err := json.Unmarshal(parts[artifact.PartManifest], &m); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	for name := range m.Checksums {
		sum := sha256.Sum256(parts[name])
		m.Checksums[name] = hex.EncodeToString(sum[:])
	}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	parts[artifact.PartManifest] = raw
}

func requireCorruption(t *testing.T, err error, part string) {
	t.Helper()
	if !errors.Is(err, domain.ErrArtifactCorruption) {
		t.Fatalf("expected ErrArtifactCorruption, got %v", err)
	}
	var ce *artifact.CorruptionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CorruptionError, got %T", err)
	}
	if ce.Part != part {
		t.Errorf("corrupted part = %q, want %q", ce.Part, part)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	orig := artifacttest.NewBundle(t)
	m, parts := encode(t, orig)

	if m.Version != "v1" || !m.CreatedAt.Equal(created) {
		t.Errorf("manifest = %+v", m)
	}
	if m.Rows != orig.Matrix.Rows() || m.Cols != orig.Matrix.Cols() || m.NNZ != orig.Matrix.NNZ() {
		t.Errorf("manifest shape = %dx%d/%d", m.Rows, m.Cols, m.NNZ)
	}

	got, err := artifact.Decode(parts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got.Corpus, orig.Corpus) {
		t.Error("corpus differs after round trip")
	}
	if !reflect.DeepEqual(got.Model, orig.Model) {
		t.Error("model differs after round trip")
	}
	if !reflect.DeepEqual(got.Matrix, orig.Matrix) {
		t.Error("matrix differs after round trip")
	}
	if !reflect.DeepEqual(got.Normalizer, orig.Normalizer) {
		t.Errorf("normalizer = %+v, want %+v", got.Normalizer, orig.Normalizer)
	}
	if got.Manifest.Version != "v1" {
		t.Errorf("decoded manifest version = %q", got.Manifest.Version)
	}
}

func TestDecode_RowCorrespondence(t *testing.T) {
	orig := artifacttest.NewBundle(t)
	_, parts := encode(t, orig)
	got, err := artifact.Decode(parts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := 0; i < orig.Corpus.Len(); i++ {
		a, _ := orig.Corpus.At(i)
		b, _ := got.Corpus.At(i)
		if a.ID() != b.ID() {
			t.Errorf("row %d: id %q, want %q", i, b.ID(), a.ID())
		}
		if !reflect.DeepEqual(orig.Matrix.Row(i), got.Matrix.Row(i)) {
			t.Errorf("row %d vector differs", i)
		}
	}
}

func TestEncode_RejectsInconsistentBundle(t *testing.T) {
	b := artifacttest.NewBundle(t)
	one, _ := b.Corpus.At(0)
	short, err := posting.NewCorpus([]posting.Posting{one})
	if err != nil {
		t.Fatalf("NewCorpus: %v", err)
	}
	b.Corpus = short
	if _, _, err := artifact.Encode(b, "v1", created); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, _, err := artifact.Encode(&artifact.Bundle{}, "v1", created); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("empty bundle: expected ErrInvalidArgument, got %v", err)
	}
}

func TestDecode_FlippedByte(t *testing.T) {
	for _, part := range []string{artifact.PartCorpus, artifact.PartModel, artifact.PartMatrix} {
		t.Run(part, func(t *testing.T) {
			_, parts := encode(t, artifacttest.NewBundle(t))
			data := bytes.Clone(parts[part])
			data[len(data)/2] ^= 0xFF
			parts[part] = data

			_, err := artifact.Decode(parts)
			requireCorruption(t, err, part)
		})
	}
}

func TestDecode_MissingPart(t *testing.T) {
	_, parts := encode(t, artifacttest.NewBundle(t))
	delete(parts, artifact.PartMatrix)
	_, err := artifact.Decode(parts)
	requireCorruption(t, err, artifact.PartMatrix)
}

func TestDecode_BadManifest(t *testing.T) {
	_, parts := encode(t, artifacttest.NewBundle(t))
	parts[artifact.PartManifest] = []byte("{not json")
	_, err := artifact.Decode(parts)
	requireCorruption(t, err, artifact.PartManifest)

	delete(parts, artifact.PartManifest)
	_, err = artifact.Decode(parts)
	requireCorruption(t, err, artifact.PartManifest)
}

func TestDecode_MismatchedColumns(t *testing.T) {
	_, parts := encode(t, artifacttest.NewBundle(t))
	other, err := artifacttest.Build([][4]string{
		{"1", "Nurse", "Patient care", "icu"},
		{"2", "Chef", "Kitchen", "cooking"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, otherParts := encode(t, other)
	parts[artifact.PartModel] = otherParts[artifact.PartModel]
	reseal(t, parts)

	_, err = artifact.Decode(parts)
	requireCorruption(t, err, artifact.PartMatrix)
}

func TestDecode_RowCountMismatch(t *testing.T) {
	_, parts := encode(t, artifacttest.NewBundle(t))
	shorter, err := artifacttest.Build(artifacttest.Jobs[:3])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, shorterParts := encode(t, shorter)
	parts[artifact.PartCorpus] = shorterParts[artifact.PartCorpus]
	reseal(t, parts)

	_, err = artifact.Decode(parts)
	requireCorruption(t, err, artifact.PartMatrix)
}

func TestDecode_BadMagic(t *testing.T) {
	_, parts := encode(t, artifacttest.NewBundle(t))
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	parts[artifact.PartModel] = enc.EncodeAll([]byte("NOTAMODEL"), nil)
	reseal(t, parts)

	_, err = artifact.Decode(parts)
	requireCorruption(t, err, artifact.PartModel)
}

func TestDecode_TruncatedMatrix(t *testing.T) {
	_, parts := encode(t, artifacttest.NewBundle(t))
	dec, _ := zstd.NewReader(nil)
	raw, err := dec.DecodeAll(parts[artifact.PartMatrix], nil)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	enc, _ := zstd.NewWriter(nil)
	parts[artifact.PartMatrix] = enc.EncodeAll(raw[:len(raw)-4], nil)
	reseal(t, parts)

	_, err = artifact.Decode(parts)
	requireCorruption(t, err, artifact.PartMatrix)
}

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"0190b6c1-7a2e-7c3d-9f00-000000000001", "manifest.json"} {
		if err := artifact.ValidateName(ok); err != nil {
			t.Errorf("ValidateName(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "a:b"} {
		if err := artifact.ValidateName(bad); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("ValidateName(%q) = %v, want ErrInvalidArgument", bad, err)
		}
	}
}
