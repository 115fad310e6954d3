package fourcc

import (
	"bytes"
	"testing"
)

func TestResolveAndCanonicalizeRoundTrip(t *testing.T) {
	cases := []struct {
		canonical Tag
		streamNum int
		want      string
	}{
		{CanonicalVideoChunk, 0, "00dc"},
		{CanonicalVideoChunk, 1, "01dc"},
		{CanonicalAudioChunk, 1, "01wb"},
		{CanonicalIndexChunk, 0, "ix00"},
		{CanonicalIndexChunk, 12, "ix12"},
	}
	for _, c := range cases {
		resolved := ResolveStreamTag(c.canonical, c.streamNum)
		if resolved.String() != c.want {
			t.Errorf("ResolveStreamTag(%q, %d) = %q, want %q", c.canonical, c.streamNum, resolved, c.want)
		}

		canon, num, ok := Canonicalize(resolved)
		if !ok {
			t.Fatalf("Canonicalize(%q) reported ok=false", resolved)
		}
		if canon != c.canonical {
			t.Errorf("Canonicalize(%q) canonical = %q, want %q", resolved, canon, c.canonical)
		}
		if num != c.streamNum {
			t.Errorf("Canonicalize(%q) streamNum = %d, want %d", resolved, num, c.streamNum)
		}
	}
}

// TestCanonicalizeRecognizesIxSuffix exercises the NNix suffix form (as
// opposed to the ixNN prefix form CanonicalIndexChunk covers), which some
// writers use for a stream's chunk-index tag.
func TestCanonicalizeRecognizesIxSuffix(t *testing.T) {
	canon, num, ok := Canonicalize(MakeTag("01ix"))
	if !ok {
		t.Fatal("Canonicalize(\"01ix\") reported ok=false")
	}
	if want := (Tag{'#', '#', 'i', 'x'}); canon != want {
		t.Errorf("Canonicalize(\"01ix\") canonical = %q, want %q", canon, want)
	}
	if num != 1 {
		t.Errorf("Canonicalize(\"01ix\") streamNum = %d, want 1", num)
	}
}

func TestResolveStreamTagClampsOutOfRange(t *testing.T) {
	if got := ResolveStreamTag(CanonicalVideoChunk, 123); got.String() != "00dc" {
		t.Errorf("ResolveStreamTag with streamNum=123 = %q, want 00dc", got)
	}
	if got := ResolveStreamTag(CanonicalVideoChunk, -1); got.String() != "00dc" {
		t.Errorf("ResolveStreamTag with streamNum=-1 = %q, want 00dc", got)
	}
}

func TestCanonicalizeRejectsUnrecognizedTag(t *testing.T) {
	_, _, ok := Canonicalize(MakeTag("movi"))
	if ok {
		t.Error("Canonicalize(movi) should report ok=false")
	}
}

func TestReadStreamTag(t *testing.T) {
	buf := bytes.NewReader([]byte("01dc"))
	canon, num, ok, err := ReadStreamTag(buf)
	if err != nil {
		t.Fatalf("ReadStreamTag: %v", err)
	}
	if !ok || num != 1 || canon != CanonicalVideoChunk {
		t.Errorf("ReadStreamTag(01dc) = %q, %d, %v, want ##dc, 1, true", canon, num, ok)
	}
}

func TestAlignSize(t *testing.T) {
	if AlignSize(10) != 10 {
		t.Errorf("AlignSize(10) = %d, want 10", AlignSize(10))
	}
	if AlignSize(11) != 12 {
		t.Errorf("AlignSize(11) = %d, want 12", AlignSize(11))
	}
}

func TestChunkHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := ChunkHeader{ID: MakeTag("strh"), Size: 56}
	if err := WriteChunkHeader(&buf, want); err != nil {
		t.Fatalf("WriteChunkHeader: %v", err)
	}
	got, err := ReadChunkHeader(&buf)
	if err != nil {
		t.Fatalf("ReadChunkHeader: %v", err)
	}
	if got != want {
		t.Errorf("ReadChunkHeader = %+v, want %+v", got, want)
	}
}
