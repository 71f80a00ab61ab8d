package chunking

import (
	"strings"
	"testing"
)

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter()
	if chunks := s.Split("   \n\n  ", "resume"); chunks != nil {
		t.Errorf("Split on whitespace = %d chunks, want none", len(chunks))
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSplitter()
	chunks := s.Split("A short note about nothing in particular.", "generic")
	if len(chunks) != 1 {
		t.Fatalf("len = %d, want 1", len(chunks))
	}
	if chunks[0].ChunkIndex != 0 {
		t.Errorf("ChunkIndex = %d, want 0", chunks[0].ChunkIndex)
	}
	if chunks[0].Category != "generic" {
		t.Errorf("Category = %q, want generic", chunks[0].Category)
	}
}

func TestSplitSentencePackingRespectsMaxSize(t *testing.T) {
	// ~1200 chars of short sentences, no section headings: resume
	// policy (512/50) must fall back to sentence packing.
	sentence := "The quick brown fox jumps over the lazy dog near the river bank today."
	text := strings.TrimSpace(strings.Repeat(sentence+" ", 17))

	s := NewSplitter()
	chunks := s.Split(text, "resume")

	if len(chunks) < 3 {
		t.Fatalf("len = %d, want at least 3 for ~1200 chars at max 512", len(chunks))
	}
	policy := PolicyFor("resume")
	for i, c := range chunks {
		if len([]rune(c.Text)) > policy.MaxChunkSize {
			t.Errorf("chunk %d has %d runes, max %d", i, len([]rune(c.Text)), policy.MaxChunkSize)
		}
		if c.ChunkType != "size_based" {
			t.Errorf("chunk %d type = %q, want size_based", i, c.ChunkType)
		}
		if c.ChunkIndex != i {
			t.Errorf("chunk %d index = %d", i, c.ChunkIndex)
		}
	}
}

func TestSplitSentencePackingOverlap(t *testing.T) {
	sentence := "Words fill the page while the test keeps watching the boundary closely."
	text := strings.TrimSpace(strings.Repeat(sentence+" ", 17))

	s := NewSplitter()
	chunks := s.Split(text, "resume")
	if len(chunks) < 2 {
		t.Fatalf("need at least 2 chunks, got %d", len(chunks))
	}

	overlap := PolicyFor("resume").Overlap
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		tail := strings.TrimLeft(string(prev[len(prev)-overlap:]), " ")
		if !strings.HasPrefix(chunks[i].Text, tail) {
			t.Errorf("chunk %d does not start with the previous chunk's %d-rune tail", i, overlap)
		}
	}
}

func TestSplitDetectsResumeSections(t *testing.T) {
	text := strings.Join([]string{
		"Experience\nFive years as a backend engineer at a logistics company.",
		"Education\nMasters degree in computer science.",
		"Skills\nGo, PostgreSQL, distributed systems.",
	}, "\n\n")

	s := NewSplitter()
	chunks := s.Split(text, "resume")
	if len(chunks) != 3 {
		t.Fatalf("len = %d, want 3 section chunks", len(chunks))
	}

	wantSections := []string{"experience", "education", "skills"}
	for i, want := range wantSections {
		if chunks[i].SectionType != want {
			t.Errorf("chunk %d section = %q, want %q", i, chunks[i].SectionType, want)
		}
		if chunks[i].ChunkType != "section" {
			t.Errorf("chunk %d type = %q, want section", i, chunks[i].ChunkType)
		}
	}
}

func TestSplitOversizedSectionIsSubdivided(t *testing.T) {
	body := strings.Repeat("Clause text continues with obligations and remedies. ", 40) // ~2000 chars
	text := "Terms\n" + body

	s := NewSplitter()
	chunks := s.Split(text, "contract")

	if len(chunks) < 2 {
		t.Fatalf("len = %d, want oversized section split into several chunks", len(chunks))
	}
	policy := PolicyFor("contract")
	for i, c := range chunks {
		if c.SectionType != "terms" {
			t.Errorf("chunk %d section = %q, want terms", i, c.SectionType)
		}
		if len([]rune(c.Text)) > policy.MaxChunkSize {
			t.Errorf("chunk %d has %d runes, max %d", i, len([]rune(c.Text)), policy.MaxChunkSize)
		}
	}
}

func TestSplitHeadingInsideLongParagraphIgnored(t *testing.T) {
	// "skills" appears mid-paragraph; with no real headings the text
	// must fall back to sentence chunking.
	text := "The candidate demonstrated many skills during the interview process. " +
		"Further discussion covered compensation and availability."

	s := NewSplitter()
	chunks := s.Split(text, "resume")
	for i, c := range chunks {
		if c.ChunkType == "section" {
			t.Errorf("chunk %d classified as section from a mid-paragraph keyword", i)
		}
	}
}

func TestPolicyFor(t *testing.T) {
	cases := []struct {
		category string
		maxSize  int
		overlap  int
	}{
		{"resume", 512, 50},
		{"contract", 1024, 100},
		{"review", 768, 75},
		{"policy", 1024, 100},
		{"generic", 512, 50},
		{"nonsense", 512, 50},
	}
	for _, tc := range cases {
		p := PolicyFor(tc.category)
		if p.MaxChunkSize != tc.maxSize || p.Overlap != tc.overlap {
			t.Errorf("PolicyFor(%q) = %d/%d, want %d/%d",
				tc.category, p.MaxChunkSize, p.Overlap, tc.maxSize, tc.overlap)
		}
	}
}

func TestSplitIndicesAreContiguous(t *testing.T) {
	text := strings.Repeat("One more sentence to fill the buffer completely. ", 60)
	s := NewSplitter()
	chunks := s.Split(text, "review")
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Fatalf("chunk %d carries index %d", i, c.ChunkIndex)
		}
	}
}
