package chunking

import (
	"regexp"
	"strings"
	"time"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

// sectionRule names a section type and the heading keywords that open it.
type sectionRule struct {
	sectionType string
	keywords    []string
}

// Policy controls how one document category is split.
type Policy struct {
	MaxChunkSize     int
	Overlap          int
	PreserveSections bool
	Sections         []sectionRule
}

var policies = map[string]Policy{
	"resume": {
		MaxChunkSize:     512,
		Overlap:          50,
		PreserveSections: true,
		Sections: []sectionRule{
			{"objective", []string{"objective", "summary", "profile"}},
			{"experience", []string{"experience", "employment", "work history", "career"}},
			{"education", []string{"education", "academic", "qualification", "degree"}},
			{"skills", []string{"skills", "competencies", "expertise", "abilities"}},
			{"projects", []string{"projects", "portfolio", "work samples"}},
		},
	},
	"contract": {
		MaxChunkSize:     1024,
		Overlap:          100,
		PreserveSections: true,
		Sections: []sectionRule{
			{"parties", []string{"parties", "agreement between", "contracting parties"}},
			{"terms", []string{"terms", "conditions", "provisions"}},
			{"payment", []string{"payment", "compensation", "fees", "salary"}},
			{"termination", []string{"termination", "expiration", "end of agreement"}},
			{"signature", []string{"signature", "execution", "signed"}},
		},
	},
	"review": {
		MaxChunkSize:     768,
		Overlap:          75,
		PreserveSections: true,
		Sections: []sectionRule{
			{"goals", []string{"goals", "objectives", "targets"}},
			{"achievements", []string{"achievements", "accomplishments", "results"}},
			{"feedback", []string{"feedback", "comments", "observations"}},
			{"rating", []string{"rating", "score", "evaluation"}},
			{"development", []string{"development", "improvement", "growth"}},
		},
	},
	"policy": {
		MaxChunkSize:     1024,
		Overlap:          100,
		PreserveSections: true,
		Sections: []sectionRule{
			{"purpose", []string{"purpose", "objective", "scope"}},
			{"policy", []string{"policy", "procedure", "guideline"}},
			{"compliance", []string{"compliance", "violation", "enforcement"}},
			{"review", []string{"review", "update", "revision"}},
			{"contact", []string{"contact", "questions", "inquiries"}},
		},
	},
}

var defaultPolicy = Policy{MaxChunkSize: 512, Overlap: 50}

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// Splitter turns extracted text into chunks under the category's
// policy: section-preserving when headings are detected, sentence
// packing with overlap otherwise.
type Splitter struct {
	now func() time.Time
}

func NewSplitter() *Splitter {
	return &Splitter{now: time.Now}
}

// PolicyFor exposes the effective policy; unknown categories get the
// default sizing with no section detection.
func PolicyFor(category string) Policy {
	if p, ok := policies[category]; ok {
		return p
	}
	return defaultPolicy
}

func (s *Splitter) Split(text, category string) []domain.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	policy := PolicyFor(category)

	var chunks []domain.Chunk
	if policy.PreserveSections {
		if sections := detectSections(text, policy.Sections); len(sections) > 0 {
			chunks = chunkSections(sections, policy)
		}
	}
	if len(chunks) == 0 {
		chunks = chunkSentences(text, policy)
	}

	createdAt := s.now().UTC()
	for i := range chunks {
		chunks[i].ChunkIndex = i
		chunks[i].Category = category
		chunks[i].CreatedAt = createdAt
	}
	return chunks
}

type section struct {
	sectionType string
	text        string
}

// detectSections groups paragraphs under the heading keyword that most
// recently matched. Text before the first recognized heading is dropped
// into an untyped preamble section.
func detectSections(text string, rules []sectionRule) []section {
	if len(rules) == 0 {
		return nil
	}

	var sections []section
	current := section{}
	matchedAny := false

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if sectionType, ok := matchHeading(para, rules); ok {
			matchedAny = true
			if current.text != "" {
				sections = append(sections, current)
			}
			current = section{sectionType: sectionType, text: para}
			continue
		}
		if current.text == "" {
			current.text = para
		} else {
			current.text += "\n\n" + para
		}
	}
	if current.text != "" {
		sections = append(sections, current)
	}

	if !matchedAny {
		return nil
	}
	return sections
}

// matchHeading checks the first line of a paragraph against the section
// keywords. Headings are short lines; long paragraphs never match even
// if a keyword appears inside them.
func matchHeading(para string, rules []sectionRule) (string, bool) {
	firstLine := para
	if idx := strings.IndexByte(para, '\n'); idx >= 0 {
		firstLine = para[:idx]
	}
	firstLine = strings.ToLower(strings.TrimSpace(firstLine))
	if len(firstLine) > 64 {
		return "", false
	}
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(firstLine, kw) {
				return rule.sectionType, true
			}
		}
	}
	return "", false
}

func chunkSections(sections []section, policy Policy) []domain.Chunk {
	var chunks []domain.Chunk
	for _, sec := range sections {
		if len([]rune(sec.text)) <= policy.MaxChunkSize {
			chunks = append(chunks, domain.Chunk{
				Text:        sec.text,
				SectionType: sec.sectionType,
				ChunkType:   "section",
			})
			continue
		}
		for _, part := range splitOversized(sec.text, policy) {
			chunks = append(chunks, domain.Chunk{
				Text:        part,
				SectionType: sec.sectionType,
				ChunkType:   "section",
			})
		}
	}
	return chunks
}

// splitOversized cuts text into windows of at most MaxChunkSize runes,
// preferring a sentence boundary found scanning backward from the cap.
// Consecutive windows share Overlap runes.
func splitOversized(text string, policy Policy) []string {
	runes := []rune(text)
	var parts []string

	start := 0
	for start < len(runes) {
		end := start + policy.MaxChunkSize
		if end >= len(runes) {
			parts = append(parts, strings.TrimSpace(string(runes[start:])))
			break
		}

		boundary := -1
		for i := end - 1; i > start; i-- {
			if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
				boundary = i
				break
			}
		}
		if boundary > start {
			end = boundary + 1
		}
		parts = append(parts, strings.TrimSpace(string(runes[start:end])))

		next := end - policy.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// chunkSentences packs whole sentences up to MaxChunkSize; each new
// chunk is seeded with the trailing Overlap runes of the previous one.
func chunkSentences(text string, policy Policy) []domain.Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	current := ""
	for _, sentence := range sentences {
		if current == "" {
			current = sentence
			continue
		}
		if len([]rune(current))+len([]rune(sentence))+1 > policy.MaxChunkSize {
			chunks = append(chunks, domain.Chunk{
				Text:      strings.TrimSpace(current),
				ChunkType: "size_based",
			})
			current = trailingRunes(current, policy.Overlap) + " " + sentence
			continue
		}
		current += " " + sentence
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, domain.Chunk{
			Text:      strings.TrimSpace(current),
			ChunkType: "size_based",
		})
	}
	return chunks
}

func splitSentences(text string) []string {
	raw := sentenceBoundary.Split(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func trailingRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
