package extract

import (
	"regexp"
	"strings"

	"github.com/efebarandurmaz/docqa/internal/keys"
)

var (
	// colonLine matches "label: rest". The label may not contain a colon
	// and is at most 80 characters, so prose with an early colon is not a
	// key.
	colonLine = regexp.MustCompile(`^\s*([^:\n]{1,80}?)\s*:\s*(.*?)\s*$`)

	// faqQuestion and faqAnswer need whitespace after the marker so that
	// labels like "Q-learning rate" or "A-team members" stay labels.
	faqQuestion = regexp.MustCompile(`(?i)^\s*q\s*[.:\-]\s+(.+?)\s*$`)
	faqAnswer   = regexp.MustCompile(`(?i)^\s*a\s*[.:\-]\s+(.+?)\s*$`)

	// listMarker matches bullets and numbering in front of labels.
	listMarker = regexp.MustCompile(`^(?:[-*•]\s+|\d+[.)]\s+)`)

	separatorCell = regexp.MustCompile(`^:?-{2,}:?$`)
	blankRun      = regexp.MustCompile(`\n{3,}`)
)

// FromText extracts pairs from plain document text. The strategies run in
// a fixed order (colon lines, overview blocks, pipe rows, FAQ pairs) and
// their results are concatenated without deduplication.
func (e *Extractor) FromText(text string) []Pair {
	lines := splitLines(text)

	var cands []candidate
	cands = append(cands, e.colonPairs(lines)...)
	cands = append(cands, e.overviewBlocks(lines)...)
	cands = append(cands, pipeRows(lines)...)
	cands = append(cands, faqPairs(lines)...)
	return e.finalize(cands)
}

// splitLines normalizes line endings and drops a leading byte order mark.
func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// colonLabel parses a "label: rest" line. ok is false when the line has no
// usable label.
func colonLabel(line string) (label, rest string, ok bool) {
	m := colonLine.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	label = cleanLabel(m[1])
	if label == "" || strings.Contains(label, "|") {
		return "", "", false
	}
	return label, m[2], true
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = listMarker.ReplaceAllString(s, "")
	s = strings.Trim(s, "*_` \t")
	return strings.TrimSpace(s)
}

// isURL reports whether the text after a colon continues a URL, as in
// "https://host".
func isURL(rest string) bool {
	return strings.HasPrefix(rest, "//")
}

func isFAQMarker(label string) bool {
	f := keys.Fold(label)
	return f == "q" || f == "a"
}

func (e *Extractor) colonPairs(lines []string) []candidate {
	var out []candidate
	for _, line := range lines {
		if faqQuestion.MatchString(line) || faqAnswer.MatchString(line) {
			continue
		}
		label, rest, ok := colonLabel(line)
		if !ok || rest == "" || isFAQMarker(label) || isURL(rest) {
			continue
		}
		if e.keys.Normalize(label) == keys.Overview {
			continue
		}
		out = append(out, candidate{key: label, value: rest})
	}
	return out
}

// overviewOpener reports whether line opens an overview block, returning
// the label as written and any inline text after it.
func (e *Extractor) overviewOpener(line string) (label, inline string, ok bool) {
	if l, rest, isColon := colonLabel(line); isColon {
		if e.keys.Normalize(l) == keys.Overview {
			return l, rest, true
		}
		return "", "", false
	}
	l := cleanLabel(line)
	if l != "" && e.keys.Normalize(l) == keys.Overview {
		return l, "", true
	}
	return "", "", false
}

// endsBlock reports whether line starts a new section: a FAQ question, a
// header alone on its line, or a "label: value" line whose label reads as
// a field. Sentences with an embedded colon and URLs stay in the block.
func (e *Extractor) endsBlock(line string) bool {
	if faqQuestion.MatchString(line) {
		return true
	}
	label, rest, ok := colonLabel(line)
	switch {
	case !ok || isURL(rest):
		return false
	case rest == "":
		return true
	default:
		return e.keys.IsLabel(label)
	}
}

func (e *Extractor) overviewBlocks(lines []string) []candidate {
	var out []candidate
	for i := 0; i < len(lines); i++ {
		label, inline, ok := e.overviewOpener(lines[i])
		if !ok {
			continue
		}
		var body []string
		if inline != "" {
			body = append(body, inline)
		}
		j := i + 1
		for ; j < len(lines); j++ {
			if e.endsBlock(lines[j]) {
				break
			}
			if _, _, next := e.overviewOpener(lines[j]); next {
				break
			}
			body = append(body, strings.TrimRight(lines[j], " \t"))
		}
		out = append(out, candidate{key: label, value: joinParagraphs(body)})
		i = j - 1
	}
	return out
}

// joinParagraphs keeps single blank lines as paragraph breaks and trims the
// edges.
func joinParagraphs(lines []string) string {
	s := strings.TrimSpace(strings.Join(lines, "\n"))
	return blankRun.ReplaceAllString(s, "\n\n")
}

func pipeRows(lines []string) []candidate {
	var out []candidate
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if !strings.Contains(s, "|") {
			continue
		}
		s = strings.TrimPrefix(s, "|")
		s = strings.TrimSuffix(s, "|")
		cells := strings.Split(s, "|")
		if len(cells) != 2 {
			continue
		}
		k, v := strings.TrimSpace(cells[0]), strings.TrimSpace(cells[1])
		if k == "" || v == "" {
			continue
		}
		if separatorCell.MatchString(k) && separatorCell.MatchString(v) {
			continue
		}
		if keys.Fold(k) == "question" && keys.Fold(v) == "answer" {
			continue
		}
		out = append(out, candidate{key: k, value: v})
	}
	return out
}

// faqPairs pairs each "q." line with the next "a." line. A question that
// is followed by another question first is dropped, as is an answer with
// no open question.
func faqPairs(lines []string) []candidate {
	var out []candidate
	var question string
	for _, line := range lines {
		if m := faqQuestion.FindStringSubmatch(line); m != nil {
			question = m[1]
			continue
		}
		if m := faqAnswer.FindStringSubmatch(line); m != nil {
			if question != "" {
				out = append(out, candidate{key: question, value: m[1]})
				question = ""
			}
		}
	}
	return out
}
