package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ParentSeparators is the priority-ordered separator list the parent
// splitter tries, coarsest first.
var ParentSeparators = []string{"\n\n\n", "\n\n", "\n", "。", "."}

// ChildSeparators is the priority-ordered separator list the child
// splitter tries, finest-grained retrieval unit.
var ChildSeparators = []string{"\n\n", "\n", "。", ".", "！", "!", "？", "?", "；", ";", "，", ",", " "}

const (
	ParentTargetSize = 1800
	ParentOverlap    = ParentTargetSize / 5 // 0.2 * P
	ParentMinLen     = 200

	ChildTargetSize = 450
	ChildOverlap    = (ChildTargetSize * 25) / 100 // 0.25 * C
	ChildMinLen     = 50

	headerLineMaxLen = 60
)

// ParentCandidate is a parent block before it is assigned a stable id
// and persisted.
type ParentCandidate struct {
	ParentID string
	Content  string
}

// ChildCandidate is a child chunk before embedding.
type ChildCandidate struct {
	ParentID string
	ChunkID  int
	Content  string
}

// SplitParents produces the coarse-grained retrieval units, filtering
// out fragments too short to be useful and pure header lines.
func SplitParents(text string) []ParentCandidate {
	pieces := recursiveSplit(text, ParentSeparators)
	merged := mergeBySize(pieces, ParentTargetSize, ParentOverlap)

	var out []ParentCandidate
	for _, p := range merged {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) < ParentMinLen {
			continue
		}
		if isPureHeaderBlock(p) {
			continue
		}
		out = append(out, ParentCandidate{ParentID: uuid.NewString(), Content: p})
	}
	return out
}

// SplitChildren produces the fine-grained embedded units for a single
// parent block, numbering them with an increasing chunk id.
func SplitChildren(parentID string, content string, startChunkID int) []ChildCandidate {
	pieces := recursiveSplit(content, ChildSeparators)
	merged := mergeBySize(pieces, ChildTargetSize, ChildOverlap)

	var out []ChildCandidate
	id := startChunkID
	for _, c := range merged {
		c = strings.TrimSpace(c)
		if utf8.RuneCountInString(c) < ChildMinLen {
			continue
		}
		out = append(out, ChildCandidate{ParentID: parentID, ChunkID: id, Content: c})
		id++
	}
	return out
}

// isPureHeaderBlock matches the spec's filter: every line is short and
// ends with a '#' (a closed markdown-heading marker), i.e. the block
// carries no prose.
func isPureHeaderBlock(text string) bool {
	lines := strings.Split(text, "\n")
	nonEmpty := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		nonEmpty++
		if utf8.RuneCountInString(line) >= headerLineMaxLen {
			return false
		}
		if !strings.HasSuffix(line, "#") {
			return false
		}
	}
	return nonEmpty > 0
}

// recursiveSplit breaks text on the first separator that actually
// appears, then recurses into any piece still larger than the
// finest-grained budget using the remaining separators. This mirrors
// a priority-ordered recursive character splitter: try coarse breaks
// first, fall back to finer ones only where needed.
func recursiveSplit(text string, seps []string) []string {
	if text == "" {
		return nil
	}
	if len(seps) == 0 {
		return splitByRune(text, ChildTargetSize)
	}
	sep := seps[0]
	if !strings.Contains(text, sep) {
		return recursiveSplit(text, seps[1:])
	}
	rawParts := strings.Split(text, sep)
	var out []string
	for i, part := range rawParts {
		piece := part
		if i < len(rawParts)-1 {
			piece += sep
		}
		if piece == "" {
			continue
		}
		if utf8.RuneCountInString(piece) > ChildTargetSize {
			out = append(out, recursiveSplit(piece, seps[1:])...)
			continue
		}
		out = append(out, piece)
	}
	return out
}

// splitByRune is the last-resort splitter for text with no remaining
// separator, guarding against pathological single-token input.
func splitByRune(text string, size int) []string {
	runes := []rune(text)
	if size <= 0 {
		size = ChildTargetSize
	}
	var out []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// mergeBySize accumulates split pieces into windows close to target
// size, carrying the trailing overlapChars of each window into the
// next one so adjacent chunks share context.
func mergeBySize(pieces []string, target, overlapChars int) []string {
	var (
		out     []string
		current strings.Builder
		count   int
	)
	flush := func() {
		content := current.String()
		if strings.TrimSpace(content) != "" {
			out = append(out, content)
		}
		current.Reset()
		count = 0
	}
	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if count > 0 && count+pieceLen > target {
			tail := tailRunes(current.String(), overlapChars)
			flush()
			current.WriteString(tail)
			count = utf8.RuneCountInString(tail)
		}
		current.WriteString(piece)
		count += pieceLen
	}
	flush()
	return out
}

func tailRunes(text string, n int) string {
	if n <= 0 || text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
