// Package segment splits raw crawled page text into titled content blocks.
// Segmentation is pure: identical input and threshold always produce the
// same blocks.
package segment

import (
	"regexp"
	"strings"
)

const (
	// DefaultMinBlockChars is the whitespace-collapsed length below which a
	// block is merged into a neighbour.
	DefaultMinBlockChars = 300

	// MaxBlocks bounds downstream LLM-call volume. Overflow bodies are
	// concatenated onto the last kept block; their titles are discarded.
	MaxBlocks = 10
)

// Block is an ephemeral title/body pair produced by segmentation. It is
// never persisted standalone.
type Block struct {
	Title string
	Body  string
}

var sectionMarker = regexp.MustCompile(`\[SECTION\s+\d+\]\s*(.*)`)

// Split scans text for [SECTION <n>] markers and returns the ordered blocks
// between them. Blocks with an empty title or empty body are dropped.
// Malformed marker syntax degrades to a single unsegmented block titled
// "Page Content".
func Split(text string) []Block {
	locs := sectionMarker.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		body := strings.TrimSpace(text)
		if body == "" {
			return nil
		}
		return []Block{{Title: "Page Content", Body: body}}
	}

	var blocks []Block
	for i, loc := range locs {
		title := strings.TrimSpace(text[loc[2]:loc[3]])
		start := loc[1]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[start:end])
		if title == "" || body == "" {
			continue
		}
		blocks = append(blocks, Block{Title: title, Body: body})
	}
	return blocks
}

// Merge folds undersized blocks into their neighbours and enforces the block
// cap. A block shorter than minChars (whitespace-collapsed) is concatenated
// into the next block under the earlier non-empty title; a trailing
// undersized block merges backward instead. Re-running Merge on output where
// every block already meets the threshold returns the list unchanged.
func Merge(blocks []Block, minChars int) []Block {
	if minChars <= 0 {
		minChars = DefaultMinBlockChars
	}

	var merged []Block
	var carryTitle string
	var carryBody string

	for _, b := range blocks {
		title := b.Title
		body := b.Body
		if carryBody != "" {
			if carryTitle != "" {
				title = carryTitle
			}
			body = carryBody + "\n\n" + body
			carryTitle, carryBody = "", ""
		}
		if collapsedLen(body) < minChars {
			carryTitle = title
			carryBody = body
			continue
		}
		merged = append(merged, Block{Title: title, Body: body})
	}

	// Trailing undersized block merges backward into the previous block.
	if carryBody != "" {
		if len(merged) == 0 {
			merged = append(merged, Block{Title: carryTitle, Body: carryBody})
		} else {
			last := &merged[len(merged)-1]
			last.Body = last.Body + "\n\n" + carryBody
		}
	}

	if len(merged) > MaxBlocks {
		tail := merged[MaxBlocks-1:]
		keep := merged[:MaxBlocks-1]
		combined := tail[0]
		for _, b := range tail[1:] {
			combined.Body = combined.Body + "\n\n" + b.Body
		}
		merged = append(keep, combined)
	}

	return merged
}

// SplitAndMerge is the full segmentation pass used by enrichment.
func SplitAndMerge(text string, minChars int) []Block {
	return Merge(Split(text), minChars)
}

func collapsedLen(s string) int {
	return len(strings.Join(strings.Fields(s), " "))
}
