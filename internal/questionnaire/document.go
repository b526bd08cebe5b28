// Package questionnaire models a drafted questionnaire as an ordered sequence
// of free-text blocks and labeled items (SQn / Qn). Parsing is lossless:
// String reproduces the parsed text byte-for-byte, so untouched items stay
// identical across edits.
package questionnaire

import (
	"regexp"
	"strconv"
	"strings"
)

// Section identifies the block an item belongs to.
type Section string

const (
	// SectionRespondent holds respondent-characteristic items (SQ1..SQn).
	SectionRespondent Section = "SQ"
	// SectionCore holds core items (Q1..Qn).
	SectionCore Section = "Q"
)

// Sections lists both sections in document order.
var Sections = []Section{SectionRespondent, SectionCore}

// itemLine matches the first line of an item: optional heading marks or bold
// markers, the label, then a terminator.
var itemLine = regexp.MustCompile(`^([ \t]*(?:#{1,6}[ \t]+)?(?:\*\*)?)(SQ|Q)(\d+)([.):].*)$`)

// Item is one labeled question with its options.
type Item struct {
	Section Section
	Number  int
	// Lead is whatever precedes the label on its line.
	Lead string
	// Body is everything after the label digits, including option lines and
	// trailing blank lines.
	Body string

	digits string
}

// Label returns the item label such as "Q3" or "SQ1".
func (it Item) Label() string {
	return string(it.Section) + strconv.Itoa(it.Number)
}

// Text renders the item exactly as it appears in the document.
func (it Item) Text() string {
	digits := it.digits
	if digits == "" {
		digits = strconv.Itoa(it.Number)
	}
	return it.Lead + string(it.Section) + digits + it.Body
}

// Prompt returns the question line without the label.
func (it Item) Prompt() string {
	line := it.Body
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimLeft(line, ".):")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "**"))
}

type block struct {
	text string
	item *Item
}

// Document is a parsed questionnaire.
type Document struct {
	blocks []block
}

// Parse splits text into free-text blocks and items. An item is its label
// line, the lines directly under it, and after a blank line only option or
// indented lines. Headings, bold subtitles, separators and other text after
// a blank line end the item and start a free-text block.
func Parse(text string) *Document {
	doc := &Document{}
	if text == "" {
		return doc
	}

	var current *Item
	var free strings.Builder
	// afterBlank is set once the current item has seen a blank line.
	afterBlank := false

	flushFree := func() {
		if free.Len() > 0 {
			doc.blocks = append(doc.blocks, block{text: free.String()})
			free.Reset()
		}
	}
	flushItem := func() {
		if current != nil {
			doc.blocks = append(doc.blocks, block{item: current})
			current = nil
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		content := strings.TrimRight(line, "\r\n")

		if m := itemLine.FindStringSubmatch(content); m != nil {
			flushItem()
			flushFree()
			number, _ := strconv.Atoi(m[3])
			current = &Item{
				Section: Section(m[2]),
				Number:  number,
				Lead:    m[1],
				Body:    m[4] + line[len(content):],
				digits:  m[3],
			}
			afterBlank = false
			continue
		}

		if current != nil && continuesItem(content, afterBlank) {
			current.Body += line
			if strings.TrimSpace(content) == "" {
				afterBlank = true
			}
			continue
		}

		flushItem()
		free.WriteString(line)
	}
	flushItem()
	flushFree()

	return doc
}

var (
	optionLine    = regexp.MustCompile(`^(?:[-•·○●□■☐▢]|\*[ \t]|[\x{2460}-\x{2473}]|\(?\d+[).]|[a-zA-Z][).][ \t])`)
	separatorLine = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,}|={3,})$`)
)

// continuesItem reports whether a non-label line belongs to the item above it.
func continuesItem(line string, afterBlank bool) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return true
	case isHeading(line), separatorLine.MatchString(trimmed), strings.HasPrefix(trimmed, "**"):
		return false
	case line[0] == ' ' || line[0] == '\t':
		return true
	case optionLine.MatchString(trimmed):
		return true
	default:
		return !afterBlank
	}
}

func isHeading(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "#")
}

// String renders the document.
func (d *Document) String() string {
	var sb strings.Builder
	for _, b := range d.blocks {
		if b.item != nil {
			sb.WriteString(b.item.Text())
			continue
		}
		sb.WriteString(b.text)
	}
	return sb.String()
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{blocks: make([]block, len(d.blocks))}
	for i, b := range d.blocks {
		if b.item != nil {
			it := *b.item
			out.blocks[i] = block{item: &it}
			continue
		}
		out.blocks[i] = block{text: b.text}
	}
	return out
}

// Items returns copies of all items in document order.
func (d *Document) Items() []Item {
	var items []Item
	for _, b := range d.blocks {
		if b.item != nil {
			items = append(items, *b.item)
		}
	}
	return items
}

// ItemsIn returns the items of one section in document order.
func (d *Document) ItemsIn(section Section) []Item {
	var items []Item
	for _, b := range d.blocks {
		if b.item != nil && b.item.Section == section {
			items = append(items, *b.item)
		}
	}
	return items
}

// Len returns the number of items.
func (d *Document) Len() int {
	n := 0
	for _, b := range d.blocks {
		if b.item != nil {
			n++
		}
	}
	return n
}

// HasSection reports whether at least one item of the section exists.
func (d *Document) HasSection(section Section) bool {
	return len(d.ItemsIn(section)) > 0
}

// Labels returns all item labels in document order.
func (d *Document) Labels() []string {
	items := d.Items()
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Label()
	}
	return labels
}

// Item returns the first item with the given label.
func (d *Document) Item(label string) (Item, bool) {
	if i := d.find(label); i >= 0 {
		return *d.blocks[i].item, true
	}
	return Item{}, false
}

// Replace swaps the content of the labeled item for the content of repl.
// The existing label, its lead and its trailing blank lines are kept.
func (d *Document) Replace(label string, repl Item) error {
	i := d.find(label)
	if i < 0 {
		return &ItemNotFoundError{Label: label}
	}

	old := d.blocks[i].item
	updated := *old
	updated.Body = strings.TrimRight(repl.Body, " \t\r\n") + trailingSpace(old.Body)
	d.blocks[i].item = &updated
	return nil
}

// Delete removes the labeled item. Free text around it is kept.
func (d *Document) Delete(label string) error {
	i := d.find(label)
	if i < 0 {
		return &ItemNotFoundError{Label: label}
	}
	d.blocks = append(d.blocks[:i], d.blocks[i+1:]...)
	return nil
}

// Renumber relabels the items of a section contiguously from 1 in document
// order and reports whether any label changed.
func (d *Document) Renumber(section Section) bool {
	changed := false
	n := 0
	for _, b := range d.blocks {
		if b.item == nil || b.item.Section != section {
			continue
		}
		n++
		if b.item.Number != n {
			b.item.Number = n
			b.item.digits = strconv.Itoa(n)
			changed = true
		}
	}
	return changed
}

// RenumberAll renumbers every section.
func (d *Document) RenumberAll() bool {
	changed := false
	for _, s := range Sections {
		if d.Renumber(s) {
			changed = true
		}
	}
	return changed
}

func (d *Document) find(label string) int {
	section, number, ok := ParseLabel(label)
	if !ok {
		return -1
	}
	for i, b := range d.blocks {
		if b.item != nil && b.item.Section == section && b.item.Number == number {
			return i
		}
	}
	return -1
}

func trailingSpace(s string) string {
	trimmed := strings.TrimRight(s, " \t\r\n")
	return s[len(trimmed):]
}
