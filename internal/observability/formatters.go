// Package observability provides formatted terminal output for the
// interactive drafting loop and verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jonathan/autosurvey/internal/pipeline"
	"github.com/jonathan/autosurvey/internal/types"
)

const (
	// boxWidth is the width of box borders
	boxWidth = 60
	// maxLineRunes truncates long lines inside boxes
	maxLineRunes = 70
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
	dimColor     = color.New(color.Faint)
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer.
// Colors follow fatih/color's terminal detection.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a titled box. Only the left border is drawn since Hangul
// glyphs are double width in most terminals.
//
//nolint:errcheck // writing to the terminal; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s\n", border)
	titleColor.Fprintf(p.out, "│ %s\n", title)
	fmt.Fprintf(p.out, "├%s\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s\n", truncate(line, maxLineRunes))
	}
	fmt.Fprintf(p.out, "└%s\n", border)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// PrintKeywords outputs the mined keywords.
func (p *Printer) PrintKeywords(keywords []string) {
	if len(keywords) == 0 {
		p.printBox("키워드", "(추출된 키워드 없음)")
		return
	}
	p.printBox("키워드", strings.Join(keywords, ", "))
}

// PrintRequirement outputs the extracted requirement record in field order.
func (p *Printer) PrintRequirement(record *types.RequirementRecord) {
	if record == nil {
		return
	}

	labels := map[string]string{
		"purpose":              "조사 목적",
		"target_population":    "조사 대상",
		"variables":            "주요 측정 변수",
		"requested_item_count": "요청 문항 수",
		"special_constraints":  "특수 요구사항",
	}

	var sb strings.Builder
	for _, f := range record.Fields() {
		// Hangul is double width, so labels are not padded into columns.
		sb.WriteString(fmt.Sprintf("%s: %s\n", labels[f.Name], orDash(f.Value)))
	}
	p.printBox("요구사항 분석 결과", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRetrieval outputs the tuned retrieval parameters and query.
func (p *Printer) PrintRetrieval(params types.RetrievalParams, query string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("sparse weight: %.2f\n", params.SparseWeight))
	sb.WriteString(fmt.Sprintf("dense weight:  %.2f\n", params.DenseWeight))
	sb.WriteString(fmt.Sprintf("result count:  %d\n", params.ResultCount))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("query: %s", query))
	p.printBox("검색 파라미터", sb.String())
}

// PrintContext outputs the reference summary and its sources.
func (p *Printer) PrintContext(refs types.RetrievedContext) {
	if refs.NoMatch {
		p.printBox("참조 설문", types.NoReferenceNote)
		return
	}

	var sb strings.Builder
	sb.WriteString(refs.Text)
	if len(refs.Sources) > 0 {
		sb.WriteString("\n\n출처:\n")
		count := min(len(refs.Sources), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", refs.Sources[i]))
		}
		if len(refs.Sources) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... 외 %d건\n", len(refs.Sources)-maxItemsToShow))
		}
	}
	p.printBox("참조 설문", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDomain outputs the selected domain and generation profile.
//
//nolint:errcheck // writing to the terminal; errors are not recoverable
func (p *Printer) PrintDomain(domain types.Domain, profile string) {
	fmt.Fprintf(p.out, "도메인: %s  프로필: %s\n", domain, profile)
}

// PrintQuestionnaire outputs a full questionnaire without truncation.
//
//nolint:errcheck // writing to the terminal; errors are not recoverable
func (p *Printer) PrintQuestionnaire(title, text string) {
	border := strings.Repeat("═", boxWidth)
	fmt.Fprintln(p.out, border)
	titleColor.Fprintln(p.out, title)
	fmt.Fprintln(p.out, border)
	fmt.Fprintln(p.out, strings.TrimRight(text, "\n"))
	fmt.Fprintln(p.out, border)
}

// PrintFeedback outputs how a feedback line was interpreted.
func (p *Printer) PrintFeedback(fb types.StructuredFeedback, fallbackReason string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("유형:     %s\n", fb.EditKind))
	sb.WriteString(fmt.Sprintf("대상:     %s\n", fb.TargetItem))
	sb.WriteString(fmt.Sprintf("우선순위: %s\n", fb.Priority))
	sb.WriteString(fmt.Sprintf("지시:     %s", fb.Instruction))
	if fallbackReason != "" {
		sb.WriteString(fmt.Sprintf("\n\n⚠ 구조화 실패로 원문을 그대로 사용: %s", fallbackReason))
	}
	p.printBox("피드백 해석", sb.String())
}

// PrintHistory outputs one line per stored version.
//
//nolint:errcheck // writing to the terminal; errors are not recoverable
func (p *Printer) PrintHistory(history []types.VersionEntry, current string) {
	if len(history) == 0 {
		dimColor.Fprintln(p.out, "저장된 버전이 없습니다.")
		return
	}
	for _, entry := range history {
		marker := " "
		if entry.Questionnaire == current {
			marker = "*"
		}
		lines := strings.Count(strings.TrimRight(entry.Questionnaire, "\n"), "\n") + 1
		fmt.Fprintf(p.out, "%s v%d  %s  (%d줄)\n", marker, entry.Version, entry.CreatedAt.Format("15:04:05"), lines)
	}
}

// PrintProgress outputs one progress event as a status line.
//
//nolint:errcheck // writing to the terminal; errors are not recoverable
func (p *Printer) PrintProgress(event pipeline.ProgressEvent) {
	if event.Warning {
		warnColor.Fprintf(p.out, "⚠ [%s] %s\n", event.Category, event.Message)
		return
	}
	dimColor.Fprintf(p.out, "… [%s] %s\n", event.Category, event.Message)
}

// Warn outputs a warning line.
//
//nolint:errcheck // writing to the terminal; errors are not recoverable
func (p *Printer) Warn(format string, args ...any) {
	warnColor.Fprintf(p.out, "⚠ "+format+"\n", args...)
}

// Error outputs an error line.
//
//nolint:errcheck // writing to the terminal; errors are not recoverable
func (p *Printer) Error(err error) {
	errorColor.Fprintf(p.out, "✗ %v\n", err)
}

// Success outputs a confirmation line.
//
//nolint:errcheck // writing to the terminal; errors are not recoverable
func (p *Printer) Success(format string, args ...any) {
	successColor.Fprintf(p.out, "✓ "+format+"\n", args...)
}

// Prompt outputs an uncolored line asking for input.
//
//nolint:errcheck // writing to the terminal; errors are not recoverable
func (p *Printer) Prompt(text string) {
	fmt.Fprintln(p.out, text)
}
