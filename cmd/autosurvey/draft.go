package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jonathan/autosurvey/internal/observability"
	"github.com/jonathan/autosurvey/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	draftText string
	draftIn   string
	draftOut  string
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft a questionnaire and refine it interactively",
	Long: `Drafts a questionnaire from a survey request, then reads feedback lines from
stdin and revises the draft until it is approved.

Commands inside the loop:
  승인, approve      approve the current draft and exit
  기록, history      list saved versions
  복원 N, restore N  make version N the current draft
  초기화, reset      discard the session; the next line starts a new request
  종료, quit, exit   exit without approving
Any other line is treated as feedback on the current draft.`,
	RunE: runDraft,
}

func init() {
	draftCmd.Flags().StringVarP(&draftText, "text", "t", "", "Survey request text")
	draftCmd.Flags().StringVarP(&draftIn, "in", "i", "", "Path to a file holding the survey request")
	draftCmd.Flags().StringVarP(&draftOut, "out", "o", "", "Write the approved questionnaire to this file")
	rootCmd.AddCommand(draftCmd)
}

func runDraft(cmd *cobra.Command, _ []string) error {
	text, err := readInput(draftText, draftIn)
	if err != nil {
		return err
	}

	cfg, err := loadSettings(os.Getenv)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, false)

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	o := pipeline.New(a.components(), pipeline.Options{
		Ceiling:    cfg.RevisionCeiling,
		OnProgress: printer.PrintProgress,
		Logger:     logger,
	})

	final, err := runDraftSession(ctx, o, printer, text, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if final != "" && draftOut != "" {
		if err := os.WriteFile(draftOut, []byte(final), 0o644); err != nil {
			return fmt.Errorf("failed to write questionnaire: %w", err)
		}
		printer.Success("저장됨: %s", draftOut)
	}
	return nil
}

// runDraftSession drafts from text when given and then reads commands from in.
// A failed first draft leaves the session idle so the next line can retry it.
func runDraftSession(ctx context.Context, o *pipeline.Orchestrator, p *observability.Printer, text string, in io.Reader) (string, error) {
	if strings.TrimSpace(text) == "" {
		p.Prompt("설문 요구사항을 입력하세요:")
	} else if err := startDraft(ctx, o, p, text); err != nil {
		if isFatal(err) {
			return "", err
		}
		p.Error(err)
		p.Prompt("설문 요구사항을 다시 입력하세요:")
	}
	return runDraftLoop(ctx, o, p, in)
}

type commandKind int

const (
	cmdFeedback commandKind = iota
	cmdApprove
	cmdHistory
	cmdRestore
	cmdReset
	cmdQuit
	cmdEmpty
)

type loopCommand struct {
	kind    commandKind
	version int
	text    string
}

// parseLoopCommand classifies one input line. Lines that are not a known
// command are feedback.
func parseLoopCommand(line string) (loopCommand, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return loopCommand{kind: cmdEmpty}, nil
	}

	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "승인", "approve":
		if len(fields) == 1 {
			return loopCommand{kind: cmdApprove}, nil
		}
	case "기록", "history":
		if len(fields) == 1 {
			return loopCommand{kind: cmdHistory}, nil
		}
	case "초기화", "reset":
		if len(fields) == 1 {
			return loopCommand{kind: cmdReset}, nil
		}
	case "종료", "quit", "exit":
		if len(fields) == 1 {
			return loopCommand{kind: cmdQuit}, nil
		}
	case "복원", "restore":
		if len(fields) != 2 {
			return loopCommand{}, fmt.Errorf("usage: restore N")
		}
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(fields[1]), "v"))
		if err != nil || n < 1 {
			return loopCommand{}, fmt.Errorf("invalid version %q", fields[1])
		}
		return loopCommand{kind: cmdRestore, version: n}, nil
	}
	return loopCommand{kind: cmdFeedback, text: line}, nil
}

// runDraftLoop reads commands until the draft is approved, the user quits or
// input ends. It returns the approved questionnaire, or "" if none was.
func runDraftLoop(ctx context.Context, o *pipeline.Orchestrator, p *observability.Printer, in io.Reader) (string, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		cmd, err := parseLoopCommand(scanner.Text())
		if err != nil {
			p.Error(err)
			continue
		}

		switch cmd.kind {
		case cmdEmpty:
			continue
		case cmdQuit:
			return "", nil
		case cmdReset:
			o.Reset()
			p.Success("세션을 초기화했습니다. 새 요구사항을 입력하세요.")
			continue
		}

		if o.State() == pipeline.StateIdle {
			if cmd.kind != cmdFeedback {
				p.Warn("아직 초안이 없습니다. 설문 요구사항을 먼저 입력하세요.")
				continue
			}
			if err := startDraft(ctx, o, p, cmd.text); err != nil {
				if isFatal(err) {
					return "", err
				}
				p.Error(err)
			}
			continue
		}

		switch cmd.kind {
		case cmdApprove:
			if err := o.Approve(); err != nil {
				p.Error(err)
				continue
			}
			final := o.Snapshot().Current
			p.PrintQuestionnaire("최종 설문지", final)
			p.Success("설문지가 승인되었습니다.")
			return final, nil
		case cmdHistory:
			snap := o.Snapshot()
			p.PrintHistory(snap.History, snap.Current)
		case cmdRestore:
			text, err := o.Restore(cmd.version)
			if err != nil {
				p.Error(err)
				continue
			}
			p.PrintQuestionnaire(fmt.Sprintf("복원된 설문지 (v%d)", cmd.version), text)
		case cmdFeedback:
			if err := revise(ctx, o, p, cmd.text); err != nil {
				if isFatal(err) {
					return "", err
				}
				p.Error(err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return "", nil
}

func startDraft(ctx context.Context, o *pipeline.Orchestrator, p *observability.Printer, text string) error {
	draft, err := o.Start(ctx, text)
	if err != nil {
		return err
	}

	snap := o.Snapshot()
	p.PrintKeywords(snap.Keywords)
	p.PrintRequirement(snap.Requirement)
	if snap.Params != nil {
		p.PrintRetrieval(*snap.Params, snap.Query)
	}
	if snap.Context != nil {
		p.PrintContext(*snap.Context)
	}
	p.PrintDomain(snap.Domain, snap.Profile)
	p.PrintQuestionnaire("설문지 초안 (v1)", draft)
	return nil
}

// revise runs one feedback cycle. The ceiling warning arrives as a progress
// event and does not stop the loop.
func revise(ctx context.Context, o *pipeline.Orchestrator, p *observability.Printer, text string) error {
	result, err := o.ProcessFeedback(ctx, text)
	if err != nil {
		return err
	}
	p.PrintFeedback(result.Feedback, result.FallbackReason)
	p.PrintQuestionnaire(fmt.Sprintf("수정된 설문지 (v%d)", result.Version), result.Questionnaire)
	return nil
}

// isFatal reports errors that end the loop instead of being shown and retried.
func isFatal(err error) bool {
	return errors.Is(err, context.Canceled)
}
