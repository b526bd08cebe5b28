// Package revision applies structured edit directives to a questionnaire.
//
// The model always regenerates the whole document, but the engine decides how
// much of that output is kept. Items the directive does not name are taken
// from the previous version unchanged whenever the directive names existing
// items.
package revision

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/prompts"
	"github.com/jonathan/autosurvey/internal/questionnaire"
	"github.com/jonathan/autosurvey/internal/types"
	"go.uber.org/zap"
)

const stage = "revision"

// Engine revises questionnaires with the model bound to a generation profile.
type Engine struct {
	client llm.Client
	logger *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(client llm.Client, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{client: client, logger: logger}
}

// Revise returns the complete replacement for previous after applying fb.
func (e *Engine) Revise(ctx context.Context, previous string, fb types.StructuredFeedback, profile string) (string, error) {
	prev := questionnaire.Parse(previous)
	targets := existingTargets(prev, fb.TargetItem)

	if fb.EditKind == types.EditItemDelete && len(targets) > 0 {
		return e.deleteItems(prev, targets)
	}

	output, err := e.regenerate(ctx, previous, fb, profile)
	if err != nil {
		return "", err
	}

	if (fb.EditKind == types.EditItemModify || fb.EditKind == types.EditFormatChange) && len(targets) > 0 {
		return e.splice(prev, output, targets, output.String())
	}

	if fb.EditKind.Structural() {
		output.RenumberAll()
	}
	e.logger.Info("questionnaire revised",
		zap.String("edit_kind", string(fb.EditKind)),
		zap.String("target_item", fb.TargetItem),
		zap.Int("items", output.Len()))
	return output.String(), nil
}

func (e *Engine) regenerate(ctx context.Context, previous string, fb types.StructuredFeedback, profile string) (*questionnaire.Document, error) {
	prompt, err := BuildPrompt(previous, fb)
	if err != nil {
		return nil, err
	}

	raw, err := e.client.GenerateForProfile(ctx, prompt, profile)
	if err != nil {
		return nil, llm.AsGenerationError(stage, err)
	}

	text := llm.CleanTextBlock(raw) + "\n"
	doc := questionnaire.Parse(text)
	if doc.Len() == 0 {
		return nil, &llm.MalformedResponseError{
			Stage: stage,
			Raw:   raw,
			Cause: fmt.Errorf("revised questionnaire contains no SQ/Q items"),
		}
	}
	return doc, nil
}

// deleteItems removes the named items locally and renumbers what remains.
func (e *Engine) deleteItems(prev *questionnaire.Document, targets []string) (string, error) {
	doc := prev.Clone()
	touched := make(map[questionnaire.Section]bool)
	for _, label := range targets {
		section, _, _ := questionnaire.ParseLabel(label)
		if err := doc.Delete(label); err != nil {
			return "", err
		}
		touched[section] = true
	}
	for _, section := range questionnaire.Sections {
		if touched[section] {
			doc.Renumber(section)
		}
	}

	e.logger.Info("items deleted",
		zap.Strings("labels", targets),
		zap.Int("items", doc.Len()))
	return doc.String(), nil
}

// splice takes only the named items from the model output.
func (e *Engine) splice(prev, output *questionnaire.Document, targets []string, raw string) (string, error) {
	doc := prev.Clone()
	for _, label := range targets {
		item, ok := output.Item(label)
		if !ok {
			return "", &llm.MalformedResponseError{
				Stage: stage,
				Raw:   raw,
				Cause: &questionnaire.ItemNotFoundError{Label: label},
			}
		}
		if err := doc.Replace(label, item); err != nil {
			return "", err
		}
	}

	e.logger.Info("items revised",
		zap.Strings("labels", targets),
		zap.Int("items", doc.Len()))
	return doc.String(), nil
}

// existingTargets returns the labels named by target when every one of them
// exists in doc, and nil otherwise.
func existingTargets(doc *questionnaire.Document, target string) []string {
	if target == types.TargetAll {
		return nil
	}
	labels := questionnaire.SplitTargets(target)
	for _, label := range labels {
		if _, ok := doc.Item(label); !ok {
			return nil
		}
	}
	return dedupe(labels)
}

func dedupe(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := labels[:0]
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// BuildPrompt renders the revision prompt for the previous questionnaire.
func BuildPrompt(previous string, fb types.StructuredFeedback) (string, error) {
	return prompts.Render("revision.json", "revise-questionnaire", map[string]string{
		"Questionnaire": strings.TrimSpace(previous),
		"EditKind":      string(fb.EditKind),
		"Target":        fb.TargetItem,
		"Priority":      string(fb.Priority),
		"Instruction":   fb.Instruction,
	})
}
