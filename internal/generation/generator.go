// Package generation drafts the first questionnaire from a requirement record
// and retrieved reference context.
package generation

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

const stage = "draft generation"

// Generator drafts questionnaires with the model bound to a generation profile.
type Generator struct {
	client llm.Client
	logger *zap.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(client llm.Client, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, logger: logger}
}

// Generate drafts a questionnaire. A draft with no labeled items is a
// *llm.MalformedResponseError; a draft missing one of the two sections is
// returned with a warning logged.
func (g *Generator) Generate(ctx context.Context, record *types.RequirementRecord, refs types.RetrievedContext, profile string) (string, error) {
	prompt, err := BuildPrompt(record, refs)
	if err != nil {
		return "", err
	}

	draft, err := g.client.GenerateForProfile(ctx, prompt, profile)
	if err != nil {
		return "", llm.AsGenerationError(stage, err)
	}
	draft = llm.CleanTextBlock(draft) + "\n"

	doc := questionnaire.Parse(draft)
	if doc.Len() == 0 {
		return "", &llm.MalformedResponseError{
			Stage: stage,
			Raw:   draft,
			Cause: fmt.Errorf("draft contains no SQ/Q items"),
		}
	}
	for _, section := range questionnaire.Sections {
		if !doc.HasSection(section) {
			g.logger.Warn("draft is missing a section",
				zap.String("section", string(section)),
				zap.String("profile", profile))
		}
	}

	g.logger.Info("questionnaire drafted",
		zap.String("profile", profile),
		zap.Int("items", doc.Len()))
	return draft, nil
}

// BuildPrompt fills the drafting prompt with the record fields in contract
// order and the reference context.
func BuildPrompt(record *types.RequirementRecord, refs types.RetrievedContext) (string, error) {
	fields := record.Fields()
	itemCount := fields[3].Value
	if strings.TrimSpace(itemCount) == "" {
		itemCount = "제한 없음"
	}
	special := fields[4].Value
	if strings.TrimSpace(special) == "" {
		special = "없음"
	}
	return prompts.Render("generation.json", "draft-questionnaire", map[string]string{
		"Purpose":   fields[0].Value,
		"Target":    fields[1].Value,
		"Variables": fields[2].Value,
		"ItemCount": itemCount,
		"Special":   special,
		"Context":   refs.PromptText(),
	})
}
