// Package classify labels a survey request with a topic domain and routes the
// domain to a generation profile.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/prompts"
	"github.com/jonathan/autosurvey/internal/types"
	"go.uber.org/zap"
)

// ContextLimit bounds how much retrieved context reaches the classification prompt.
const ContextLimit = 1000

// domainNames are the Korean labels the model is asked to answer with.
var domainNames = map[types.Domain]string{
	types.DomainPublicSocial:    "공공·사회",
	types.DomainEducation:       "교육",
	types.DomainIndustryEconomy: "산업·경제",
	types.DomainHealthWelfare:   "의료·보건·복지",
	types.DomainNone:            "해당없음",
}

// Classifier assigns a domain label with the lite model tier.
type Classifier struct {
	client llm.Client
	logger *zap.Logger
}

// NewClassifier creates a Classifier.
func NewClassifier(client llm.Client, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{client: client, logger: logger}
}

// Classify labels the requirement and its retrieved context. Output outside
// the closed label set maps to DomainNone.
func (c *Classifier) Classify(ctx context.Context, record *types.RequirementRecord, refs types.RetrievedContext) (types.Domain, error) {
	prompt, err := prompts.Render("classification.json", "classify-domain", map[string]string{
		"Requirement": renderRecord(record),
		"Context":     Truncate(refs.PromptText(), ContextLimit),
	})
	if err != nil {
		return types.DomainNone, err
	}

	answer, err := c.client.GenerateContent(ctx, prompt, llm.TierLite)
	if err != nil {
		return types.DomainNone, llm.AsGenerationError("domain classification", err)
	}

	domain := ParseDomain(answer)
	if domain == types.DomainNone && strings.TrimSpace(answer) != domainNames[types.DomainNone] {
		c.logger.Debug("unrecognized domain label", zap.String("answer", answer))
	}
	return domain, nil
}

// ParseDomain maps a model answer to a domain. Both English ids and Korean
// names are accepted.
func ParseDomain(answer string) types.Domain {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	normalized = strings.Trim(normalized, "[]\"'`.*")

	for _, d := range types.AllDomains {
		if normalized == string(d) || normalized == domainNames[d] {
			return d
		}
	}
	// Answers with extra words: first label mentioned wins.
	best, bestIdx := types.DomainNone, -1
	for _, d := range types.AllDomains {
		if d == types.DomainNone {
			continue
		}
		for _, name := range []string{domainNames[d], string(d)} {
			if idx := strings.Index(normalized, name); idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
				best, bestIdx = d, idx
			}
		}
	}
	return best
}

// DisplayName returns the Korean name of a domain.
func DisplayName(d types.Domain) string {
	if name, ok := domainNames[d]; ok {
		return name
	}
	return domainNames[types.DomainNone]
}

// Truncate returns at most limit runes of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func renderRecord(record *types.RequirementRecord) string {
	var sb strings.Builder
	for _, f := range record.Fields() {
		sb.WriteString(fmt.Sprintf("%s: %s\n", f.Name, f.Value))
	}
	return strings.TrimRight(sb.String(), "\n")
}
