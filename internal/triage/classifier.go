// Package triage maps freeform symptom descriptions onto specialist
// categories by asking an external AI model. The model is the only thing
// that understands symptoms; this package just owns the prompt and the
// defensive parsing of whatever comes back.
package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clinicflow/clinicflow/internal/directory"
	"github.com/clinicflow/clinicflow/pkg/logging"
)

// ErrUnavailable means the AI call itself failed (network, timeout, quota).
// The caller should offer a retry or a manual category pick.
var ErrUnavailable = errors.New("triage: classifier unavailable")

// Assessment is the parsed result of one classification call.
type Assessment struct {
	Category    directory.Category
	Unclear     bool
	Emergency   bool
	Urgency     string
	Advice      string
	Explanation string
}

// Resolver folds a free-text category name onto a recognized category.
type Resolver interface {
	Normalize(raw string) (directory.Category, bool)
}

// Classifier asks the LLM to map symptoms to one category from a fixed list.
type Classifier struct {
	client   LLMClient
	resolver Resolver
	logger   *logging.Logger
}

// NewClassifier creates a symptom classifier.
func NewClassifier(client LLMClient, resolver Resolver, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{client: client, resolver: resolver, logger: logger}
}

const classifierPrompt = `You are a medical scheduling assistant. Analyze these symptoms and respond in valid JSON with no additional text.

Use ONLY these specialization options:
%s

Symptoms: %s

Respond with ONLY this exact JSON structure:
{
    "isEmergency": false,
    "specialization": "appropriate medical specialist from the list",
    "urgency": "low/medium/high",
    "advice": "immediate advice for the patient",
    "explanation": "explanation of why this specialist is recommended"
}`

// modelReply is the JSON contract we ask the model to honor.
type modelReply struct {
	IsEmergency    bool   `json:"isEmergency"`
	Specialization string `json:"specialization"`
	Urgency        string `json:"urgency"`
	Advice         string `json:"advice"`
	Explanation    string `json:"explanation"`
}

// Classify sends the symptom buffer plus the category list to the model and
// parses the reply. The returned category is always a member of categories
// or the unclear sentinel. A transport failure is reported as
// ErrUnavailable; a malformed reply degrades to Unclear.
func (c *Classifier) Classify(ctx context.Context, symptoms string, categories []directory.Category) (Assessment, error) {
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return Assessment{Category: directory.CategoryUnclear, Unclear: true}, nil
	}

	var options strings.Builder
	for _, cat := range categories {
		fmt.Fprintf(&options, "- %s\n", cat)
	}

	prompt := fmt.Sprintf(classifierPrompt, options.String(), symptoms)

	resp, err := c.client.Complete(ctx, LLMRequest{
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   512,
		Temperature: 0.2,
	})
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	reply, ok := parseModelReply(resp.Text)
	if !ok {
		c.logger.Warn("triage: unparseable model reply", "reply_preview", preview(resp.Text, 120))
		return Assessment{Category: directory.CategoryUnclear, Unclear: true}, nil
	}

	assessment := Assessment{
		Emergency:   reply.IsEmergency,
		Urgency:     reply.Urgency,
		Advice:      reply.Advice,
		Explanation: reply.Explanation,
	}

	category, matched := c.resolver.Normalize(reply.Specialization)
	if !matched || !containsCategory(categories, category) {
		c.logger.Info("triage: model specialization not in category list", "specialization", reply.Specialization)
		assessment.Category = directory.CategoryUnclear
		assessment.Unclear = true
		return assessment, nil
	}

	assessment.Category = category
	return assessment, nil
}

// parseModelReply strips markdown fences and extracts the outermost JSON
// object before decoding.
func parseModelReply(text string) (modelReply, bool) {
	content := strings.TrimSpace(text)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx < 0 || endIdx <= startIdx {
		return modelReply{}, false
	}
	content = content[startIdx : endIdx+1]

	var reply modelReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return modelReply{}, false
	}
	if strings.TrimSpace(reply.Specialization) == "" && !reply.IsEmergency {
		return modelReply{}, false
	}
	return reply, true
}

func containsCategory(categories []directory.Category, c directory.Category) bool {
	for _, cat := range categories {
		if cat == c {
			return true
		}
	}
	return false
}

func preview(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
