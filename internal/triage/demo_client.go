package triage

import (
	"context"
	"encoding/json"
	"strings"
)

// DemoClient is an offline LLMClient for demos and local development. It
// maps a few symptom keywords onto the same JSON contract the live model
// returns.
type DemoClient struct{}

// NewDemoClient creates a keyword-based stand-in for the live model.
func NewDemoClient() *DemoClient {
	return &DemoClient{}
}

type demoVerdict struct {
	IsEmergency    bool   `json:"isEmergency"`
	Specialization string `json:"specialization"`
	Urgency        string `json:"urgency"`
	Advice         string `json:"advice"`
	Explanation    string `json:"explanation"`
}

var demoKeywords = []struct {
	words          []string
	specialization string
	urgency        string
	advice         string
}{
	{
		words:          []string{"chest", "heart", "palpitation", "breath"},
		specialization: "Cardiologist",
		urgency:        "high",
		advice:         "Avoid physical exertion until you have been seen.",
	},
	{
		words:          []string{"bone", "joint", "knee", "back", "shoulder", "fracture", "sprain"},
		specialization: "Orthopedist",
		urgency:        "medium",
		advice:         "Rest the affected area and avoid lifting heavy objects.",
	},
	{
		words:          []string{"fever", "cough", "cold", "headache", "fatigue", "stomach"},
		specialization: "General Practitioner",
		urgency:        "low",
		advice:         "Stay hydrated and rest.",
	},
}

// Complete matches the last user message against the keyword table.
func (c *DemoClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	var symptoms string
	for _, msg := range req.Messages {
		if msg.Role == ChatRoleUser {
			symptoms = msg.Content
		}
	}
	lower := strings.ToLower(symptoms)

	verdict := demoVerdict{
		Specialization: "unclear",
		Urgency:        "low",
		Explanation:    "The described symptoms did not match a known pattern.",
	}

	if strings.Contains(lower, "crushing") || strings.Contains(lower, "unconscious") || strings.Contains(lower, "severe bleeding") {
		verdict.IsEmergency = true
		verdict.Urgency = "emergency"
		verdict.Explanation = "The described symptoms may indicate a life-threatening condition."
	} else {
		for _, entry := range demoKeywords {
			for _, word := range entry.words {
				if strings.Contains(lower, word) {
					verdict.Specialization = entry.specialization
					verdict.Urgency = entry.urgency
					verdict.Advice = entry.advice
					verdict.Explanation = "Matched symptom keyword: " + word + "."
					break
				}
			}
			if verdict.Specialization != "unclear" {
				break
			}
		}
	}

	data, err := json.Marshal(verdict)
	if err != nil {
		return LLMResponse{}, err
	}
	return LLMResponse{Text: string(data), StopReason: "stop"}, nil
}

var _ LLMClient = (*DemoClient)(nil)
