package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/entity"
)

var ErrMalformedAnalysis = errors.New("malformed analysis output")

type rawAnalysis struct {
	EmotionalState      *string         `json:"emotionalState"`
	Themes              []string        `json:"themes"`
	RiskLevel           json.RawMessage `json:"riskLevel"`
	RecommendedApproach string          `json:"recommendedApproach"`
}

// Parse extracts the first JSON object from a model reply, tolerating prose or code fences around it.
func Parse(raw string) (entity.Analysis, error) {
	trimmed := strings.TrimSpace(raw)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return entity.Analysis{}, fmt.Errorf("%w: missing json object", ErrMalformedAnalysis)
	}

	var payload rawAnalysis
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return entity.Analysis{}, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}

	if payload.EmotionalState == nil || strings.TrimSpace(*payload.EmotionalState) == "" {
		return entity.Analysis{}, fmt.Errorf("%w: emotionalState is required", ErrMalformedAnalysis)
	}

	risk, err := parseRiskLevel(payload.RiskLevel)
	if err != nil {
		return entity.Analysis{}, err
	}

	themes := make([]string, 0, len(payload.Themes))
	for _, theme := range payload.Themes {
		if t := strings.ToLower(strings.TrimSpace(theme)); t != "" {
			themes = append(themes, t)
		}
	}

	approach := strings.ToLower(strings.TrimSpace(payload.RecommendedApproach))
	if approach == "" {
		approach = constant.DefaultRecommendedApproach
	}

	return entity.Analysis{
		EmotionalState:      strings.ToLower(strings.TrimSpace(*payload.EmotionalState)),
		Themes:              themes,
		RiskLevel:           risk,
		RecommendedApproach: approach,
	}, nil
}

// parseRiskLevel accepts 3, 3.0 and "3". Missing means 0.
func parseRiskLevel(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err != nil {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: riskLevel is not a number", ErrMalformedAnalysis)
		}
		number, err = strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: riskLevel %q is not a number", ErrMalformedAnalysis, text)
		}
	}

	if number < 0 || number != math.Trunc(number) || number > math.MaxInt32 {
		return 0, fmt.Errorf("%w: riskLevel %v out of range", ErrMalformedAnalysis, number)
	}
	return int(number), nil
}
