package prompt

import (
	"fmt"
	"strings"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/pkg/llm"
)

// maxRecalled caps how many remembered states and themes reach the prompt.
const maxRecalled = 8

type Input struct {
	SystemPrompt string // Falls back to CounselorSystemPromptV1
	Goals        []string
	Message      string
	Analysis     entity.Analysis
	Memory       entity.Memory
	History      []llm.Message // Oldest first, excluding Message
}

// Build assembles the chat sent to the response model: one system message, prior turns, then the new message.
func Build(in Input) []llm.Message {
	system := strings.TrimSpace(in.SystemPrompt)
	if system == "" {
		system = constant.CounselorSystemPromptV1
	}

	var sb strings.Builder
	sb.WriteString(system)

	if len(in.Goals) > 0 {
		sb.WriteString("\n\nTherapeutic goals for this conversation:\n")
		for _, goal := range in.Goals {
			sb.WriteString("- ")
			sb.WriteString(goal)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n\nWhat you know about the user so far:\n")
	sb.WriteString(summarizeMemory(in.Memory))

	sb.WriteString("\n\nAssessment of the latest message:\n")
	sb.WriteString(summarizeAnalysis(in.Analysis))

	messages := make([]llm.Message, 0, len(in.History)+2)
	messages = append(messages, llm.Message{Role: constant.ChatMessageRoleSystem, Content: strings.TrimSpace(sb.String())})
	for _, h := range in.History {
		if h.Role != constant.ChatMessageRoleUser && h.Role != constant.ChatMessageRoleAssistant {
			continue
		}
		messages = append(messages, h)
	}
	messages = append(messages, llm.Message{Role: constant.ChatMessageRoleUser, Content: in.Message})
	return messages
}

func summarizeMemory(m entity.Memory) string {
	states := lastN(m.UserProfile.EmotionalState, maxRecalled)
	themes := distinct(lastN(m.SessionContext.ConversationThemes, maxRecalled*2))

	if len(states) == 0 && len(themes) == 0 && m.UserProfile.RiskLevel == 0 {
		return "Nothing yet, this is the start of the conversation."
	}

	var lines []string
	if len(states) > 0 {
		lines = append(lines, fmt.Sprintf("- Recent emotional states, oldest first: %s", strings.Join(states, ", ")))
	}
	if len(themes) > 0 {
		lines = append(lines, fmt.Sprintf("- Recurring themes: %s", strings.Join(themes, ", ")))
	}
	lines = append(lines, fmt.Sprintf("- Last observed risk level: %d of 10", m.UserProfile.RiskLevel))
	return strings.Join(lines, "\n")
}

func summarizeAnalysis(a entity.Analysis) string {
	themes := "none"
	if len(a.Themes) > 0 {
		themes = strings.Join(a.Themes, ", ")
	}
	return fmt.Sprintf("- Emotional state: %s\n- Themes: %s\n- Risk level: %d of 10\n- Recommended approach: %s",
		a.EmotionalState, themes, a.RiskLevel, a.RecommendedApproach)
}

func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func distinct(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
