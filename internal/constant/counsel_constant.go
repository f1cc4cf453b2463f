package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	ChatSessionStatusActive    = "active"
	ChatSessionStatusCompleted = "completed"
)

// Pipeline run states. Every transition is persisted on the run record.
const (
	RunStatusQueued             = "QUEUED"
	RunStatusAnalyzing          = "ANALYZING"
	RunStatusMemoryUpdating     = "MEMORY_UPDATING"
	RunStatusRiskEvaluating     = "RISK_EVALUATING"
	RunStatusResponseGenerating = "RESPONSE_GENERATING"
	RunStatusPersisting         = "PERSISTING"
	RunStatusCompleted          = "COMPLETED"
	RunStatusFailed             = "FAILED"
)

const (
	StepAnalyze          = "analyze"
	StepUpdateMemory     = "update-memory"
	StepRiskEvaluate     = "risk-evaluate"
	StepGenerateResponse = "generate-response"
	StepPersist          = "persist"

	StepStatusSucceeded = "succeeded"
	StepStatusFallback  = "fallback"
	StepStatusFailed    = "failed"
	StepStatusSkipped   = "skipped"
)

const (
	DefaultEmotionalState      = "neutral"
	DefaultRecommendedApproach = "supportive"

	FallbackReply = "I'm here to support you. Could you tell me more about what's on your mind?"
)

const (
	EventTypeSafetyAlert = "SAFETY_ALERT"
	EventTypeRunStatus   = "run_status"
)

const (
	ActivityTypeBreathing  = "breathing"
	ActivityTypeMeditation = "meditation"
	ActivityTypeJournaling = "journaling"
	ActivityTypeExercise   = "exercise"
	ActivityTypeGame       = "game"
	ActivityTypeTherapy    = "therapy"
	ActivityTypeMood       = "mood"
	ActivityTypeOther      = "other"
)

// CounselorSystemPromptV1 opens every reply prompt. Goals, memory and the
// latest assessment are appended as sections by the prompt builder.
const CounselorSystemPromptV1 = `You are a compassionate, supportive counselor having a text conversation.

Guidelines:
- Respond with warmth and without judgement.
- Reflect the user's feelings back before offering suggestions.
- Keep replies to a short paragraph, ask at most one question.
- Never diagnose. If the user may be in danger, encourage contacting local emergency services or a crisis line.`

// AnalysisPromptV1 asks the model for a strict JSON verdict on one message.
const AnalysisPromptV1 = `Analyze the emotional content of the following message from a counseling conversation.

Message: %q

Answer with ONLY a JSON object, no prose, using exactly these keys:
{
  "emotionalState": "single lowercase label, e.g. anxious, sad, calm, angry, hopeful, neutral",
  "themes": ["short topic labels, e.g. work, family, sleep"],
  "riskLevel": integer from 0 (no risk) to 10 (imminent danger to self or others),
  "recommendedApproach": "single lowercase label, e.g. supportive, cbt, mindfulness, crisis-intervention"
}`
