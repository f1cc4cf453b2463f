package model

// AllModels lists every table for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&ChatSession{},
		&ChatMessage{},
		&SessionMemory{},
		&PipelineRun{},
		&PipelineStep{},
		&MoodEntry{},
		&Activity{},
	}
}
