package models

// Flashcard is a single question/answer card generated from study materials
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuizQuestion is a multiple-choice question generated from study materials
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// GeneratedContent is the study content produced for a session's materials.
// It is stored per review stage so a review re-serves the same content.
type GeneratedContent struct {
	Flashcards    []Flashcard    `json:"flashcards"`
	QuizQuestions []QuizQuestion `json:"quiz_questions"`
	Summary       string         `json:"summary"`
}
