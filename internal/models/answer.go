package models

// RetrievedDocument is a retrieved chunk reshaped for the chat model.
type RetrievedDocument struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// StructuredAnswer is the JSON object the chat model is instructed to emit.
type StructuredAnswer struct {
	Question         string `json:"question"`
	LanguageQuestion string `json:"language_question"`
	Answer           string `json:"answer"`
	Emojis           string `json:"emojis"`
}

// Text is the answer followed by a space and the emojis.
func (a *StructuredAnswer) Text() string {
	return a.Answer + " " + a.Emojis
}
