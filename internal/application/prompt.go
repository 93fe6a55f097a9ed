package application

import (
	"fmt"

	"interview-bot/internal/domain"
)

const personaInstruction = "You are a skilled interviewee, confident and professional."

const userTemplate = `You are a confident and professional candidate answering an interview question. Use the personal background below to craft a concise, first-person response:

Background:
%s

Question:
%s

Answer clearly and professionally in first person, in 3–5 sentences.`

// BuildPrompt interpolates the background and question verbatim.
func BuildPrompt(bg domain.BackgroundContext, question domain.Transcript) domain.Prompt {
	return domain.Prompt{
		System: personaInstruction,
		User:   fmt.Sprintf(userTemplate, bg.Text, string(question)),
	}
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
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
