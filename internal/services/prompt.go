package services

import (
	"fmt"
	"strings"

	"learnpath/interview-api/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildQuestionPrompt creates prompt for interview question generation
func (pb *PromptBuilder) BuildQuestionPrompt(course *models.Course, minQuestions, maxQuestions int) string {
	return fmt.Sprintf(`You are a senior technical interviewer preparing a course completion interview.

COURSE TITLE: %s
COURSE DESCRIPTION: %s
LEARNING OBJECTIVES: %s
TECHNOLOGIES: %s

COURSE MODULES DETAILS:
%s

Generate between %d and %d technical interview questions that:
1. Test practical understanding of course concepts
2. Cover all main modules and lessons
3. Mix theoretical and practical aspects
4. Focus on key technologies mentioned in resources

Return a JSON object of the form {"questions": ["Question 1", "Question 2", ...]}.`,
		course.Title,
		course.Description,
		strings.Join(course.Objectives, ", "),
		strings.Join(course.TechStack, ", "),
		FormatModules(course.Modules),
		minQuestions, maxQuestions)
}

// BuildAssessmentPrompt creates prompt for transcript scoring
func (pb *PromptBuilder) BuildAssessmentPrompt(transcript string, courseTitle string, courseContext string) string {
	return fmt.Sprintf(`You are a senior technical interviewer analyzing course completion interviews.
Be objective but constructive in feedback. Consider the course curriculum and expected competency levels.

COURSE: %s

RELEVANT COURSE MATERIAL:
%s

TRANSCRIPT:
%s

Score the candidate from 0 to 100 overall and in each category:
- communication: clarity and structure of answers
- technical: technical accuracy based on course content
- problemSolving: approach to implementation questions
- culturalFit: collaboration and learning mindset
- confidence: consistency and ownership of answers

Return a JSON object with exactly these fields:
{
  "totalScore": <0-100>,
  "categoryScores": {"communication": <0-100>, "technical": <0-100>, "problemSolving": <0-100>, "culturalFit": <0-100>, "confidence": <0-100>},
  "strengths": ["..."],
  "areasForImprovement": ["..."],
  "finalAssessment": "<3-5 sentences>"
}`,
		courseTitle, courseContext, transcript)
}

// BuildRetrievalQuery creates query for RAG retrieval
func (pb *PromptBuilder) BuildRetrievalQuery(courseTitle, transcript string) string {
	// the candidate's answers carry the topics worth grounding on
	const maxQueryChars = 2000
	if len(transcript) > maxQueryChars {
		transcript = transcript[:maxQueryChars]
	}
	return fmt.Sprintf("Key concepts from %s discussed in: %s", courseTitle, transcript)
}

func FormatModules(modules []models.Module) string {
	var parts []string
	for _, m := range modules {
		var b strings.Builder
		fmt.Fprintf(&b, "Module: %q\nLessons:", m.Title)
		for _, l := range m.Lessons {
			titles := make([]string, 0, len(l.Resources))
			for _, r := range l.Resources {
				titles = append(titles, r.Title)
			}
			fmt.Fprintf(&b, "\n- %q: %s", l.Title, l.Description)
			if len(titles) > 0 {
				fmt.Fprintf(&b, "\n  Key Topics: %s", strings.Join(titles, ", "))
			}
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// Helper to clean and format context from RAG results
func FormatRAGContext(results []SearchResult) string {
	if len(results) == 0 {
		return "No relevant context found."
	}

	var parts []string
	for i, result := range results {
		parts = append(parts, fmt.Sprintf("--- Context %d (Score: %.2f) ---\n%s",
			i+1, result.Score, strings.TrimSpace(result.Text)))
	}

	return strings.Join(parts, "\n\n")
}
