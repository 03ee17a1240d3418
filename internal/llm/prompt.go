package llm

import (
	"fmt"
	"strings"
)

// Hard caps applied while building prompts. Keeping these fixed bounds the
// prompt size without making truncation a tuning knob.
const (
	summarizerPageCap = 4000
)

const linkedinInstruction = `Rewrite this as a casual, conversational LinkedIn message.
- Keep it short and natural (2-3 sentences max)
- Use a friendly, networking tone (not formal business)
- NO greetings like "Dear" or closings like "Best regards, Sincerely"
- Just write the message content itself
- If you know the recipient's name from context, use it naturally`

const gmailInstruction = `Rewrite this as a polite, professional email.
- Keep it concise and clear
- Maintain a warm but professional tone
- NO stiff closings like "Sincerely" or "Best regards"
- Just write the message content itself
- If you know the recipient's name from context, use it naturally`

const genericInstruction = "Rewrite this message to be clear and natural."

// Placeholder recipients injected by the extension when it cannot resolve a
// real name. They carry no signal, so prompts omit them.
var placeholderRecipients = map[string]struct{}{
	"LinkedIn Contact": {},
	"Email Recipient":  {},
}

// BuildRewritePrompt assembles the message-rewrite prompt: a platform
// instruction block, an optional recipient line, an optional prior-context
// block and the user's draft, ending with an output-only directive.
func BuildRewritePrompt(userInput, context, platform, recipient string) string {
	var instruction string
	switch platform {
	case "linkedin":
		instruction = linkedinInstruction
	case "gmail":
		instruction = gmailInstruction
	default:
		instruction = genericInstruction
	}

	recipientInfo := ""
	if r := strings.TrimSpace(recipient); r != "" {
		if _, placeholder := placeholderRecipients[recipient]; !placeholder {
			recipientInfo = fmt.Sprintf("\nRecipient: %s", recipient)
		}
	}

	contextSection := ""
	if strings.TrimSpace(context) != "" {
		contextSection = fmt.Sprintf("\nPrevious conversation context:\n%s\n", context)
	}

	return fmt.Sprintf(`%s%s%s

User's draft:
%s

Rewritten message (ONLY the message content, no extra notes or suggestions):`,
		instruction, recipientInfo, contextSection, userInput)
}

const chatPreamble = `You are a highly personalized AI assistant. Your primary goal is to learn about the user and provide increasingly personalized help over time.

MEMORY MANAGEMENT:
1. When users share personal information, preferences, or context, immediately store it
2. Before responding to requests, search for relevant context about the user
3. Use past conversations to inform current responses
4. Remember user's communication style, preferences, and frequently discussed topics

PERSONALITY:
- Adapt your communication style to match the user's preferences
- Reference past conversations naturally when relevant
- Proactively offer help based on learned patterns
- Be genuinely helpful while respecting privacy
`

// BuildChatPrompt assembles the knowledge-graph chat prompt. The snippets
// section is always present; it renders "(none)" when nothing is known.
func BuildChatPrompt(question, knowledgeContext string) string {
	var b strings.Builder
	b.WriteString(chatPreamble)
	if knowledgeContext != "" {
		fmt.Fprintf(&b, "Knowledge graph snippets:\n%s\n\n", knowledgeContext)
	} else {
		b.WriteString("Knowledge graph snippets: (none)\n\n")
	}
	fmt.Fprintf(&b, "User question: %s\n\nAnswer:", question)
	return b.String()
}

// BuildSummarizerPrompt assembles the page Q&A prompt from the captured page
// content (first 4000 characters), a fixed guideline block and optional chat
// history.
func BuildSummarizerPrompt(question, pageContent, pageTitle, chatHistory string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are analyzing the webpage: %q

Your task is to answer questions about this specific page using ONLY the content provided below.

Page Content:
%s

Guidelines:
- If asked to "summarize", provide a clear, concise overview of the main points
- If asked a specific question, extract and explain the relevant information
- Use bullet points for clarity when appropriate
- Be accurate and stick to what's in the content
- If the answer isn't in the page, clearly state that
- Keep responses focused and relevant
`, pageTitle, truncate(pageContent, summarizerPageCap))

	if chatHistory != "" {
		fmt.Fprintf(&b, "\n\nPrevious conversation:\n%s\n", chatHistory)
	}
	fmt.Fprintf(&b, "\n\nUser's Question: %s\n\nYour Response:", question)
	return b.String()
}

// BuildProfilePrompt asks for a JSON-only structured extraction of a contact
// from the composed profile text.
func BuildProfilePrompt(combinedText string) string {
	return fmt.Sprintf(`Extract structured information about a professional contact from the text below. Return ONLY valid JSON following this schema:
{
  "name": string,
  "headline": string,
  "summary": string,
  "location": string,
  "company": string,
  "title": string,
  "experiences": [
    {"role": string, "company": string, "start_date": string, "end_date": string, "location": string, "description": string}
  ],
  "education": [
    {"school": string, "degree": string, "field": string, "start_date": string, "end_date": string}
  ],
  "skills": [string]
}
If a field is unknown, use an empty string or empty array. Do not include additional commentary.

Text:
%s

JSON:`, combinedText)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
