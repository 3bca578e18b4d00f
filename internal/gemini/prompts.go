package gemini

// ReminderPromptTemplate asks the model to rephrase one notification.
// The format string expects 3 parameters: the notification kind, the exact
// task name and the drafted text.
const ReminderPromptTemplate = `Rewrite this %s task reminder for a chat message.

## RULES [CRITICAL]
- Keep the task name exactly as written: %q
- Keep every date exactly as written in the draft
- One or two short sentences, at most one emoji
- Answer with the reminder text only, no quotes and no explanations

Draft:
%s`

// kindDescriptions turns notification kinds into words the model reads better.
var kindDescriptions = map[string]string{
	"past_due": "overdue",
	"upcoming": "upcoming",
}
