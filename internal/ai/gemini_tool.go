package ai

import "google.golang.org/genai"

// analysisPrompt instructs the model to diarize the staged recording and
// populate the extraction tool. Field semantics mirror the tool schema:
// unknown values are empty strings, never null or omitted.
const analysisPrompt = `You are given a meeting recording.
Produce a diarized transcript as an array of segments, each with:

- speaker: the speaker's name, or "Unknown" if not identifiable.
- timestamp: the segment start time in "HH:MM:SS" format, or an empty string.
- text: the spoken text for that segment.

Split segments whenever the speaker changes.

In addition to the transcript, provide:
- A concise summary of the main topics discussed.
- A list of key discussion points or highlights.
- A list of actionable tasks with assignee, deadline and status;
  use an empty string for any field that is not mentioned.`

// analysisTool is the JSON-schema-constrained function the model must
// populate. Mode ANY forces a function call in the response.
var analysisTool = &genai.FunctionDeclaration{
	Name:        "store_meeting_analysis",
	Description: "Store the diarized transcript, summary, key highlights and action items extracted from a meeting recording.",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"transcript": {
				Type:        genai.TypeArray,
				Description: "Diarized transcript segments in order of occurrence.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"speaker":   {Type: genai.TypeString, Description: "Speaker name or 'Unknown'."},
						"timestamp": {Type: genai.TypeString, Description: "Segment start time in HH:MM:SS."},
						"text":      {Type: genai.TypeString, Description: "Spoken text for this segment."},
					},
					Required: []string{"speaker", "timestamp", "text"},
				},
			},
			"summary": {
				Type:        genai.TypeString,
				Description: "Concise summary of the main topics discussed.",
			},
			"keyHighlights": {
				Type:        genai.TypeArray,
				Description: "Key discussion points or highlights.",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
			"actionItems": {
				Type:        genai.TypeArray,
				Description: "Actionable tasks discussed in the meeting.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"task":     {Type: genai.TypeString, Description: "Description of the task."},
						"assignee": {Type: genai.TypeString, Description: "Person responsible, or empty string."},
						"deadline": {Type: genai.TypeString, Description: "Deadline if mentioned, otherwise empty string."},
						"status":   {Type: genai.TypeString, Description: "Task status, or empty string."},
					},
					Required: []string{"task", "assignee", "deadline", "status"},
				},
			},
		},
		Required: []string{"transcript", "summary", "keyHighlights", "actionItems"},
	},
}
