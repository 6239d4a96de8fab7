package notes

import (
	"fmt"
	"strings"

	"github.com/Nephrolytics-ai/medscribe/internal/types"
	"github.com/Nephrolytics-ai/medscribe/pkg/model"
)

const textCleanerPrompt = `You are an experienced **medical documentation specialist and clinical scribe** trained in converting raw speech-to-text transcriptions into accurate, professional medical notes.

### Your Role
- Act as a **medical transcription editor**, not a medical decision-maker.
- Your job is to **clean, organize, and format** the provided transcription while **preserving every medical fact exactly as stated**.
- Do **NOT** add, remove, infer, diagnose, or assume any medical information.

### Cleaning & Formatting Rules
1. **Fix grammar, spelling, and punctuation**
   - Correct sentence structure while keeping original meaning.
   - Maintain clinical tone.

2. **Remove filler and speech artifacts**
   - Eliminate words such as: *um, uh, er, ah, like, you know, basically, kind of*
   - Remove repeated words and false starts.
   - Remove background speech markers or transcription noise.

3. **Preserve all medical information**
   - Keep symptoms, medications, dosages, durations, measurements, conditions, and clinical observations exactly as stated.
   - Do NOT change medical terminology.
   - Do NOT normalize or standardize values unless explicitly stated.

4. **Do NOT hallucinate or interpret**
   - If something is unclear or incomplete, keep it as-is.
   - Do NOT infer diagnoses, causes, or treatments.
   - Do NOT add medical advice.

5. **Improve readability**
   - Use clear sentences.
   - Maintain logical flow.
   - Keep the language professional and suitable for a medical record.

### Output Requirements
- Return **only the cleaned and formatted text**.
- Do NOT include explanations, notes, headings, or bullet points unless they already exist in the transcription.

---

### Raw Transcription:
%s

### Cleaned Medical Note:`

func buildCleanerPrompt(transcript string) string {
	return fmt.Sprintf(textCleanerPrompt, transcript)
}

const templateInferencePrompt = `You are a medical informatics specialist who designs structured clinical note templates.

Analyze the sample medical document below and derive the note template it follows.

### Instructions
- Identify every distinct field a clinician filled in (headings, labeled values, narrative sections).
- Group fields under the section headings the document uses; if a field has no heading, assign the closest clinical section (e.g. "Patient Information", "Subjective", "Objective", "Assessment & Plan").
- Preserve the order fields appear in the document.
- Use "structured" as the type only for fields that hold a set of labeled sub-values (e.g. vital signs), otherwise "text".
- Keys must be concise snake_case identifiers.

### Output Requirements
Return ONLY a JSON array, no prose. Each element:
{"key": "snake_case_identifier", "label": "Human Readable Label", "description": "what this field captures", "section": "Section Heading", "type": "text" or "structured"}

### Sample Document:
%s

### JSON Array:`

func buildInferencePrompt(document string) string {
	return fmt.Sprintf(templateInferencePrompt, document)
}

const noteGeneratorPrompt = `You are a clinical documentation assistant. Fill the note template below using ONLY information stated in the cleaned transcript.

### Rules
- Use information from the transcript exactly as stated; never invent, infer, or embellish.
- If the transcript does not mention a field, set its value to JSON null. Never write "N/A", "unknown", or an empty string for missing information.
- For fields of type "structured", return a JSON object of sub-values mentioned in the transcript.
- Every key listed in the template MUST appear in the output, and no other keys are allowed.

### Template Fields:
%s

### Cleaned Transcript:
%s

### Output Requirements
Return ONLY a JSON object mapping each template key to its value (or null), no prose.

### JSON Object:`

func buildGenerationPrompt(template types.Template, transcript string) string {
	var fields strings.Builder
	for _, field := range template.Fields {
		line := fmt.Sprintf("- %s (%s, section %q)", field.Key, field.ValueType, field.Section)
		if field.Description != "" {
			line += ": " + field.Description
		}
		fields.WriteString(line)
		fields.WriteString("\n")
	}
	return fmt.Sprintf(noteGeneratorPrompt, fields.String(), transcript)
}

const repairPrompt = `The following text was supposed to be a single valid JSON value but failed to parse.

Return ONLY the corrected JSON value, with no prose, no code fences, and no explanation. Preserve all data; fix only the syntax.

### Invalid Output:
%s

### Corrected JSON:`

func buildRepairPrompt(raw string) string {
	return fmt.Sprintf(repairPrompt, raw)
}

// generationSchema builds the JSON schema sent to structured-output capable
// models: one property per template key, additionalProperties disabled so
// extras are rejected at the model side too.
func generationSchema(template types.Template) map[string]any {
	properties := make(map[string]any, len(template.Fields))
	required := make([]string, 0, len(template.Fields))
	for _, field := range template.Fields {
		description := field.Description
		if description == "" {
			description = field.Label
		}
		var valueSchema map[string]any
		if field.ValueType == types.ValueStructured {
			valueSchema = map[string]any{
				"type":        []string{"object", "null"},
				"description": description,
			}
		} else {
			valueSchema = map[string]any{
				"type":        []string{"string", "null"},
				"description": description,
			}
		}
		properties[field.Key] = valueSchema
		required = append(required, field.Key)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// inferenceSchema constrains template inference output to an array of field
// definition objects, reflected from the decoding struct so the schema and
// the parser cannot drift apart.
func inferenceSchema() map[string]any {
	schema, err := model.JSONSchemaFor[[]inferredField]()
	if err != nil {
		return map[string]any{"type": "array"}
	}
	return schema
}
