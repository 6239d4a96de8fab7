// Package notes turns raw clinical text into structured notes: it infers
// templates from sample documents, extracts field values from cleaned
// transcripts, and cleans raw transcription output.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Nephrolytics-ai/medscribe/internal/types"
	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
	"github.com/Nephrolytics-ai/medscribe/pkg/model"
	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
)

// minDocumentLength guards template inference against inputs too short to
// carry any template structure.
const minDocumentLength = 50

// ErrDocumentTooShort is returned when a sample document is too short to
// infer a template from.
var ErrDocumentTooShort = fmt.Errorf("sample document must be at least %d characters", minDocumentLength)

// Invoker is the slice of the fallback controller the engine needs.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, shape model.ResponseShape) (string, []model.CallAttempt, error)
}

type Engine struct {
	invoker       Invoker
	repairInvoker Invoker
}

type EngineOption interface {
	apply(*Engine)
}

type engineOptionFunc func(*Engine)

func (f engineOptionFunc) apply(e *Engine) {
	f(e)
}

// WithRepairInvoker routes repair calls through a different chain than the
// one that produced the malformed output, e.g. one starting at a stronger
// model. By default repairs re-enter the primary chain.
func WithRepairInvoker(invoker Invoker) EngineOption {
	return engineOptionFunc(func(e *Engine) {
		e.repairInvoker = invoker
	})
}

func NewEngine(invoker Invoker, opts ...EngineOption) *Engine {
	engine := &Engine{invoker: invoker, repairInvoker: invoker}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(engine)
		}
	}
	return engine
}

// CleanTranscript rewrites raw speech-to-text output into readable clinical
// prose without altering any medical fact.
func (e *Engine) CleanTranscript(ctx context.Context, transcript string) (string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", utils.WrapIfNotNil(errors.New("transcript is empty"))
	}

	output, _, err := e.invoker.Invoke(ctx, buildCleanerPrompt(transcript), model.ShapeText())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// InferTemplate derives an ordered field list from a sample document.
func (e *Engine) InferTemplate(ctx context.Context, name, document string) (types.Template, error) {
	log := logging.NewLogger(ctx)
	document = strings.TrimSpace(document)
	if len(document) < minDocumentLength {
		return types.Template{}, ErrDocumentTooShort
	}

	prompt := buildInferencePrompt(document)
	raw, _, err := e.invoker.Invoke(ctx, prompt, model.ShapeJSON(inferenceSchema()))
	if err != nil {
		return types.Template{}, err
	}

	var defs []inferredField
	if err := e.decodeJSON(ctx, "template inference", raw, &defs); err != nil {
		return types.Template{}, err
	}
	if len(defs) == 0 {
		return types.Template{}, &ParseError{Stage: "template inference", Raw: raw, Err: errors.New("no fields returned")}
	}

	fields := make([]types.FieldDefinition, 0, len(defs))
	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		key := normalizeKey(def.Key)
		if key == "" {
			key = normalizeKey(def.Label)
		}
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			log.Warnf("notes: dropping duplicate inferred field %q", key)
			continue
		}
		seen[key] = struct{}{}

		valueType := types.ValueText
		if def.Type == string(types.ValueStructured) {
			valueType = types.ValueStructured
		}
		label := strings.TrimSpace(def.Label)
		if label == "" {
			label = titleCase(key)
		}
		section := strings.TrimSpace(def.Section)
		if section == "" {
			section = "General"
		}
		fields = append(fields, types.FieldDefinition{
			Key:         key,
			Label:       label,
			Description: strings.TrimSpace(def.Description),
			Section:     section,
			ValueType:   valueType,
			Ordinal:     len(fields),
		})
	}
	if len(fields) == 0 {
		return types.Template{}, &ParseError{Stage: "template inference", Raw: raw, Err: errors.New("no usable fields after normalization")}
	}

	log.Infof("notes: inferred template %q with %d fields", name, len(fields))
	return types.Template{Name: name, Fields: fields}, nil
}

// GenerateNote extracts the template's field values from a cleaned
// transcript. The returned map contains exactly the template's keys: values
// for keys the model omitted are nil, keys the model invented are dropped.
func (e *Engine) GenerateNote(ctx context.Context, template types.Template, transcript string) (types.FieldValues, error) {
	log := logging.NewLogger(ctx)
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, utils.WrapIfNotNil(errors.New("transcript is empty"))
	}
	if len(template.Fields) == 0 {
		return nil, utils.WrapIfNotNil(fmt.Errorf("template %q has no fields", template.Name))
	}

	prompt := buildGenerationPrompt(template, transcript)
	raw, _, err := e.invoker.Invoke(ctx, prompt, model.ShapeJSON(generationSchema(template)))
	if err != nil {
		return nil, err
	}

	var extracted map[string]any
	if err := e.decodeJSON(ctx, "note generation", raw, &extracted); err != nil {
		return nil, err
	}

	values := make(types.FieldValues, len(template.Fields))
	for _, field := range template.Fields {
		value, ok := extracted[field.Key]
		if !ok {
			log.Warnf("notes: model omitted field %q, recording as not documented", field.Key)
			values[field.Key] = nil
			continue
		}
		values[field.Key] = value
	}
	for key := range extracted {
		if _, ok := values[key]; !ok {
			log.Warnf("notes: dropping field %q not present in template %q", key, template.Name)
		}
	}
	return values, nil
}

type inferredField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Section     string `json:"section"`
	Type        string `json:"type" jsonschema:"enum=text,enum=structured"`
}

// decodeJSON parses model output into out, carving the JSON payload out of
// any surrounding prose. If parsing still fails it asks the chain once to
// repair the output before giving up.
func (e *Engine) decodeJSON(ctx context.Context, stage, raw string, out any) error {
	log := logging.NewLogger(ctx)

	firstErr := unmarshalCarved(raw, out)
	if firstErr == nil {
		return nil
	}

	log.Warnf("notes: %s output failed to parse (%v), attempting repair", stage, firstErr)
	repaired, _, err := e.repairInvoker.Invoke(ctx, buildRepairPrompt(raw), model.ShapeText())
	if err != nil {
		return &ParseError{Stage: stage, Raw: raw, Err: firstErr}
	}
	if err := unmarshalCarved(repaired, out); err != nil {
		return &ParseError{Stage: stage, Raw: raw, Err: err}
	}
	return nil
}

func unmarshalCarved(raw string, out any) error {
	candidate := stripFences(raw)
	if err := json.Unmarshal([]byte(candidate), out); err == nil {
		return nil
	}
	carved, ok := carveJSON(candidate)
	if !ok {
		return errors.New("no JSON object or array found in output")
	}
	return json.Unmarshal([]byte(carved), out)
}

var nonKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeKey lowercases and converts arbitrary labels to snake_case.
func normalizeKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = nonKeyChars.ReplaceAllString(key, "_")
	return strings.Trim(key, "_")
}

func titleCase(key string) string {
	words := strings.Split(key, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		first, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(first)) + word[size:]
	}
	return strings.Join(words, " ")
}
