package wordgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/aaronzipp/imposter/internal/models"
)

// Fallback is used whenever generation fails
var Fallback = models.WordPair{Target: "Sun", Decoy: "Moon"}

// ErrEmptyPair is returned when the model answers without a usable pair
var ErrEmptyPair = errors.New("generator returned an empty word pair")

// Generator produces a related target/decoy pair, optionally for a theme
type Generator interface {
	Generate(ctx context.Context, theme string) (models.WordPair, error)
}

// contentGenerator is the part of the genai client the generator calls
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for a word pair as structured JSON
type Gemini struct {
	models contentGenerator
	model  string
}

// NewGemini creates a client for the Gemini API
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{models: client.Models, model: model}, nil
}

var pairSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"target": {Type: genai.TypeString, Description: "The main word for most players"},
		"decoy":  {Type: genai.TypeString, Description: "The similar word for the imposter"},
	},
	Required: []string{"target", "decoy"},
}

func prompt(theme string) string {
	if theme != "" {
		return fmt.Sprintf("Generate a target word and a decoy word for a social deduction game based on the theme: %q. The words should be closely related but distinct.", theme)
	}
	return "Generate a target word and a decoy word for a social deduction game. Pick a random interesting theme. The words should be closely related but distinct."
}

func (g *Gemini) Generate(ctx context.Context, theme string) (models.WordPair, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt(theme)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   pairSchema,
	})
	if err != nil {
		return models.WordPair{}, err
	}

	var pair models.WordPair
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Text())), &pair); err != nil {
		return models.WordPair{}, fmt.Errorf("decode word pair: %w", err)
	}
	pair.Target = strings.TrimSpace(pair.Target)
	pair.Decoy = strings.TrimSpace(pair.Decoy)
	if pair.Target == "" {
		return models.WordPair{}, ErrEmptyPair
	}
	return pair, nil
}

// WithFallback never fails: it substitutes Fallback for any generator error.
// A nil generator always yields Fallback.
type WithFallback struct {
	Gen Generator
	Log *slog.Logger
}

func (w WithFallback) Pair(ctx context.Context, theme string) models.WordPair {
	if w.Gen == nil {
		return Fallback
	}
	pair, err := w.Gen.Generate(ctx, theme)
	if err != nil {
		w.Log.Warn("word pair generation failed, using fallback", "theme", theme, "error", err)
		return Fallback
	}
	return pair
}
