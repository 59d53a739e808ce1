// Package assist suggests display titles for untitled artifacts using
// the Gemini API.
//
// The suggester is strictly optional: the pipeline treats any failure
// here as "keep the placeholder". Nothing in the core depends on this
// package beyond the pipeline.Namer interface it satisfies.
package assist

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/koopa0/artivault/internal/artifact"
)

// maxContentSample bounds how much artifact content is sent to the
// model per suggestion.
const maxContentSample = 2000

const prompt = "Propose a short filesystem-friendly title (2-4 words, " +
	"no punctuation) for the following %s artifact. Reply with the " +
	"title only.\n\n%s"

// Suggester names artifacts via the Gemini API. Implements
// pipeline.Namer.
type Suggester struct {
	client *genai.Client
	model  string
}

// NewSuggester creates a Suggester. The API key is read from
// GEMINI_API_KEY by the client.
func NewSuggester(ctx context.Context, model string) (*Suggester, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Suggester{client: client, model: model}, nil
}

// SuggestTitle asks the model for a title based on a content sample.
// The returned title is sanitizer-friendly but not guaranteed unique;
// uniqueness remains the resolver's job.
func (s *Suggester) SuggestTitle(ctx context.Context, a artifact.Artifact) (string, error) {
	sample := a.Content
	if len(sample) > maxContentSample {
		sample = sample[:maxContentSample]
	}

	contents := []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(prompt, a.Type, sample), genai.RoleUser),
	}

	result, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generating title: %w", err)
	}

	title := strings.TrimSpace(result.Text())
	// Models occasionally return multi-line answers; the first line is
	// the title.
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if title == "" {
		return "", fmt.Errorf("model returned empty title")
	}
	return title, nil
}
