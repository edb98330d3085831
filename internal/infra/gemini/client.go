package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"music-quiz-service/internal/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"

	quizMasterInstruction = "You are a music quiz master. Generate engaging quiz content. Respond ONLY in valid JSON, no markdown."
	hostInstruction       = "You are a fun, encouraging music quiz host. Keep responses to 2 sentences max. Be enthusiastic but concise."
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("gemini: empty response")

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	model   string
	apiKey  string
}

func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction content   `json:"systemInstruction"`
	Contents          []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateQuestion asks the model for question text, a hint and a fun fact.
func (c *Client) GenerateQuestion(ctx context.Context, track domain.Track, mode domain.Mode, distractors []string) (domain.QuestionContent, error) {
	text, err := c.generate(ctx, quizMasterInstruction, questionPrompt(track, mode, distractors))
	if err != nil {
		return domain.QuestionContent{}, err
	}
	return ParseContent(text)
}

// React writes the host's short reply to an answer.
func (c *Client) React(ctx context.Context, track domain.Track, correct bool, userAnswer, correctAnswer string) (string, error) {
	var prompt string
	if correct {
		prompt = fmt.Sprintf("The user correctly answered '%s' for %q by %s. Give a brief congrats and one music fact. 2 sentences max.",
			correctAnswer, track.Name, track.Artist)
	} else {
		prompt = fmt.Sprintf("The user guessed '%s' but the answer was '%s' for %q by %s. Encourage them briefly. 2 sentences max.",
			userAnswer, correctAnswer, track.Name, track.Artist)
	}
	text, err := c.generate(ctx, hostInstruction, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func questionPrompt(track domain.Track, mode domain.Mode, distractors []string) string {
	wrong, _ := json.Marshal(distractors)
	if mode.AnswersArtist() {
		return fmt.Sprintf(`Generate an artist quiz question for the song %q by %s.
Wrong artist options: %s.
Return JSON: {"question": "an engaging question about who performs this song", "hint": "a clever clue about the artist without revealing the name", "fun_fact": "an interesting fact about %s"}`,
			track.Name, track.Artist, wrong, track.Artist)
	}
	return fmt.Sprintf(`Generate a genre quiz question for %q by %s.
The correct genre is %q. Wrong options: %s.
Return JSON: {"question": "a fun question asking to identify the genre of this song", "hint": "a subtle hint about the musical style without saying the genre", "fun_fact": "an interesting fact about this song, artist, or genre"}`,
		track.Name, track.Artist, track.Genre, wrong)
}

func (c *Client) generate(ctx context.Context, instruction, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		SystemInstruction: content{Parts: []part{{Text: instruction}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, truncate(string(body), 256))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}
	var sb strings.Builder
	if len(parsed.Candidates) > 0 {
		for _, p := range parsed.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// ParseContent decodes model output into question content, tolerating a markdown code fence.
func ParseContent(text string) (domain.QuestionContent, error) {
	cleaned := stripFence(text)
	var out domain.QuestionContent
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return domain.QuestionContent{}, fmt.Errorf("gemini returned invalid JSON: %w", err)
	}
	return out, nil
}

func stripFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	if i := strings.IndexByte(cleaned, '\n'); i >= 0 {
		cleaned = cleaned[i+1:]
	} else {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
