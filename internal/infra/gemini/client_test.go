package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music-quiz-service/internal/domain"
)

var track = domain.Track{ID: "t1", Name: "Take Five", Artist: "Dave Brubeck", Genre: "jazz"}

func TestParseContentStripsFence(t *testing.T) {
	cases := map[string]string{
		"plain":       `{"question":"Q?","hint":"H","fun_fact":"F"}`,
		"fenced json": "```json\n{\"question\":\"Q?\",\"hint\":\"H\",\"fun_fact\":\"F\"}\n```",
		"bare fence":  "```\n{\"question\":\"Q?\",\"hint\":\"H\",\"fun_fact\":\"F\"}```",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseContent(input)
			require.NoError(t, err)
			assert.Equal(t, domain.QuestionContent{Question: "Q?", Hint: "H", FunFact: "F"}, got)
		})
	}

	_, err := ParseContent("Sure! Here is your question.")
	assert.Error(t, err)
}

func TestGenerateQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		assert.Contains(t, req.SystemInstruction.Parts[0].Text, "music quiz master")
		prompt := req.Contents[0].Parts[0].Text
		assert.Contains(t, prompt, `"Take Five"`)
		assert.Contains(t, prompt, `["rock","metal"]`)

		reply := "```json\n{\"question\":\"Which style swings in 5/4?\",\"hint\":\"Odd meter\",\"fun_fact\":\"Recorded in 1959.\"}\n```"
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, reply)
	}))
	defer srv.Close()

	client := NewClient("key-1", srv.URL, "test-model", time.Second)
	got, err := client.GenerateQuestion(context.Background(), track, domain.ModeGenre, []string{"rock", "metal"})
	require.NoError(t, err)
	assert.Equal(t, "Which style swings in 5/4?", got.Question)
	assert.Equal(t, "Recorded in 1959.", got.FunFact)
}

func TestReactAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := req.Contents[0].Parts[0].Text
		switch {
		case strings.Contains(prompt, "correctly answered"):
			fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"  Great ear! "}]}}]}`)
		case strings.Contains(prompt, "guessed 'empty'"):
			fmt.Fprint(w, `{"candidates":[]}`)
		default:
			http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	client := NewClient("k", srv.URL, "", time.Second)

	reply, err := client.React(context.Background(), track, true, "jazz", "jazz")
	require.NoError(t, err)
	assert.Equal(t, "Great ear!", reply)

	_, err = client.React(context.Background(), track, false, "empty", "jazz")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = client.React(context.Background(), track, false, "rock", "jazz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
