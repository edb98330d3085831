package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketPlaysSession(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1", "Alice")

	resp, body := env.do(t, http.MethodPost, "/api/quiz/start", tok, map[string]any{"mode": "artist", "difficulty": "hard"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start quiz: %d %s", resp.StatusCode, body)
	}
	var started struct {
		ID             string `json:"sessionId"`
		TotalQuestions int    `json:"totalQuestions"`
	}
	if err := json.Unmarshal(body, &started); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?sessionId=" + started.ID + "&token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The current session is pushed first.
	_, payload := readNext(t, conn, "session")
	if !strings.Contains(string(payload), started.ID) || strings.Contains(string(payload), "correctAnswer") {
		t.Fatalf("unexpected session payload: %s", payload)
	}

	// An out-of-order answer is rejected without closing the socket.
	sendAnswer(t, conn, 3, "nobody")
	_, payload = readNext(t, conn, "error")
	if !strings.Contains(string(payload), "400") {
		t.Fatalf("expected 400 error, got %s", payload)
	}

	for i := 0; i < started.TotalQuestions; i++ {
		sendAnswer(t, conn, i, env.correctAnswer(t, started.ID, "u1", i))
		_, payload = readNext(t, conn, "answerResult")
		var outcome struct {
			IsCorrect      bool `json:"isCorrect"`
			TotalScore     int  `json:"totalScore"`
			IsLastQuestion bool `json:"isLastQuestion"`
		}
		if err := json.Unmarshal(payload, &outcome); err != nil {
			t.Fatalf("decode outcome: %v", err)
		}
		if !outcome.IsCorrect || outcome.TotalScore != (i+1)*30 {
			t.Fatalf("question %d: unexpected outcome %+v", i, outcome)
		}
	}

	_, payload = readNext(t, conn, "leaderboard")
	if !strings.Contains(string(payload), `"rank":1`) {
		t.Fatalf("expected ranked leaderboard, got %s", payload)
	}
}

func TestWebSocketRequiresOwnedSession(t *testing.T) {
	env := newTestEnv(t)
	base := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?sessionId=missing", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got err=%v resp=%v", err, resp)
	}

	tok := env.token(t, "u1", "Alice")
	_, resp, err = websocket.DefaultDialer.Dial(base+"?sessionId=missing&token="+tok, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got err=%v resp=%v", err, resp)
	}
}

func sendAnswer(t *testing.T, conn *websocket.Conn, index int, answer string) {
	t.Helper()
	msg := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionIndex": index,
			"answer":        answer,
		},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write answer: %v", err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s: %s", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}
