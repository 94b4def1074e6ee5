package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/infra/memory"
	"adaptive-quiz-service/internal/questionbank"
)

func TestWebSocketProgressFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rooms := app.NewRoomService(app.RoomServiceConfig{
		Rooms:     memory.NewRoomStore(),
		Questions: app.NewQuestionSource(nil, questionbank.Default()),
	})
	room, err := rooms.CreateRoom(context.Background(), "teacher-1")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	server := httptest.NewServer(NewRouter(Config{Rooms: rooms}))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/rooms/" + room.ID + "?userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the joined snapshot first.
	_, payload := readNext(conn, t, "room")
	var snapshot domain.Room
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if !snapshot.HasParticipant("u1") {
		t.Fatalf("expected u1 to have joined, got %v", snapshot.Participants)
	}
	readNext(conn, t, "leaderboard")

	progress := map[string]any{
		"type": "progress",
		"payload": map[string]any{
			"currentQuestionIndex": 2,
			"score":                75,
		},
	}
	if err := conn.WriteJSON(progress); err != nil {
		t.Fatalf("write progress: %v", err)
	}

	_, payload = readNext(conn, t, "room")
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if got := snapshot.StudentProgress["u1"]; got.Score != 75 || got.CurrentQuestionIndex != 2 {
		t.Fatalf("unexpected progress %+v", got)
	}

	_, payload = readNext(conn, t, "leaderboard")
	var lb domain.Leaderboard
	if err := json.Unmarshal(payload, &lb); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].UserID != "u1" || lb.Entries[0].Score != 75 {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}

	// A change made over REST reaches the socket too.
	if _, err := rooms.EndSession(context.Background(), room.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	_, payload = readNext(conn, t, "room")
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if snapshot.Status != domain.RoomCompleted {
		t.Fatalf("expected completed room, got %s", snapshot.Status)
	}
	readNext(conn, t, "leaderboard")

	if err := conn.WriteJSON(progress); err != nil {
		t.Fatalf("write progress: %v", err)
	}
	readNext(conn, t, "error")
}

func TestWebSocketUnknownRoom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rooms := app.NewRoomService(app.RoomServiceConfig{Rooms: memory.NewRoomStore()})
	server := httptest.NewServer(NewRouter(Config{Rooms: rooms}))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/rooms/424242"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, json.RawMessage) {
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
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
