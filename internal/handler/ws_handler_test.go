package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/testcenter/internal/middleware"
	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/response"
	"github.com/stemsi/testcenter/internal/service"
	"github.com/stemsi/testcenter/internal/session"
	ws "github.com/stemsi/testcenter/internal/websocket"
)

// wsReply covers every server event shape the stream sends.
type wsReply struct {
	Event      ws.Event                `json:"event"`
	Action     ws.Action               `json:"action"`
	Code       string                  `json:"code"`
	Error      string                  `json:"error"`
	Snapshot   *session.Snapshot       `json:"snapshot"`
	Result     *model.SubmissionResult `json:"result"`
	ScoreLabel string                  `json:"score_label"`
}

func dialSessionStream(t *testing.T) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api := &stubAPI{}
	svc := service.NewTestCenterService(nil, nil, nil, service.Options{TickInterval: time.Hour}, zerolog.Nop())
	t.Cleanup(svc.Shutdown)

	cand := service.Candidate{Key: "cand-1", API: api}
	if _, err := svc.Start(context.Background(), cand, "7"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	h := NewWSHandler(svc, nil, zerolog.Nop(), nil)
	r := gin.New()
	r.GET("/ws/v1/candidate/session/stream", middleware.RequireCandidate(func(token string) service.Candidate {
		return service.Candidate{Key: token, API: api}
	}), h.SessionStream)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/candidate/session/stream?token=cand-1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	first := readReply(t, conn)
	if first.Event != ws.EventState || first.Snapshot == nil || first.Snapshot.TotalQuestions != 2 {
		t.Fatalf("initial reply = %+v", first)
	}
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) wsReply {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply wsReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return reply
}

func send(t *testing.T, conn *websocket.Conn, payload string) wsReply {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	return readReply(t, conn)
}

func TestSessionStreamActions(t *testing.T) {
	conn := dialSessionStream(t)

	reply := send(t, conn, `{"action":"answer","question_id":"Q1","option_index":1}`)
	if reply.Event != ws.EventState || reply.Action != ws.ActionAnswer {
		t.Fatalf("answer reply = %+v", reply)
	}
	if got := reply.Snapshot.Answers["Q1"]; got != 1 {
		t.Errorf("answers = %v, want Q1=1", reply.Snapshot.Answers)
	}

	reply = send(t, conn, `{"action":"answer","question_id":"Q2"}`)
	if reply.Event != ws.EventError || reply.Code != string(response.ErrValidation) {
		t.Errorf("answer without option_index reply = %+v", reply)
	}

	reply = send(t, conn, `{"action":"answer","question_id":"Q2","option_index":5}`)
	if reply.Event != ws.EventError || reply.Code != string(response.ErrInvalidAnswer) {
		t.Errorf("out of range answer reply = %+v", reply)
	}

	reply = send(t, conn, `{"action":"dance"}`)
	if reply.Event != ws.EventError || reply.Code != string(response.ErrInvalidPayload) {
		t.Errorf("unknown action reply = %+v", reply)
	}

	reply = send(t, conn, `{"action":"ping"}`)
	if reply.Event != ws.EventPong {
		t.Errorf("ping reply = %+v", reply)
	}

	reply = send(t, conn, `{"action":"next"}`)
	if reply.Event != ws.EventState || reply.Snapshot.CurrentIndex != 1 {
		t.Errorf("next reply = %+v", reply)
	}

	reply = send(t, conn, `{"action":"goto"}`)
	if reply.Event != ws.EventError || reply.Code != string(response.ErrValidation) {
		t.Errorf("goto without index reply = %+v", reply)
	}

	reply = send(t, conn, `{"action":"pause"}`)
	if reply.Event != ws.EventState || !reply.Snapshot.State.Paused {
		t.Errorf("pause reply = %+v", reply)
	}
	reply = send(t, conn, `{"action":"previous"}`)
	if reply.Event != ws.EventError || reply.Code != string(response.ErrSessionPaused) {
		t.Errorf("navigate while paused reply = %+v", reply)
	}
	reply = send(t, conn, `{"action":"resume"}`)
	if reply.Event != ws.EventState || reply.Snapshot.State.Paused {
		t.Errorf("resume reply = %+v", reply)
	}

	reply = send(t, conn, `{"action":"submit"}`)
	if reply.Event != ws.EventSubmitted {
		t.Fatalf("submit reply = %+v", reply)
	}
	if reply.ScoreLabel != "50%" || reply.Result == nil || !reply.Result.Success {
		t.Errorf("submit result = %+v, score_label %q", reply.Result, reply.ScoreLabel)
	}
	if reply.Snapshot == nil || reply.Snapshot.State.Kind != session.KindCompleted {
		t.Errorf("snapshot after submit = %+v", reply.Snapshot)
	}

	reply = send(t, conn, `{"action":"submit"}`)
	if reply.Event != ws.EventError || reply.Code != string(response.ErrSessionNotActive) {
		t.Errorf("second submit reply = %+v", reply)
	}
}

func TestSessionStreamRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewTestCenterService(nil, nil, nil, service.Options{TickInterval: time.Hour}, zerolog.Nop())
	t.Cleanup(svc.Shutdown)

	h := NewWSHandler(svc, nil, zerolog.Nop(), nil)
	r := gin.New()
	r.GET("/stream", middleware.RequireCandidate(func(token string) service.Candidate {
		return service.Candidate{Key: token, API: &stubAPI{}}
	}), h.SessionStream)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/stream", nil)
	if err == nil {
		t.Fatal("dial without token succeeded")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Errorf("response = %v, want 401", resp)
	}
}
