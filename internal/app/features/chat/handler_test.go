package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/youlead/internal/app/features/chat"
	"github.com/dalemusser/youlead/internal/app/features/projects"
	"github.com/dalemusser/youlead/internal/app/features/tasks"
	"github.com/dalemusser/youlead/internal/app/features/teams"
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/app/system/presence"
	"github.com/dalemusser/youlead/internal/app/system/realtime"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type env struct {
	db      *mongo.Database
	h       *chat.Handler
	hub     *realtime.Hub
	leader  models.User
	member  models.User
	outside models.User
	project models.Project
	task    models.Task
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	leader := fx.CreateLeader(ctx, "Lead", "lead@example.com")
	team := fx.CreateTeam(ctx, "Rockets", &leader)
	member := fx.CreateMember(ctx, "Ann", "ann@example.com")
	outside := fx.CreateMember(ctx, "Olga", "olga@example.com")
	fx.JoinTeam(ctx, &member, team.ID)
	fx.JoinTeam(ctx, &outside, team.ID)
	project := fx.CreateProject(ctx, "Launch", leader, member.ID)
	task := fx.CreateTask(ctx, "Write copy", project, member.ID)

	hub := realtime.NewHub(presence.NewMemory(), zap.NewNop())
	t.Cleanup(hub.Close)
	return env{
		db:  db,
		h:   chat.NewHandler(db, hub, zap.NewNop()),
		hub: hub, leader: leader, member: member, outside: outside,
		project: project, task: task,
	}
}

func call(t *testing.T, fn http.HandlerFunc, method, target string, body any, u models.User, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, target, body, u)
	if len(params) > 0 {
		req = testutil.WithChiURLParams(req, params...)
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func (e env) send(t *testing.T, u models.User, roomType, roomID, content string) *httptest.ResponseRecorder {
	t.Helper()
	return call(t, e.h.HandleSend, http.MethodPost, "/api/chat/messages", map[string]string{
		"roomType": roomType, "roomId": roomID, "content": content,
	}, u)
}

func messageID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	data, _ := testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	id, _ := data["id"].(string)
	if id == "" {
		t.Fatalf("no message id in %s", rec.Body.String())
	}
	return id
}

func TestSend_RoomAccess(t *testing.T) {
	e := setup(t)
	p, tk := e.project.ID.Hex(), e.task.ID.Hex()

	tests := []struct {
		name     string
		user     models.User
		roomType string
		roomID   string
		want     int
	}{
		{"project member", e.member, models.RoomProject, p, http.StatusCreated},
		{"project creator", e.leader, models.RoomProject, p, http.StatusCreated},
		{"project outsider", e.outside, models.RoomProject, p, http.StatusForbidden},
		{"task assignee", e.member, models.RoomTask, tk, http.StatusCreated},
		{"task creator", e.leader, models.RoomTask, tk, http.StatusCreated},
		{"task outsider", e.outside, models.RoomTask, tk, http.StatusForbidden},
		{"bad room type", e.member, "team", p, http.StatusBadRequest},
		{"bad room id", e.member, models.RoomProject, "nope", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.send(t, tc.user, tc.roomType, tc.roomID, "hello")
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSend_Content(t *testing.T) {
	e := setup(t)
	p := e.project.ID.Hex()

	rec := e.send(t, e.member, models.RoomProject, p, `<script>alert(1)</script><b>hi</b>`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	data, _ := testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	if data["content"] != "hi" {
		t.Errorf("content = %v, want sanitized text", data["content"])
	}

	if rec := e.send(t, e.member, models.RoomProject, p, "<i></i>"); rec.Code != http.StatusBadRequest {
		t.Errorf("empty after sanitize: expected 400, got %d", rec.Code)
	}
	long := strings.Repeat("x", chat.MaxContentLen+1)
	if rec := e.send(t, e.member, models.RoomProject, p, long); rec.Code != http.StatusBadRequest {
		t.Errorf("too long: expected 400, got %d", rec.Code)
	}
}

func TestEditDelete_OnlySender(t *testing.T) {
	e := setup(t)
	id := messageID(t, e.send(t, e.member, models.RoomProject, e.project.ID.Hex(), "first"))

	rec := call(t, e.h.HandleEdit, http.MethodPut, "/api/chat/messages/"+id, map[string]string{"content": "hijack"}, e.leader, "id", id)
	if rec.Code != http.StatusForbidden {
		t.Errorf("edit by other: expected 403, got %d", rec.Code)
	}
	rec = call(t, e.h.HandleEdit, http.MethodPut, "/api/chat/messages/"+id, map[string]string{"content": "second"}, e.member, "id", id)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	if data["content"] != "second" || data["edited"] != true {
		t.Errorf("edited message = %v", data)
	}

	rec = call(t, e.h.HandleDelete, http.MethodDelete, "/api/chat/messages/"+id, nil, e.leader, "id", id)
	if rec.Code != http.StatusForbidden {
		t.Errorf("delete by other: expected 403, got %d", rec.Code)
	}
	rec = call(t, e.h.HandleDelete, http.MethodDelete, "/api/chat/messages/"+id, nil, e.member, "id", id)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	data, _ = testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	if data["deleted"] != true || data["content"] != "" {
		t.Errorf("deleted message = %v", data)
	}
	rec = call(t, e.h.HandleEdit, http.MethodPut, "/api/chat/messages/"+id, map[string]string{"content": "again"}, e.member, "id", id)
	if rec.Code != http.StatusForbidden {
		t.Errorf("edit after delete: expected 403, got %d", rec.Code)
	}
}

func TestHistory_OldestFirstWithPaging(t *testing.T) {
	e := setup(t)
	p := e.project.ID.Hex()
	for _, c := range []string{"one", "two", "three"} {
		e.send(t, e.member, models.RoomProject, p, c)
	}

	rec := call(t, e.h.ServeHistory, http.MethodGet, "/api/chat/messages?roomType=project&roomId="+p+"&limit=2", nil, e.leader)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	msgs, _ := data["messages"].([]any)
	if len(msgs) != 2 || data["hasMore"] != true {
		t.Fatalf("page = %v", data)
	}
	first := msgs[0].(map[string]any)
	if first["content"] != "two" || msgs[1].(map[string]any)["content"] != "three" {
		t.Errorf("order = %v, %v", first["content"], msgs[1].(map[string]any)["content"])
	}

	before := first["id"].(string)
	rec = call(t, e.h.ServeHistory, http.MethodGet, "/api/chat/messages?roomType=project&roomId="+p+"&before="+before, nil, e.leader)
	data, _ = testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	msgs, _ = data["messages"].([]any)
	if len(msgs) != 1 || msgs[0].(map[string]any)["content"] != "one" || data["hasMore"] != false {
		t.Errorf("older page = %v", data)
	}

	rec = call(t, e.h.ServeHistory, http.MethodGet, "/api/chat/messages?roomType=project&roomId="+p, nil, e.outside)
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider: expected 403, got %d", rec.Code)
	}
}

func TestHistory_MalformedCursor(t *testing.T) {
	e := setup(t)
	p := e.project.ID.Hex()
	e.send(t, e.member, models.RoomProject, p, "one")

	rec := call(t, e.h.ServeHistory, http.MethodGet, "/api/chat/messages?roomType=project&roomId="+p+"&before=not-an-id", nil, e.leader)
	env := testutil.DecodeEnvelope(t, rec)
	if rec.Code != http.StatusBadRequest || env.Success {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.Message != "Invalid before" {
		t.Errorf("message = %q", env.Message)
	}
}

func TestRead(t *testing.T) {
	e := setup(t)
	p := e.project.ID.Hex()
	e.send(t, e.member, models.RoomProject, p, "one")
	e.send(t, e.member, models.RoomProject, p, "two")

	body := map[string]string{"roomType": models.RoomProject, "roomId": p}
	rec := call(t, e.h.HandleRead, http.MethodPut, "/api/chat/messages/read", body, e.leader)
	data, _ := testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	if rec.Code != http.StatusOK || data["count"] != float64(2) {
		t.Fatalf("first read: %d %v", rec.Code, data)
	}
	rec = call(t, e.h.HandleRead, http.MethodPut, "/api/chat/messages/read", body, e.leader)
	data, _ = testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	if data["count"] != float64(0) {
		t.Errorf("second read count = %v, want 0", data["count"])
	}
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dial(t *testing.T, e env, u models.User) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.h.ServeWS(w, auth.WithTestUser(r, testutil.SessionUserFor(u)))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	expect(t, conn, realtime.EventConnected)
	return conn
}

func write(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, _ := json.Marshal(data)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, frame{Event: event, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func expect(t *testing.T, conn *websocket.Conn, event string) frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if f.Event == event {
			return f
		}
	}
}

func TestWebsocket_JoinSendAndRESTBroadcast(t *testing.T) {
	e := setup(t)
	p := e.project.ID.Hex()

	leader := dial(t, e, e.leader)
	member := dial(t, e, e.member)
	outsider := dial(t, e, e.outside)

	write(t, leader, realtime.EventJoinProjectRoom, map[string]string{"roomId": p})
	expect(t, leader, realtime.EventJoined)
	write(t, member, realtime.EventJoinProjectRoom, map[string]string{"roomId": p})
	expect(t, member, realtime.EventJoined)

	write(t, outsider, realtime.EventJoinProjectRoom, map[string]string{"roomId": p})
	f := expect(t, outsider, realtime.EventError)
	if !strings.Contains(string(f.Data), "403") {
		t.Errorf("outsider join error = %s", f.Data)
	}

	write(t, member, realtime.EventSend, map[string]string{"roomType": models.RoomProject, "roomId": p, "content": "over the wire"})
	expect(t, member, realtime.EventSend+"Ack")
	f = expect(t, leader, realtime.EventMessage)
	if !strings.Contains(string(f.Data), "over the wire") {
		t.Errorf("message payload = %s", f.Data)
	}

	e.send(t, e.leader, models.RoomProject, p, "from rest")
	f = expect(t, member, realtime.EventMessage)
	if !strings.Contains(string(f.Data), "from rest") {
		t.Errorf("REST broadcast payload = %s", f.Data)
	}
}

func TestServeOnline(t *testing.T) {
	e := setup(t)
	conn := dial(t, e, e.member)
	write(t, conn, realtime.EventSetup, nil)
	expect(t, conn, realtime.EventConnected)

	rec := call(t, e.h.ServeOnline, http.MethodGet, "/api/chat/online", nil, e.leader)
	items, _ := testutil.DecodeEnvelope(t, rec).Data.([]any)
	if len(items) != 1 || items[0].(map[string]any)["name"] != "Ann" {
		t.Errorf("online = %v", items)
	}
}

// joinRooms puts conn in the project and task chat rooms.
func (e env) joinRooms(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	write(t, conn, realtime.EventJoinProjectRoom, map[string]string{"roomId": e.project.ID.Hex()})
	expect(t, conn, realtime.EventJoined)
	write(t, conn, realtime.EventJoinTaskRoom, map[string]string{"roomId": e.task.ID.Hex()})
	expect(t, conn, realtime.EventJoined)
}

// assertNoMessageBefore sends an unknown event and fails if any chat message
// reaches conn before the error reply.
func assertNoMessageBefore(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	write(t, conn, "bogus", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("waiting for error reply: %v", err)
		}
		switch f.Event {
		case realtime.EventMessage:
			t.Fatalf("removed user got a message: %s", f.Data)
		case realtime.EventError:
			return
		}
	}
}

func TestRemovedUsersStopReceivingRoomMessages(t *testing.T) {
	projectRoom := func(e env) string { return models.RoomKey(models.RoomProject, e.project.ID) }
	taskRoom := func(e env) string { return models.RoomKey(models.RoomTask, e.task.ID) }

	tests := []struct {
		name   string
		remove func(t *testing.T, e env) *httptest.ResponseRecorder
		gone   []func(env) string
	}{
		{
			name: "removed from project",
			remove: func(t *testing.T, e env) *httptest.ResponseRecorder {
				h := projects.NewHandler(e.db, nil, zap.NewNop())
				h.Rooms = e.hub
				return call(t, h.HandleRemoveMember, http.MethodPut, "/api/projects/remove/"+e.project.ID.Hex(),
					map[string]string{"memberId": e.member.ID.Hex()}, e.leader, "id", e.project.ID.Hex())
			},
			gone: []func(env) string{projectRoom, taskRoom},
		},
		{
			name: "unassigned from task",
			remove: func(t *testing.T, e env) *httptest.ResponseRecorder {
				h := tasks.NewHandler(e.db, nil, zap.NewNop())
				h.Rooms = e.hub
				return call(t, h.HandleUnassign, http.MethodPut, "/api/tasks/unassign/"+e.task.ID.Hex(),
					map[string]string{"userId": e.member.ID.Hex()}, e.leader, "id", e.task.ID.Hex())
			},
			gone: []func(env) string{taskRoom},
		},
		{
			name: "removed from team",
			remove: func(t *testing.T, e env) *httptest.ResponseRecorder {
				h := teams.NewHandler(e.db, nil, nil, zap.NewNop())
				h.Rooms = e.hub
				return call(t, h.HandleRemoveMember, http.MethodDelete, "/api/teams/members/"+e.member.ID.Hex(),
					nil, e.leader, "uid", e.member.ID.Hex())
			},
			gone: []func(env) string{projectRoom, taskRoom},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := setup(t)
			member := dial(t, e, e.member)
			e.joinRooms(t, member)

			rec := tc.remove(t, e)
			if rec.Code != http.StatusOK {
				t.Fatalf("remove: expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			expect(t, member, realtime.EventRemoved)
			for _, room := range tc.gone {
				if n := e.hub.RoomSize(room(e)); n != 0 {
					t.Errorf("%s still has %d connections", room(e), n)
				}
				e.hub.Broadcast(room(e), realtime.EventMessage, map[string]string{"content": "after removal"})
			}
			assertNoMessageBefore(t, member)
		})
	}
}
