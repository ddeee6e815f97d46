package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ssoriano/roomchat/internal/server"
	"github.com/ssoriano/roomchat/internal/types"
)

const maxFieldLength = 100

type JoinRoomRequest struct {
	Username string `json:"username"`
	RoomId   string `json:"roomID"`
}

type JoinRoomResponse struct {
	Token string `json:"token"`
}

type MessagesResponse struct {
	Message string          `json:"message"`
	Data    []types.Message `json:"data"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// validateJoinRequest trims both fields and returns a field to message map
// for anything the client needs to correct.
func validateJoinRequest(req *JoinRoomRequest) map[string]string {
	fieldErrors := make(map[string]string)

	req.Username = strings.TrimSpace(req.Username)
	req.RoomId = strings.TrimSpace(req.RoomId)

	switch {
	case req.Username == "":
		fieldErrors["username"] = "username must not be empty"
	case len(req.Username) > maxFieldLength:
		fieldErrors["username"] = "username must be at most 100 characters"
	}

	switch {
	case req.RoomId == "":
		fieldErrors["roomID"] = "roomID must not be empty"
	case len(req.RoomId) > maxFieldLength:
		fieldErrors["roomID"] = "roomID must be at most 100 characters"
	}

	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}

// joinRoom issues a room session token. It does not reserve the membership
// slot: the uniqueness check here is optimistic and the binding reservation
// happens when the realtime connection opens.
func (s *ChatApp) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if fieldErrors := validateJoinRequest(&req); fieldErrors != nil {
		errResp := NewValidationError(fieldErrors)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if s.gw.IsUsernameInRoom(req.Username, req.RoomId) {
		errResp := NewValidationError(map[string]string{
			"username": "Username is already in the room",
		})
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.auth.Sign(req.Username, req.RoomId)
	if err != nil {
		s.log.Println("sign token:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, JoinRoomResponse{Token: token})
}

// getMessages returns every stored message for the token's room in
// insertion order.
func (s *ChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := RoomClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbMessages, err := s.db.GetMessages(claims.RoomId, nil)
	if err != nil {
		s.log.Println("get messages:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, m := range dbMessages {
		messages = append(messages, types.Message{
			Id:        m.Id,
			RoomId:    m.RoomId,
			Username:  m.Username,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, MessagesResponse{
		Message: "OK",
		Data:    messages,
	})
}

func (s *ChatApp) health(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health: db ping:", err)
		errResp := NewServiceUnavailableError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

// serveWs is the admission pipeline's boundary: credential checks happen
// before the upgrade so a rejected client gets a plain HTTP error, and the
// authoritative slot reservation happens inside Gateway.Admit once the
// connection is established.
func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		errResp := NewUnauthorizedError("missing authentication token")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	claims, err := s.auth.Verify(token)
	if err != nil {
		s.log.Println("verify token:", err)
		errResp := NewUnauthorizedError("invalid token")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var lastMessageAt *time.Time
	if v := r.URL.Query().Get("last_message_at"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		lastMessageAt = &t
	}

	// optimistic reject before the upgrade; Admit re-checks under the
	// roster lock once the connection is open
	if s.gw.IsUsernameInRoom(claims.Username, claims.RoomId) {
		errResp := NewConflictError(server.ErrUsernameTaken.Error())
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, "*") || slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	if err := s.gw.Admit(conn, claims.Username, claims.RoomId, lastMessageAt); err != nil {
		if !errors.Is(err, server.ErrUsernameTaken) {
			s.log.Println("admit:", err)
		}
	}
}
