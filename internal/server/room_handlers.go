// internal/server/room_handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mfjones/chatter/internal/store"
)

type CreateRoomRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Type        string  `json:"type"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "validation_failed", "Room name is required")
		return
	}
	switch req.Type {
	case "":
		req.Type = store.RoomPublic
	case store.RoomPublic, store.RoomPrivate:
	default:
		s.writeError(w, http.StatusBadRequest, "validation_failed", "Room type must be PUBLIC or PRIVATE")
		return
	}

	room, err := s.rooms.Create(r.Context(), req.Name, req.Description, req.Type, user.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to create room")
		return
	}
	json.NewEncoder(w).Encode(room)
}

type DirectRoomRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleCreateDirectRoom(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req DirectRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.UserID == "" || req.UserID == user.ID {
		s.writeError(w, http.StatusBadRequest, "validation_failed", "A different user id is required")
		return
	}

	if _, err := s.users.Get(r.Context(), req.UserID); err != nil {
		s.writeError(w, http.StatusNotFound, "not_found", "User not found")
		return
	}

	room, err := s.rooms.CreateDirect(r.Context(), user.ID, req.UserID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to create direct room")
		return
	}
	json.NewEncoder(w).Encode(room)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	rooms, err := s.rooms.ListForUser(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to list rooms")
		return
	}
	if rooms == nil {
		rooms = []store.Room{}
	}
	json.NewEncoder(w).Encode(rooms)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := s.loadRoom(w, r)
	if !ok {
		return
	}
	json.NewEncoder(w).Encode(room)
}

type UpdateRoomRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	room, ok := s.loadRoom(w, r)
	if !ok {
		return
	}
	if !s.requireRoomAdmin(w, r, user, room) {
		return
	}

	var req UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Name == "" {
		req.Name = room.Name
	}
	if req.Description == nil {
		req.Description = room.Description
	}

	if err := s.rooms.Update(r.Context(), room.ID, req.Name, req.Description); err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to update room")
		return
	}

	updated, err := s.rooms.Get(r.Context(), room.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to load room")
		return
	}
	json.NewEncoder(w).Encode(updated)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	room, ok := s.loadRoom(w, r)
	if !ok {
		return
	}
	if !s.requireRoomAdmin(w, r, user, room) {
		return
	}

	if err := s.rooms.Delete(r.Context(), room.ID); err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to delete room")
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	room, ok := s.loadRoom(w, r)
	if !ok {
		return
	}
	if room.Type != store.RoomPublic {
		s.writeError(w, http.StatusForbidden, "forbidden", "Cannot join a private room")
		return
	}

	if err := s.members.Create(r.Context(), user.ID, room.ID, store.RoleMember); err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to join room")
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "joined"})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	room, ok := s.loadRoom(w, r)
	if !ok {
		return
	}

	isMember, err := s.members.IsMember(r.Context(), user.ID, room.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to check membership")
		return
	}
	if !isMember && room.Type != store.RoomPublic {
		s.writeError(w, http.StatusForbidden, "forbidden", "Not a member of this room")
		return
	}

	memberships, err := s.members.ListRoom(r.Context(), room.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to list members")
		return
	}
	json.NewEncoder(w).Encode(memberships)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	users, err := s.users.ListAvailable(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to list users")
		return
	}
	if users == nil {
		users = []store.User{}
	}
	json.NewEncoder(w).Encode(users)
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// handleUpdateStatus applies an explicit presence change. The hub keeps the
// authoritative in-memory value and fans out user_status_changed.
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	switch req.Status {
	case store.StatusOnline, store.StatusAway:
	default:
		s.writeError(w, http.StatusBadRequest, "validation_failed", "Status must be ONLINE or AWAY")
		return
	}

	s.hub.SetUserStatus(r.Context(), user.ID, req.Status)
	json.NewEncoder(w).Encode(map[string]string{"status": s.hub.UserStatus(user.ID)})
}

func (s *Server) handleListReactions(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")

	groups, err := s.reactions.ListByMessage(r.Context(), messageID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to list reactions")
		return
	}
	if groups == nil {
		groups = []store.ReactionGroup{}
	}
	json.NewEncoder(w).Encode(groups)
}

func (s *Server) loadRoom(w http.ResponseWriter, r *http.Request) (*store.Room, bool) {
	room, err := s.rooms.Get(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "not_found", "Room not found")
		} else {
			s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to load room")
		}
		return nil, false
	}
	return room, true
}

// requireRoomAdmin allows the room creator or an admin member through.
func (s *Server) requireRoomAdmin(w http.ResponseWriter, r *http.Request, user *store.User, room *store.Room) bool {
	if room.CreatorID == user.ID {
		return true
	}
	membership, err := s.members.Get(r.Context(), user.ID, room.ID)
	if err == nil && membership.Role == store.RoleAdmin {
		return true
	}
	s.writeError(w, http.StatusForbidden, "forbidden", "Room admin access required")
	return false
}
