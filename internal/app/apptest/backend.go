// SPDX-License-Identifier: AGPL-3.0-only

// Package apptest runs an in-process stand-in for the Book Share backend,
// REST routes and the RoomChannel cable, for tests.
package apptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/gorilla/websocket"
)

const (
	UserID   int64 = 9
	Email          = "mika@example.com"
	Password       = "password1"
	Token          = "token-1"
)

type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	posts     []models.PostRecord
	comments  map[int64][]models.CommentRecord
	messages  []models.ChatMessage
	likes     map[int64]bool
	nextID    int64
	failLikes bool
	calls     map[string]int
	cable     []*websocket.Conn
}

// NewBackend serves n posts, newest first, none liked.
func NewBackend(t *testing.T, n int) *Backend {
	t.Helper()
	b := &Backend{
		comments: make(map[int64][]models.CommentRecord),
		likes:    make(map[int64]bool),
		calls:    make(map[string]int),
		nextID:   1000,
	}
	for i := n; i >= 1; i-- {
		b.posts = append(b.posts, models.PostRecord{
			ID:       int64(i),
			UserID:   UserID,
			Username: "mika",
			Content:  "post " + strconv.Itoa(i),
		})
	}
	b.messages = []models.ChatMessage{{ID: 1, UserID: UserID, RoomID: 1, Content: "welcome"}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/sign_in", b.signIn)
	mux.HandleFunc("POST /api/auth", b.register)
	mux.HandleFunc("POST /api/get_user", b.authed(b.getUser))
	mux.HandleFunc("POST /api/update_user", b.authed(b.updateUser))
	mux.HandleFunc("POST /api/get_posts", b.authed(b.page))
	mux.HandleFunc("POST /api/get_my_posts", b.authed(b.page))
	mux.HandleFunc("POST /api/get_post", b.authed(b.detail))
	mux.HandleFunc("POST /api/posts", b.authed(b.createPost))
	mux.HandleFunc("GET /api/posts/{id}", b.authed(b.showPost))
	mux.HandleFunc("PATCH /api/posts/{id}", b.authed(b.editPost))
	mux.HandleFunc("DELETE /api/posts/{id}", b.authed(b.deletePost))
	mux.HandleFunc("POST /api/likes", b.authed(b.like))
	mux.HandleFunc("DELETE /api/likes/{uid}/{pid}", b.authed(b.unlike))
	mux.HandleFunc("POST /api/comments", b.authed(b.createComment))
	mux.HandleFunc("PATCH /api/comments/{id}", b.authed(b.editComment))
	mux.HandleFunc("DELETE /api/comments/{id}", b.authed(b.deleteComment))
	mux.HandleFunc("GET /api/get_messages", b.authed(b.getMessages))
	mux.HandleFunc("/cable", b.serveCable)

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *Backend) Close() {
	b.mu.Lock()
	for _, c := range b.cable {
		c.Close()
	}
	b.cable = nil
	b.mu.Unlock()
	b.Server.Close()
}

func (b *Backend) URL() string { return b.Server.URL }

func (b *Backend) CableURL() string {
	return "ws" + strings.TrimPrefix(b.Server.URL, "http") + "/cable"
}

// FailLikes makes like and unlike answer 500.
func (b *Backend) FailLikes(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failLikes = v
}

func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *Backend) Post(id int64) (models.PostRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return models.PostRecord{}, false
	}
	return b.view(b.posts[i]), true
}

// SetLikes changes a post's like count as if other users had liked it.
func (b *Backend) SetLikes(id int64, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexOf(id); i >= 0 {
		b.posts[i].LikedCount = n
	}
}

func (b *Backend) Messages() []models.ChatMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.ChatMessage(nil), b.messages...)
}

func (b *Backend) CableClients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cable)
}

func (b *Backend) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("access-token") != Token || r.Header.Get("uid") != Email {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.mu.Lock()
		b.calls[strings.TrimPrefix(r.URL.Path, "/api/")]++
		b.mu.Unlock()
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id
}

func (b *Backend) signIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	if req.Email != Email || req.Password != Password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("access-token", Token)
	w.Header().Set("client", "client-1")
	w.Header().Set("uid", Email)
	writeJSON(w, map[string]any{"data": map[string]any{"id": UserID}})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	if req.Email == Email {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, map[string]string{"status": "success"})
}

func (b *Backend) getUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.User{ID: UserID, Username: "mika", Email: Email})
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, models.User{
		ID:               UserID,
		Username:         r.FormValue("username"),
		Email:            Email,
		SelfIntroduction: r.FormValue("self_introduction"),
	})
}

func (b *Backend) page(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page int `json:"page"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.PostRecord{}
	start := req.Page * models.PageSize
	for i := start; i < len(b.posts) && i < start+models.PageSize; i++ {
		out = append(out, b.view(b.posts[i]))
	}
	writeJSON(w, out)
}

func (b *Backend) detail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PostID int64 `json:"post_id"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(req.PostID)
	if i < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, models.PostDetail{Post: b.view(b.posts[i]), Comments: b.comments[req.PostID]})
}

func (b *Backend) createPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	p := models.PostRecord{ID: b.nextID, UserID: UserID, Username: "mika", Content: r.FormValue("content")}
	if _, hdr, err := r.FormFile("post_picture"); err == nil {
		p.PostImage = hdr.Filename
	}
	b.posts = append([]models.PostRecord{p}, b.posts...)
	writeJSON(w, p)
}

func (b *Backend) showPost(w http.ResponseWriter, r *http.Request) {
	p, ok := b.Post(pathID(r, "id"))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, p)
}

func (b *Backend) editPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(pathID(r, "id"))
	if i < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	b.posts[i].Content = req.Content
	writeJSON(w, b.view(b.posts[i]))
}

func (b *Backend) deletePost(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(pathID(r, "id"))
	if i < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	b.posts = append(b.posts[:i], b.posts[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) like(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PostID int64 `json:"post_id"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	b.setLike(w, req.PostID, true)
}

func (b *Backend) unlike(w http.ResponseWriter, r *http.Request) {
	b.setLike(w, pathID(r, "pid"), false)
}

func (b *Backend) setLike(w http.ResponseWriter, postID int64, liked bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failLikes {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	i := b.indexOf(postID)
	if i < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if b.likes[postID] != liked {
		b.likes[postID] = liked
		if liked {
			b.posts[i].LikedCount++
		} else {
			b.posts[i].LikedCount--
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) createComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  int64  `json:"user_id"`
		PostID  int64  `json:"post_id"`
		Content string `json:"content"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(req.PostID)
	if i < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	b.nextID++
	c := models.CommentRecord{ID: b.nextID, UserID: req.UserID, PostID: req.PostID, Username: "mika", Content: req.Content}
	b.comments[req.PostID] = append([]models.CommentRecord{c}, b.comments[req.PostID]...)
	b.posts[i].CommentedCount++
	writeJSON(w, c)
}

func (b *Backend) editComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	id := pathID(r, "id")

	b.mu.Lock()
	defer b.mu.Unlock()
	for pid, list := range b.comments {
		for i := range list {
			if list[i].ID == id {
				b.comments[pid][i].Content = req.Content
				writeJSON(w, b.comments[pid][i])
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (b *Backend) deleteComment(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")

	b.mu.Lock()
	defer b.mu.Unlock()
	for pid, list := range b.comments {
		for i := range list {
			if list[i].ID == id {
				b.comments[pid] = append(list[:i], list[i+1:]...)
				if j := b.indexOf(pid); j >= 0 {
					b.posts[j].CommentedCount--
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (b *Backend) getMessages(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, b.messages)
}

// view returns the record as the signed-in user sees it.
func (b *Backend) view(p models.PostRecord) models.PostRecord {
	p.AlreadyLiked = b.likes[p.ID]
	return p
}

func (b *Backend) indexOf(id int64) int {
	for i := range b.posts {
		if b.posts[i].ID == id {
			return i
		}
	}
	return -1
}

type cableFrame struct {
	Type       string          `json:"type,omitempty"`
	Command    string          `json:"command,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Data       string          `json:"data,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
}

var upgrader = websocket.Upgrader{Subprotocols: []string{"actioncable-v1-json"}}

// serveCable speaks RoomChannel: every speak is stored and broadcast back
// to all subscribers.
func (b *Backend) serveCable(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(f cableFrame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(f)
	}

	if err := send(cableFrame{Type: "welcome"}); err != nil {
		return
	}

	for {
		var f cableFrame
		if err := conn.ReadJSON(&f); err != nil {
			b.dropCable(conn)
			return
		}
		switch f.Command {
		case "subscribe":
			b.mu.Lock()
			b.cable = append(b.cable, conn)
			b.mu.Unlock()
			send(cableFrame{Type: "confirm_subscription", Identifier: f.Identifier})
		case "unsubscribe":
			b.dropCable(conn)
		case "message":
			var data struct {
				Action string `json:"action"`
				Body   string `json:"body"`
			}
			if json.Unmarshal([]byte(f.Data), &data) != nil || data.Action != "speak" {
				continue
			}
			b.broadcast(f.Identifier, data.Body)
		}
	}
}

func (b *Backend) broadcast(identifier, body string) {
	b.mu.Lock()
	b.nextID++
	m := models.ChatMessage{ID: b.nextID, UserID: UserID, RoomID: 1, Content: body}
	b.messages = append(b.messages, m)
	conns := append([]*websocket.Conn(nil), b.cable...)
	b.mu.Unlock()

	msg, _ := json.Marshal(models.ChatEnvelope{Sender: "mika", Body: m})
	for _, c := range conns {
		c.WriteJSON(cableFrame{Identifier: identifier, Message: msg})
	}
}

func (b *Backend) dropCable(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.cable {
		if c == conn {
			b.cable = append(b.cable[:i], b.cable[i+1:]...)
			return
		}
	}
}
