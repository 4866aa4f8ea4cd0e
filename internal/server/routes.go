package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bookquill/bookquill/internal/docstore"
)

// readerIDHeader carries the authenticated reader's id. Authentication
// itself happens upstream; the server trusts the header.
const readerIDHeader = "X-Reader-ID"

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type askRequest struct {
	Query string `json:"query"`
}

type createDocumentRequest struct {
	AuthorID int64  `json:"author_id"`
	Title    string `json:"title"`
	FilePath string `json:"file_path"`
}

type subscriptionRequest struct {
	ReaderID int64 `json:"reader_id"`
	AuthorID int64 `json:"author_id"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	readerID, ok := s.readerID(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp, err := s.engine.Search(r.Context(), readerID, req.Query, req.Limit)
	if err != nil {
		s.logger.Error("search failed", "reader", readerID, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAsk streams the answer as server-sent events. Event names match
// the answer event types; data is the JSON-encoded event.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	readerID, ok := s.readerID(w, r)
	if !ok {
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for ev := range s.engine.AnswerStream(r.Context(), readerID, req.Query) {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		flusher.Flush()
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	var authorID int64
	if v := r.URL.Query().Get("author_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid author_id")
			return
		}
		authorID = id
	}

	docs, err := s.docs.ListDocuments(r.Context(), authorID, r.URL.Query().Get("status"))
	if err != nil {
		s.logger.Error("listing documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing documents failed")
		return
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AuthorID == 0 || req.Title == "" {
		writeError(w, http.StatusBadRequest, "author_id and title are required")
		return
	}

	doc, err := s.docs.CreateDocument(r.Context(), req.AuthorID, req.Title, req.FilePath)
	if err != nil {
		s.logger.Error("creating document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "creating document failed")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	force := r.URL.Query().Get("force") == "true"

	if err := s.pipeline.Ingest(r.Context(), id, force, nil); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("ingest failed", "document", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	doc, err := s.docs.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading document failed")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReaderID == 0 || req.AuthorID == 0 {
		writeError(w, http.StatusBadRequest, "reader_id and author_id are required")
		return
	}
	if err := s.scopes.Subscribe(r.Context(), req.ReaderID, req.AuthorID); err != nil {
		s.logger.Error("subscribe failed", "error", err)
		writeError(w, http.StatusInternalServerError, "subscribe failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "subscribed"})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReaderID == 0 || req.AuthorID == 0 {
		writeError(w, http.StatusBadRequest, "reader_id and author_id are required")
		return
	}
	if err := s.scopes.Unsubscribe(r.Context(), req.ReaderID, req.AuthorID); err != nil {
		s.logger.Error("unsubscribe failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unsubscribe failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

func (s *Server) readerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(readerIDHeader)
	if raw == "" {
		writeError(w, http.StatusBadRequest, readerIDHeader+" header is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+readerIDHeader)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
