package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"meeting-scribe/internal/domain"
	"meeting-scribe/internal/infra/logging"
	"meeting-scribe/internal/infra/notify"
)

// handleProcess accepts the multipart upload, stages the recording and
// enqueues processing. Responds 202 with the meeting in uploaded state.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large or malformed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing recording file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read recording")
		return
	}

	contentType := header.Header.Get("Content-Type")
	var participants []string
	if raw := r.FormValue("participants"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &participants); err != nil {
			// Also accepted as a plain comma-separated list.
			for _, p := range strings.Split(raw, ",") {
				if p = strings.TrimSpace(p); p != "" {
					participants = append(participants, p)
				}
			}
		}
	}

	m, err := s.meetingUC.Ingest(r.Context(), uid,
		r.FormValue("title"), r.FormValue("date"), participants,
		header.Filename, contentType, content)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.With(r.Context(), s.log).Error().Err(err).Msg("ingest failed")
		writeError(w, http.StatusInternalServerError, "could not process upload")
		return
	}
	writeJSON(w, http.StatusAccepted, m)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	items, total, err := s.meetingUC.List(r.Context(), uid, page, pageSize)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("list meetings failed")
		writeError(w, http.StatusInternalServerError, "could not list meetings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"meetings": items, "total": total})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	meetingID := chi.URLParam(r, "meetingID")

	detail, err := s.meetingUC.Get(r.Context(), uid, meetingID)
	if err != nil {
		s.writeMeetingError(w, r, err, "get meeting failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meeting":    detail.Meeting,
		"transcript": detail.Transcript,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	meetingID := chi.URLParam(r, "meetingID")

	if err := s.meetingUC.Delete(r.Context(), uid, meetingID); err != nil {
		s.writeMeetingError(w, r, err, "delete meeting failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	meetingID := chi.URLParam(r, "meetingID")

	if s.limiter != nil && !s.limiter.Allow(r.Context(), uid) {
		writeError(w, http.StatusTooManyRequests, "too many questions, slow down")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := logging.WithMeetingID(r.Context(), meetingID)
	answer, err := s.chatUC.Ask(ctx, uid, meetingID, req.Question)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, "question is required")
			return
		}
		s.writeMeetingError(w, r, err, "chat failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	meetingID := chi.URLParam(r, "meetingID")
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	turns, err := s.chatUC.History(r.Context(), uid, meetingID, n)
	if err != nil {
		s.writeMeetingError(w, r, err, "chat history failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

// handleInternalNotify is the worker's ingress for terminal job statuses.
// Guarded by the shared internal key, never by user tokens.
func (s *Server) handleInternalNotify(w http.ResponseWriter, r *http.Request) {
	if s.internalKey == "" || bearerToken(r) != s.internalKey {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var payload struct {
		MeetingID string `json:"meetingId"`
		UserID    string `json:"userId"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid notification payload")
		return
	}

	s.hub.Publish(payload.UserID, notify.Event{MeetingID: payload.MeetingID, Status: payload.Status})
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents streams processing notifications to the client over SSE.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	uid := userID(r.Context())
	events, cancel := s.hub.Subscribe(uid)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: meeting_status\ndata: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func (s *Server) writeMeetingError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "meeting not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "not your meeting")
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg(logMsg)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
