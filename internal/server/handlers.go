package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pdfqa/internal/domain"
)

type documentResponse struct {
	DocumentID         string `json:"document_id"`
	Name               string `json:"name"`
	Segments           int    `json:"segments"`
	FirstSegmentLength int    `json:"first_segment_length"`
	Chunks             int    `json:"chunks"`
	Preview            string `json:"preview,omitempty"`
	Cached             bool   `json:"cached"`
}

type sessionResponse struct {
	ID       string            `json:"id"`
	State    string            `json:"state"`
	Document *documentResponse `json:"document,omitempty"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type sourceResponse struct {
	ChunkID string  `json:"chunk_id"`
	Page    int     `json:"page"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

type answerResponse struct {
	Query          string           `json:"query"`
	RewrittenQuery string           `json:"rewritten_query"`
	Answer         string           `json:"answer"`
	Sources        []sourceResponse `json:"sources"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toDocumentResponse(st domain.DocumentStats) *documentResponse {
	return &documentResponse{
		DocumentID:         st.DocumentID,
		Name:               st.Name,
		Segments:           st.Segments,
		FirstSegmentLength: st.FirstSegmentLength,
		Chunks:             st.Chunks,
		Preview:            st.Preview,
		Cached:             st.Cached,
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getSession(c *gin.Context) {
	snap := s.session.Snapshot()
	resp := sessionResponse{ID: snap.ID, State: snap.State.String()}
	if snap.Document != nil {
		resp.Document = toDocumentResponse(*snap.Document)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) uploadDocument(c *gin.Context) {
	// Multipart framing adds a little on top of the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes+1<<20)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.tooLarge(c)
			return
		}
		writeError(c, http.StatusBadRequest, "invalid_file", "multipart field \"file\" is required")
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		writeError(c, http.StatusBadRequest, "invalid_file", "only .pdf files are supported")
		return
	}
	if file.Size > s.cfg.MaxUploadBytes {
		s.tooLarge(c)
		return
	}
	f, err := file.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_file", "failed to open file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_file", "failed to read file")
		return
	}

	stats, err := s.session.LoadDocument(c.Request.Context(), filepath.Base(file.Filename), data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentResponse(stats))
}

func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "body must be {\"query\": \"...\"}")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.Status(http.StatusNoContent)
		return
	}
	ans, err := s.session.Ask(c.Request.Context(), req.Query)
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := answerResponse{
		Query:          ans.Query,
		RewrittenQuery: ans.RewrittenQuery,
		Answer:         ans.Text,
		Sources:        make([]sourceResponse, 0, len(ans.Sources)),
	}
	for _, r := range ans.Sources {
		resp.Sources = append(resp.Sources, sourceResponse{
			ChunkID: r.Chunk.ChunkID,
			Page:    r.Chunk.Segment + 1,
			Score:   r.Score,
			Text:    r.Chunk.Text,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) tooLarge(c *gin.Context) {
	writeError(c, http.StatusRequestEntityTooLarge, "too_large",
		"file exceeds the "+strconv.FormatInt(s.cfg.MaxUploadBytes>>20, 10)+"MB upload limit")
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	writeError(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNoDocument):
		return http.StatusConflict, "no_document"
	case errors.Is(err, domain.ErrDocumentParse):
		return http.StatusUnprocessableEntity, "document_parse"
	case errors.Is(err, domain.ErrIndexBuild):
		return http.StatusBadGateway, "index_build"
	case errors.Is(err, domain.ErrQueryRewrite):
		return http.StatusBadGateway, "query_rewrite"
	case errors.Is(err, domain.ErrAnswerGeneration):
		return http.StatusBadGateway, "answer_generation"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorResponse{Code: code, Message: message}})
}
