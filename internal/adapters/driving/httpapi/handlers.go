package httpapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/repochat/internal/connectors/filesystem"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/logger"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatResponse is the reply to POST /chat.
type ChatResponse struct {
	Response  string   `json:"response"`
	Sources   []string `json:"sources"`
	Namespace string   `json:"namespace"`
}

// IngestResponse is the reply to both upload routes.
type IngestResponse struct {
	Message   string `json:"message"`
	Namespace string `json:"namespace"`
	Files     int    `json:"files,omitempty"`
	Chunks    int    `json:"chunks"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	ns, err := s.namespaceFor(c)
	if err != nil {
		writeError(c, err)
		return
	}
	stats, err := s.assistant.Status(c.Request.Context(), ns)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleUploadFile(c *gin.Context) {
	ns, err := s.namespaceFor(c)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		writeError(c, fmt.Errorf("%w: reading upload: %w", domain.ErrInvalidInput, err))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		writeError(c, fmt.Errorf("%w: no files in field \"files\"", domain.ErrInvalidInput))
		return
	}

	docs := make([]domain.Document, 0, len(files))
	for _, fh := range files {
		doc, ok, err := s.readUpload(fh)
		if err != nil {
			writeError(c, err)
			return
		}
		if ok {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		writeError(c, fmt.Errorf("%w: none of the %d uploaded files is a supported source file", domain.ErrInvalidInput, len(files)))
		return
	}

	n, err := s.assistant.Ingest(c.Request.Context(), docs, ns)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, IngestResponse{
		Message:   fmt.Sprintf("Ingested %d chunks from %d files", n, len(docs)),
		Namespace: ns,
		Files:     len(docs),
		Chunks:    n,
	})
}

// readUpload turns one uploaded file into a Document. Files the loader would
// skip (unsupported type, too large, not UTF-8) report ok=false.
func (s *Server) readUpload(fh *multipart.FileHeader) (domain.Document, bool, error) {
	name := uploadName(fh.Filename)
	if name == "" || !filesystem.AcceptPath(name) {
		logger.Debug("upload: skipping %q", fh.Filename)
		return domain.Document{}, false, nil
	}
	if fh.Size > s.cfg.MaxFileBytes {
		logger.Debug("upload: skipping %s (%d bytes)", name, fh.Size)
		return domain.Document{}, false, nil
	}

	f, err := fh.Open()
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("%w: opening %s: %w", domain.ErrInvalidInput, name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxFileBytes+1))
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("%w: reading %s: %w", domain.ErrInvalidInput, name, err)
	}
	if int64(len(data)) > s.cfg.MaxFileBytes || !utf8.Valid(data) {
		logger.Debug("upload: skipping %s (too large or not UTF-8)", name)
		return domain.Document{}, false, nil
	}

	return domain.Document{
		Source:   name,
		Content:  string(data),
		Metadata: map[string]any{"size": int64(len(data)), "upload": true},
	}, true, nil
}

// uploadName normalises a client-supplied file name to a relative slash path.
func uploadName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)
	return strings.TrimPrefix(name, "/")
}

func (s *Server) handleUploadGitHub(c *gin.Context) {
	ns, err := s.namespaceFor(c)
	if err != nil {
		writeError(c, err)
		return
	}

	root := strings.TrimSpace(c.PostForm("repo_url"))
	if root == "" {
		writeError(c, fmt.Errorf("%w: repo_url is required", domain.ErrInvalidInput))
		return
	}
	if !s.cfg.AllowLocalPaths && !isRemote(root) {
		writeError(c, fmt.Errorf("%w: repo_url must be a repository URL", domain.ErrInvalidInput))
		return
	}

	n, err := s.assistant.IngestSource(c.Request.Context(), root, ns)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, IngestResponse{
		Message:   fmt.Sprintf("Ingested %d chunks from %s", n, root),
		Namespace: ns,
		Chunks:    n,
	})
}

// isRemote reports whether root looks like a repository URL rather than a path.
func isRemote(root string) bool {
	for _, prefix := range []string{"https://", "http://", "ssh://", "git://", "git@", "github.com/"} {
		if strings.HasPrefix(root, prefix) {
			return true
		}
	}
	return false
}

func (s *Server) handleChat(c *gin.Context) {
	ns, err := s.namespaceFor(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
		return
	}
	question := strings.TrimSpace(req.Message)
	if question == "" {
		writeError(c, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput))
		return
	}

	answer, err := s.assistant.Ask(c.Request.Context(), question, ns)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := ChatResponse{Response: answer.Text, Sources: []string{}, Namespace: ns}
	seen := make(map[string]bool)
	for _, src := range answer.Sources {
		if !seen[src.Origin] {
			seen[src.Origin] = true
			resp.Sources = append(resp.Sources, src.Origin)
		}
	}
	c.JSON(http.StatusOK, resp)
}
