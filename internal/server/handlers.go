package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Nephrolytics-ai/medscribe/internal/docs"
	"github.com/Nephrolytics-ai/medscribe/internal/format"
	"github.com/Nephrolytics-ai/medscribe/internal/notes"
	"github.com/Nephrolytics-ai/medscribe/internal/store"
	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
	"github.com/Nephrolytics-ai/medscribe/pkg/model"
)

const (
	serviceName    = "medscribe"
	serviceVersion = "1.0.0"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (s *Server) handleTranscribeAndClean(c *gin.Context) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		failRequest(c, http.StatusBadRequest, errors.New("audio file is required"))
		return
	}

	data, err := readUpload(fileHeader)
	if err != nil {
		failRequest(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	rawTranscript, err := s.opts.Transcriber.TranscribeUpload(ctx, fileHeader.Filename, data)
	if err != nil {
		failPipeline(c, err)
		return
	}

	cleaned, err := s.opts.Engine.CleanTranscript(ctx, rawTranscript)
	if err != nil {
		failPipeline(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"transcription": cleaned,
	})
}

type generateNoteRequest struct {
	CleanedText  string `json:"cleaned_text" binding:"required"`
	TemplateName string `json:"template_name" binding:"required"`
}

func (s *Server) handleGenerateNote(c *gin.Context) {
	var req generateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failRequest(c, http.StatusBadRequest, errors.New("cleaned_text and template_name are required"))
		return
	}

	ctx := c.Request.Context()
	template, err := s.opts.Store.Load(ctx, req.TemplateName)
	if err != nil {
		failPipeline(c, err)
		return
	}

	values, err := s.opts.Engine.GenerateNote(ctx, template, req.CleanedText)
	if err != nil {
		failPipeline(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"medical_note":   values,
		"formatted_html": format.RenderNote(template, values),
	})
}

func (s *Server) handleCreateTemplate(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("template_name"))
	if name == "" {
		failRequest(c, http.StatusBadRequest, errors.New("template_name is required"))
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		failRequest(c, http.StatusBadRequest, errors.New("document file is required"))
		return
	}
	data, err := readUpload(fileHeader)
	if err != nil {
		failRequest(c, http.StatusBadRequest, err)
		return
	}

	text, err := docs.ExtractText(fileHeader.Filename, data)
	if err != nil {
		failRequest(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	template, err := s.opts.Engine.InferTemplate(ctx, name, text)
	if err != nil {
		failPipeline(c, err)
		return
	}
	if err := s.opts.Store.Save(ctx, template); err != nil {
		failPipeline(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"template_name":  template.Name,
		"fields":         template.Fields,
		"formatted_html": format.RenderTemplate(template),
		"message":        fmt.Sprintf("template %q created with %d fields", template.Name, len(template.Fields)),
	})
}

func (s *Server) handleListTemplates(c *gin.Context) {
	infos, err := s.opts.Store.List(c.Request.Context())
	if err != nil {
		failPipeline(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "templates": infos})
}

func (s *Server) handleGetTemplate(c *gin.Context) {
	template, err := s.opts.Store.Load(c.Request.Context(), c.Param("name"))
	if err != nil {
		failPipeline(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"template":       template,
		"formatted_html": format.RenderTemplate(template),
	})
}

func (s *Server) handleDeleteTemplate(c *gin.Context) {
	name := c.Param("name")
	if err := s.opts.Store.Delete(c.Request.Context(), name); err != nil {
		failPipeline(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": name})
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// failPipeline maps pipeline errors to status codes: missing templates are
// 404, invalid input 400, model-side failures 502/503, everything else 500.
func failPipeline(c *gin.Context, err error) {
	var parseErr *notes.ParseError
	var unavailable *model.UnavailableError

	switch {
	case errors.Is(err, store.ErrTemplateNotFound):
		failRequest(c, http.StatusNotFound, err)
	case errors.Is(err, notes.ErrDocumentTooShort):
		failRequest(c, http.StatusBadRequest, err)
	case errors.As(err, &unavailable):
		failRequest(c, http.StatusServiceUnavailable, err)
	case errors.As(err, &parseErr):
		failRequest(c, http.StatusBadGateway, err)
	default:
		failRequest(c, http.StatusInternalServerError, err)
	}
}

func failRequest(c *gin.Context, status int, err error) {
	logging.NewLogger(c.Request.Context()).Errorf("server: %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
