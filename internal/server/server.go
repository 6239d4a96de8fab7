// Package server exposes the transcription and note-generation pipeline over
// HTTP.
package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Nephrolytics-ai/medscribe/internal/types"
	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
)

// NoteEngine is the slice of the note pipeline the handlers use.
type NoteEngine interface {
	CleanTranscript(ctx context.Context, transcript string) (string, error)
	InferTemplate(ctx context.Context, name, document string) (types.Template, error)
	GenerateNote(ctx context.Context, template types.Template, transcript string) (types.FieldValues, error)
}

// TemplateStore is the persistence surface the handlers use.
type TemplateStore interface {
	Save(ctx context.Context, template types.Template) error
	Load(ctx context.Context, name string) (types.Template, error)
	List(ctx context.Context) ([]types.TemplateInfo, error)
	Delete(ctx context.Context, name string) error
}

// Transcriber converts uploaded audio to raw text.
type Transcriber interface {
	TranscribeUpload(ctx context.Context, filename string, data []byte) (string, error)
}

type Options struct {
	Host           string
	Port           int
	AllowedOrigins string

	Engine      NoteEngine
	Store       TemplateStore
	Transcriber Transcriber
}

type Server struct {
	opts   Options
	router *gin.Engine
}

func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	s := &Server{opts: opts, router: router}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/transcribe-and-clean", s.handleTranscribeAndClean)
	s.router.POST("/generate-note", s.handleGenerateNote)
	s.router.POST("/create-template", s.handleCreateTemplate)
	s.router.GET("/templates", s.handleListTemplates)
	s.router.GET("/templates/:name", s.handleGetTemplate)
	s.router.DELETE("/templates/:name", s.handleDeleteTemplate)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	log := logging.NewLogger(ctx)
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	log.Infof("server: listening on %s", addr)
	return s.router.Run(addr)
}

func corsConfig(allowedOrigins string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	if allowedOrigins == "" || allowedOrigins == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = strings.Split(allowedOrigins, ",")
	return cfg
}

// requestLogger tags each request with an ID and logs method, path, and
// status on completion.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Header("X-Request-ID", requestID)

		log := logging.NewLogger(c.Request.Context()).WithField("request_id", requestID)
		c.Next()
		log.Infof("server: %s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}
