package server

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/block/voice-pixels/internal/codec"
	"github.com/block/voice-pixels/internal/config"
	"github.com/block/voice-pixels/internal/imagegen"
	"github.com/block/voice-pixels/internal/matte"
	"github.com/block/voice-pixels/internal/outline"
	"github.com/block/voice-pixels/internal/postprocess"
	"github.com/block/voice-pixels/internal/spool"

	"github.com/gin-gonic/gin"
)

// Server is the HTTP surface over the matting engine. Every request runs
// its own pipeline invocation; the server itself holds only immutable
// configuration and shared collaborators.
type Server struct {
	cfg   config.Config
	pipe  *matte.Pipeline
	gen   imagegen.Generator
	spool *spool.Spool
	log   *slog.Logger
}

// New builds a server from a resolved, validated config.
func New(cfg config.Config, gen imagegen.Generator, sp *spool.Spool, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	pipe, err := matte.NewPipeline(matte.Options{
		Tolerance:     cfg.Tolerance,
		MinRegionSize: cfg.MinRegionSize,
	})
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	return &Server{cfg: cfg, pipe: pipe, gen: gen, spool: sp, log: log}, nil
}

// Router returns the configured gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.POST("/cutout", s.handleCutout)
	v1.POST("/compose", s.handleCompose)
	v1.GET("/cutouts/:id", s.handleFetch)

	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func fail(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

// handleCutout mats one uploaded image. Multipart fields: image (the file),
// and optional tolerance, min_region, max_edge, format, trim, trim_margin,
// fit, outline, spool.
func (s *Server) handleCutout(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("missing image file: %w", err))
		return
	}

	opts := matte.Options{
		Tolerance:     s.cfg.Tolerance,
		MinRegionSize: s.cfg.MinRegionSize,
	}
	if v := c.PostForm("tolerance"); v != "" {
		opts.Tolerance, err = strconv.ParseFloat(v, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, fmt.Errorf("tolerance %q: %w", v, err))
			return
		}
	}
	if v := c.PostForm("min_region"); v != "" {
		opts.MinRegionSize, err = strconv.Atoi(v)
		if err != nil {
			fail(c, http.StatusBadRequest, fmt.Errorf("min_region %q: %w", v, err))
			return
		}
	}
	pipe, err := matte.NewPipeline(opts)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	maxEdge := s.cfg.MaxEdge
	if v := c.PostForm("max_edge"); v != "" {
		maxEdge, err = strconv.Atoi(v)
		if err != nil {
			fail(c, http.StatusBadRequest, fmt.Errorf("max_edge %q: %w", v, err))
			return
		}
	}
	format := s.cfg.OutputFormat()
	if v := c.PostForm("format"); v != "" {
		format, err = codec.ParseFormat(v)
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
	}

	f, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	img, err := codec.Decode(f)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, err)
		return
	}
	img = codec.BoundEdge(img, maxEdge)

	var out *image.NRGBA
	key, fixed := s.cfg.KeyOverride()
	if fixed {
		out, err = pipe.CutWithKey(c.Request.Context(), img, key)
	} else {
		out, key, err = pipe.Cut(c.Request.Context(), img)
	}
	if err != nil {
		s.log.Error("cut failed", "error", err)
		fail(c, http.StatusInternalServerError, err)
		return
	}

	if isSet(c.PostForm("trim")) {
		margin := 0
		if v := c.PostForm("trim_margin"); v != "" {
			margin, err = strconv.Atoi(v)
			if err != nil {
				fail(c, http.StatusBadRequest, fmt.Errorf("trim_margin %q: %w", v, err))
				return
			}
		}
		out = postprocess.TrimToContent(out, margin)
	}

	if v := c.PostForm("fit"); v != "" {
		fitEdge, err := strconv.Atoi(v)
		if err != nil {
			fail(c, http.StatusBadRequest, fmt.Errorf("fit %q: %w", v, err))
			return
		}
		out = postprocess.FitWithin(out, fitEdge)
	}

	if isSet(c.PostForm("outline")) {
		svg, err := outline.FromCutout(out)
		if err != nil {
			fail(c, http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "image/svg+xml", svg)
		return
	}

	if isSet(c.PostForm("spool")) {
		id, err := s.spool.Put(out, format)
		if err != nil {
			fail(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":     id,
			"key":    key.Hex(),
			"width":  out.Bounds().Dx(),
			"height": out.Bounds().Dy(),
		})
		return
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, out, format); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("X-Key-Color", key.Hex())
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

type composeRequest struct {
	Instruction  string `json:"instruction"`
	SceneSpoolID string `json:"scene_spool_id"`
}

// handleCompose asks the generator for a scene rendered against the right
// key, mats it, and spools the cutout for fetching.
func (s *Server) handleCompose(c *gin.Context) {
	var req composeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("parse request: %w", err))
		return
	}
	if req.Instruction == "" {
		fail(c, http.StatusBadRequest, errors.New("instruction is required"))
		return
	}

	key, fixed := s.cfg.KeyOverride()
	if !fixed {
		key = matte.KeyGreen
		if req.SceneSpoolID != "" {
			f, _, err := s.spool.Open(req.SceneSpoolID)
			if err != nil {
				fail(c, http.StatusNotFound, err)
				return
			}
			scene, err := codec.Decode(f)
			f.Close()
			if err != nil {
				fail(c, http.StatusUnprocessableEntity, err)
				return
			}
			key = matte.SampleKey(scene)
		}
	}

	generated, err := s.gen.Generate(c.Request.Context(), req.Instruction, key)
	if err != nil {
		s.log.Error("generation failed", "error", err)
		fail(c, http.StatusBadGateway, err)
		return
	}

	img := codec.BoundEdge(codec.ToNRGBA(generated), s.cfg.MaxEdge)
	out, err := s.pipe.CutWithKey(c.Request.Context(), img, key)
	if err != nil {
		s.log.Error("cut failed", "error", err)
		fail(c, http.StatusInternalServerError, err)
		return
	}

	id, err := s.spool.Put(out, s.cfg.OutputFormat())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     id,
		"key":    key.Hex(),
		"width":  out.Bounds().Dx(),
		"height": out.Bounds().Dy(),
	})
}

// handleFetch streams a spooled cutout before its TTL runs out.
func (s *Server) handleFetch(c *gin.Context) {
	f, contentType, err := s.spool.Open(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, f, nil)
}

func isSet(v string) bool {
	return v == "1" || v == "true" || v == "yes"
}
