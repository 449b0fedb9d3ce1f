package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/HotDigest/internal/digest"
	"github.com/LJTian/HotDigest/internal/model"
	"github.com/LJTian/HotDigest/internal/storage"
)

// DigestReader 读取最近一轮摘要，storage.Store 满足该接口
type DigestReader interface {
	LatestDigest(ctx context.Context) (*model.Result, error)
}

// ChannelStore 渠道登记，storage.Store 满足该接口
type ChannelStore interface {
	ListChannels() ([]storage.Channel, error)
	SetChannelStatus(code, status string) error
}

// Refresher 在后台触发一轮聚合，scheduler.Scheduler 满足该接口
type Refresher interface {
	Trigger() bool
}

type Server struct {
	digests   DigestReader
	channels  ChannelStore
	refresher Refresher
	textOpts  digest.Options
}

func NewServer(digests DigestReader, channels ChannelStore, refresher Refresher, textOpts digest.Options) *Server {
	return &Server{digests: digests, channels: channels, refresher: refresher, textOpts: textOpts}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/digest", s.getDigest)
		v1.GET("/digest/:category", s.getCategory)
		v1.POST("/digest/refresh", s.refresh)
		v1.GET("/sources", s.listSources)
		v1.PUT("/sources/:code/status", s.setSourceStatus)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": msg,
	})
}

func (s *Server) latest(c *gin.Context) (*model.Result, bool) {
	res, err := s.digests.LatestDigest(c.Request.Context())
	if errors.Is(err, storage.ErrNoDigest) {
		fail(c, http.StatusNotFound, "not_found", "no digest yet")
		return nil, false
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return nil, false
	}
	return res, true
}

// getDigest format=text 时返回纯文本摘要
func (s *Server) getDigest(c *gin.Context) {
	res, found := s.latest(c)
	if !found {
		return
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, digest.RenderText(res, s.textOpts))
		return
	}
	ok(c, res)
}

func (s *Server) getCategory(c *gin.Context) {
	res, found := s.latest(c)
	if !found {
		return
	}
	b, exists := res.Bucket(c.Param("category"))
	if !exists {
		fail(c, http.StatusNotFound, "not_found", "unknown category")
		return
	}
	ok(c, b)
}

func (s *Server) refresh(c *gin.Context) {
	if s.refresher == nil || !s.refresher.Trigger() {
		fail(c, http.StatusConflict, "busy", "a digest run is already in progress")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"code":    "accepted",
		"message": "digest run started",
	})
}

func (s *Server) listSources(c *gin.Context) {
	list, err := s.channels.ListChannels()
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if list == nil {
		list = []storage.Channel{}
	}
	ok(c, list)
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=active disabled"`
}

func (s *Server) setSourceStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", "status must be active or disabled")
		return
	}
	err := s.channels.SetChannelStatus(c.Param("code"), req.Status)
	if errors.Is(err, storage.ErrUnknownChannel) {
		fail(c, http.StatusNotFound, "not_found", "unknown source")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	ok(c, gin.H{"code": c.Param("code"), "status": req.Status})
}
