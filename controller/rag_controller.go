package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"secondbrain/models"
	"secondbrain/services"
	"secondbrain/vectorindex"
)

// RAGController handles the HTTP requests for the note store. It depends
// on the RAGService to perform the actual pipeline work and touches the
// index gateway directly only for the health surface.
type RAGController struct {
	ragService services.RAGService
	index      vectorindex.Index
}

// NewRAGController is called from main to inject the dependencies.
func NewRAGController(service services.RAGService, index vectorindex.Index) *RAGController {
	return &RAGController{ragService: service, index: index}
}

// RegisterRoutes mounts the versioned API onto the router.
func (c *RAGController) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/v1")
	{
		v1.GET("/health", c.Health)
		v1.GET("/vd-check", c.IndexCheck)
		v1.GET("/debug/embed", c.DebugEmbed)
		v1.POST("/nodes", c.IngestNote)
		v1.GET("/nodes", c.ListNotes)
		v1.GET("/search", c.Search)
		v1.POST("/chat", c.Chat)
		v1.POST("/route", c.Route)
	}
	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, errorBody("not_found", "Route not found"))
	})
}

// IngestNote handles POST /v1/nodes.
func (c *RAGController) IngestNote(ctx *gin.Context) {
	var req models.IngestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody("bad_request", "Invalid request body: "+err.Error()))
		return
	}

	resp, err := c.ragService.IngestNote(ctx.Request.Context(), req)
	if err != nil {
		c.fail(ctx, "ingest failed", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ListNotes handles GET /v1/nodes.
func (c *RAGController) ListNotes(ctx *gin.Context) {
	limit := queryInt(ctx, "limit", 20)
	offset := queryInt(ctx, "offset", 0)

	previews, err := c.ragService.ListNotes(ctx.Request.Context(), limit, offset)
	if err != nil {
		c.fail(ctx, "list failed", err)
		return
	}
	ctx.JSON(http.StatusOK, previews)
}

// Search handles GET /v1/search.
func (c *RAGController) Search(ctx *gin.Context) {
	q := ctx.Query("q")
	k := queryInt(ctx, "k", 5)

	hits, err := c.ragService.Search(ctx.Request.Context(), q, k)
	if err != nil {
		c.fail(ctx, "search failed", err)
		return
	}
	ctx.JSON(http.StatusOK, hits)
}

// Chat handles POST /v1/chat.
func (c *RAGController) Chat(ctx *gin.Context) {
	var req models.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody("bad_request", "Invalid request body: "+err.Error()))
		return
	}

	resp, err := c.ragService.Chat(ctx.Request.Context(), req)
	if err != nil {
		c.fail(ctx, "chat failed", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Route handles POST /v1/route.
func (c *RAGController) Route(ctx *gin.Context) {
	var req models.RouteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody("bad_request", "Invalid request body: "+err.Error()))
		return
	}

	resp, err := c.ragService.Route(ctx.Request.Context(), req)
	if err != nil {
		c.fail(ctx, "route failed", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Health handles GET /v1/health.
func (c *RAGController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

// IndexCheck handles GET /v1/vd-check, pinging the vector index.
func (c *RAGController) IndexCheck(ctx *gin.Context) {
	collections, err := c.index.Collections(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"index": "down", "error": err.Error()})
		return
	}
	chunks, err := c.ragService.TotalChunks(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"index": "down", "error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"index": "up", "collections": collections, "chunks": chunks})
}

// DebugEmbed handles GET /v1/debug/embed, probing the embedding provider.
func (c *RAGController) DebugEmbed(ctx *gin.Context) {
	dims, err := c.ragService.EmbedProbe(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"ok": true, "dims": dims})
}

// fail maps service errors onto the response envelope: validation faults
// are the client's, everything else stays a generic 500 with the detail in
// the server log only.
func (c *RAGController) fail(ctx *gin.Context, message string, err error) {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		ctx.JSON(http.StatusBadRequest, errorBody("bad_request", vErr.Msg))
		return
	}
	logrus.Errorf("CONTROLLER: %s: %v", message, err)
	ctx.JSON(http.StatusInternalServerError, errorBody("internal_error", message))
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

func queryInt(ctx *gin.Context, key string, fallback int) int {
	v := ctx.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
