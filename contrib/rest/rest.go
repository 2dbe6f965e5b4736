// Package rest exposes the objects of a session over HTTP with gin.
//
//	r := gin.New()
//	rest.New(sess, db).Register(r.Group("/api"))
//
// Objects are created from JSON bodies in the form accepted by
// session.FromMap and returned as the relaxed extended JSON of their
// stored documents.
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/syssam/docmap"
	"github.com/syssam/docmap/dialect/document"
	"github.com/syssam/docmap/dialect/document/docgraph"
	"github.com/syssam/docmap/session"
)

// Handler serves the objects of a session.
type Handler struct {
	sess     *session.Session
	db       document.Database
	resolver *docgraph.Resolver
	logger   *zap.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger of the handler. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New returns a handler for the objects of sess, stored in db.
func New(sess *session.Session, db document.Database, opts ...Option) *Handler {
	h := &Handler{
		sess:     sess,
		db:       db,
		resolver: docgraph.NewResolver(sess.Graph()),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the routes of the handler to r:
//
//	GET    /:type/_layout
//	POST   /:type
//	GET    /:type/:id
//	DELETE /:type/:id
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/:type/_layout", h.layout)
	r.POST("/:type", h.create)
	r.GET("/:type/:id", h.get)
	r.DELETE("/:type/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	ctx := c.Request.Context()
	o, err := h.sess.FromMap(ctx, c.Param("type"), body)
	if err != nil {
		h.fail(c, err)
		return
	}
	if o.Type().Root().Embeddable {
		c.JSON(http.StatusBadRequest, gin.H{"error": "embeddable objects are stored inside their owners"})
		return
	}
	if err := h.sess.Persist(ctx, o); err != nil {
		h.fail(c, err)
		return
	}
	h.document(c, http.StatusCreated, o)
}

func (h *Handler) get(c *gin.Context) {
	o, err := h.sess.Find(c.Request.Context(), c.Param("type"), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.document(c, http.StatusOK, o)
}

func (h *Handler) delete(c *gin.Context) {
	ctx := c.Request.Context()
	o, err := h.sess.Find(ctx, c.Param("type"), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.sess.Delete(ctx, o); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// layoutColumn is the JSON form of a docgraph.Column.
type layoutColumn struct {
	Node          string   `json:"node,omitempty"`
	Field         string   `json:"field"`
	Shape         string   `json:"shape"`
	Columns       []string `json:"columns"`
	Discriminator bool     `json:"discriminator,omitempty"`
}

func (h *Handler) layout(c *gin.Context) {
	t, err := h.sess.Graph().Type(c.Param("type"))
	if err != nil {
		h.fail(c, err)
		return
	}
	cols, err := docgraph.Layout(h.resolver, t)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]layoutColumn, len(cols))
	for i, col := range cols {
		out[i] = layoutColumn{
			Node:          col.Node,
			Field:         col.Field,
			Shape:         col.Shape.String(),
			Columns:       col.Names,
			Discriminator: col.Discriminator,
		}
	}
	c.JSON(http.StatusOK, out)
}

// document writes the stored document of o.
func (h *Handler) document(c *gin.Context, code int, o *session.Object) {
	doc, err := h.db.Collection(o.Type().Root().Collection).Get(c.Request.Context(), o.ID())
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := doc.ExtJSON(false)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(code, "application/json; charset=utf-8", data)
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case docmap.IsNotFound(err), document.IsNoDocument(err):
		code = http.StatusNotFound
	case docmap.IsConfigurationError(err), docmap.IsNotCascaded(err):
		code = http.StatusBadRequest
	case docmap.IsUnsupported(err):
		code = http.StatusUnprocessableEntity
	}
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
