package handler

import (
	"errors"
	"net/http"

	"github.com/akm-xdd/igap-club/internal/identity"
	"github.com/akm-xdd/igap-club/internal/post"
	"github.com/akm-xdd/igap-club/internal/post/service"
	"github.com/akm-xdd/igap-club/internal/render"
	"github.com/gin-gonic/gin"
)

// principal returns the caller set by the auth middleware, or nil.
func principal(c *gin.Context) *identity.Principal {
	if v, ok := c.Get(identity.ContextKey); ok {
		if p, ok := v.(*identity.Principal); ok {
			return p
		}
	}
	return identity.FromContext(c.Request.Context())
}

func writeError(c *gin.Context, err error) {
	var ve *post.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Reason, "field": ve.Field})
	case errors.Is(err, post.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, post.ErrContentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Post content not found"})
	case errors.Is(err, post.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
	case errors.Is(err, post.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	case errors.Is(err, post.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own posts"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// RegisterPostRoutes mounts the posts API on r. Authentication middleware,
// when wanted, is attached by the caller to r.
func RegisterPostRoutes(r gin.IRouter, svc service.Service) {
	r.GET("/api/posts", func(c *gin.Context) {
		list, err := svc.List(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.POST("/api/posts", func(c *gin.Context) {
		var req post.CreateInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		p, err := svc.Create(c.Request.Context(), req, principal(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	})

	r.GET("/api/posts/:id", func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	update := func(c *gin.Context) {
		var req post.UpdateInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		p, err := svc.Update(c.Request.Context(), c.Param("id"), req, principal(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
	r.PUT("/api/posts/:id", update)
	r.PATCH("/api/posts/:id", update)

	r.DELETE("/api/posts/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id"), principal(c)); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
	})

	r.GET("/api/posts/:id/preview", func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		html, err := render.Markdown(p.Content)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	})
}
