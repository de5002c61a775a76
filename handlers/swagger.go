package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the Swagger UI page and the OpenAPI document for
// the posts service.
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>igap-club posts - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "igap-club posts", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Post": {
        "type": "object",
        "properties": {
          "id": {"type":"string"}, "title": {"type":"string","maxLength":100},
          "description": {"type":"string","maxLength":200}, "content": {"type":"string"},
          "tags": {"type":"array","items":{"type":"string"},"minItems":1}, "author": {"type":"string"},
          "authorId": {"type":"string"}, "wordCount": {"type":"integer","maximum":300},
          "createdAt": {"type":"string","format":"date-time"}, "updatedAt": {"type":"string","format":"date-time"}
        }
      },
      "PostInput": {
        "type": "object",
        "required": ["title","description","content","tags"],
        "properties": {
          "title": {"type":"string"}, "description": {"type":"string"}, "content": {"type":"string"},
          "tags": {"type":"array","items":{"type":"string"}}
        }
      },
      "Error": { "type": "object", "properties": { "error": {"type":"string"}, "field": {"type":"string"} } }
    }
  },
  "paths": {
    "/api/posts": {
      "get": { "summary": "List posts newest first (no content)", "responses": { "200": { "description": "post summaries" } } },
      "post": {
        "summary": "Create a post", "security": [{"bearer": []}],
        "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/PostInput"} } } },
        "responses": { "201": { "description": "created" }, "400": { "description": "validation failed" }, "401": { "description": "authentication required" } }
      }
    },
    "/api/posts/{id}": {
      "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}],
      "get": { "summary": "Get a post with content", "responses": { "200": { "description": "post" }, "404": { "description": "post or content not found" } } },
      "put": { "summary": "Update supplied fields", "security": [{"bearer": []}], "responses": { "200": { "description": "updated" }, "400": { "description": "validation failed" }, "401": { "description": "authentication required" }, "403": { "description": "not the owner" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update supplied fields", "security": [{"bearer": []}], "responses": { "200": { "description": "updated" }, "400": { "description": "validation failed" }, "401": { "description": "authentication required" }, "403": { "description": "not the owner" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a post", "security": [{"bearer": []}], "responses": { "200": { "description": "Post deleted successfully" }, "401": { "description": "authentication required" }, "403": { "description": "not the owner" }, "404": { "description": "not found" } } }
    },
    "/api/posts/{id}/preview": {
      "get": { "summary": "Render post content as sanitized HTML", "responses": { "200": { "description": "text/html" }, "404": { "description": "not found" } } }
    },
    "/api/auth/logout": {
      "post": { "summary": "Revoke the presented access token", "security": [{"bearer": []}], "responses": { "200": { "description": "logged out" }, "401": { "description": "invalid token" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Get user info", "security": [{"bearer": []}], "responses": { "200": { "description": "user or claims" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
