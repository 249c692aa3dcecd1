package handlers

import (
	"fmt"
	"net/http"
)

// DocsUI handles GET /api/docs with a Swagger UI page over DocsSpec.
func (h *Handlers) DocsUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(swaggerUIHTML))
}

// DocsSpec handles GET /api/docs/openapi.json.
func (h *Handlers) DocsSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, openAPISpec(h.version))
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>mtag API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css">
    <style>
        body { margin: 0; background: #1a1a2e; }
        .swagger-ui .topbar { display: none; }
        .swagger-ui { max-width: 1200px; margin: 0 auto; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: '/api/docs/openapi.json',
            dom_id: '#swagger-ui',
            deepLinking: true,
            presets: [SwaggerUIBundle.presets.apis],
            tryItOutEnabled: true,
        });
    </script>
</body>
</html>`

func openAPISpec(version string) string {
	return fmt.Sprintf(`{
  "openapi": "3.0.3",
  "info": {
    "title": "mtag API",
    "description": "Review MP3 files in a directory, match them against the NetEase catalog and write ID3v2.3 tags.",
    "version": %q
  },
  "servers": [{"url": "/"}],
  "tags": [
    {"name": "system", "description": "Health, logs and catalog state"},
    {"name": "directory", "description": "Directory selection and file list"},
    {"name": "session", "description": "The file under review"},
    {"name": "catalog", "description": "NetEase lookups"}
  ],
  "paths": {
    "/api/health": {"get": {"tags": ["system"], "summary": "Service health, catalog cache and breaker state",
      "responses": {"200": {"description": "Health report"}}}},
    "/api/logs": {"get": {"tags": ["system"], "summary": "Recent log entries, newest first",
      "parameters": [
        {"name": "level", "in": "query", "schema": {"type": "string", "enum": ["DEBUG", "INFO", "WARN", "ERROR"]}},
        {"name": "q", "in": "query", "schema": {"type": "string"}},
        {"name": "since", "in": "query", "schema": {"type": "string", "format": "date-time"}},
        {"name": "limit", "in": "query", "schema": {"type": "integer", "minimum": 1, "maximum": 1000}}
      ],
      "responses": {"200": {"description": "Log entries"}, "400": {"description": "Bad filter"}}}},
    "/api/catalog/reset": {"post": {"tags": ["system"], "summary": "Close the catalog circuit breaker and clear cached responses",
      "responses": {"200": {"description": "Reset"}}}},
    "/api/events": {"get": {"tags": ["system"], "summary": "WebSocket stream of directory changes",
      "responses": {"101": {"description": "Switching protocols"}}}},
    "/api/dir": {
      "get": {"tags": ["directory"], "summary": "Current directory", "responses": {"200": {"description": "Directory"}}},
      "put": {"tags": ["directory"], "summary": "Scan a directory and start a new session",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/DirRequest"}}}},
        "responses": {"200": {"description": "File list"}, "404": {"description": "No MP3 files or unreadable directory"}}}
    },
    "/api/files": {"get": {"tags": ["directory"], "summary": "Files ordered by remaining work",
      "responses": {"200": {"description": "File list"}}}},
    "/api/session": {"get": {"tags": ["session"], "summary": "Session state", "responses": {"200": {"description": "State"}}}},
    "/api/session/open": {"post": {"tags": ["session"], "summary": "Open a file by path or index",
      "requestBody": {"required": true, "content": {"application/json": {"schema": {"type": "object", "properties": {"path": {"type": "string"}, "index": {"type": "integer"}}}}}},
      "responses": {"200": {"description": "State"}, "400": {"description": "Neither or both of path and index"}, "404": {"description": "Path not listed or index out of range"}, "422": {"description": "Unreadable tag"}}}},
    "/api/session/move": {"post": {"tags": ["session"], "summary": "Move the cursor by delta",
      "requestBody": {"required": true, "content": {"application/json": {"schema": {"type": "object", "properties": {"delta": {"type": "integer"}}}}}},
      "responses": {"200": {"description": "State"}, "404": {"description": "Moved past either end"}}}},
    "/api/session/cover": {"get": {"tags": ["session"], "summary": "Pending cover image",
      "responses": {"200": {"description": "Image bytes"}, "404": {"description": "No cover"}}}},
    "/api/session/edit": {"put": {"tags": ["session"], "summary": "Overlay manual edits on the pending values",
      "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/EditRequest"}}}},
      "responses": {"200": {"description": "State"}, "409": {"description": "No file open"}}}},
    "/api/session/candidates": {"get": {"tags": ["catalog"], "summary": "Search the catalog with the open file's search key",
      "responses": {"200": {"description": "Query and songs"}, "404": {"description": "No results"}, "502": {"description": "Catalog error"}, "503": {"description": "Catalog circuit open"}}}},
    "/api/session/select": {"post": {"tags": ["catalog"], "summary": "Apply a candidate's tags, lyrics and cover to the pending values",
      "requestBody": {"required": true, "content": {"application/json": {"schema": {"type": "object", "properties": {"id": {"type": "integer", "format": "int64"}}}}}},
      "responses": {"200": {"description": "State"}, "404": {"description": "Unknown candidate"}}}},
    "/api/session/save": {"post": {"tags": ["session"], "summary": "Write the pending values and open the next file",
      "responses": {"200": {"description": "State"}, "409": {"description": "No file open"}}}},
    "/api/lyrics/{id}": {"get": {"tags": ["catalog"], "summary": "Decoded lyrics of a catalog song",
      "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "integer", "format": "int64"}}],
      "responses": {"200": {"description": "Lines and LRC text"}}}},
    "/api/history": {"get": {"tags": ["session"], "summary": "Saved edits, newest first",
      "parameters": [
        {"name": "path", "in": "query", "schema": {"type": "string"}},
        {"name": "limit", "in": "query", "schema": {"type": "integer", "minimum": 1}}
      ],
      "responses": {"200": {"description": "Edits"}}}}
  },
  "components": {
    "schemas": {
      "DirRequest": {"type": "object", "properties": {"dir": {"type": "string"}}, "required": ["dir"]},
      "EditRequest": {"type": "object", "properties": {
        "title": {"type": "string"}, "album": {"type": "string"}, "artist": {"type": "string"},
        "url": {"type": "string"}, "lyrics": {"type": "string", "description": "LRC text"}
      }}
    }
  }
}`, version)
}
