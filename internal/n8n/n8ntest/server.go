// Package n8ntest provides an in-memory n8n server for tests. It implements
// the workflow endpoints of the public API and serves /webhook/{path} for
// active workflows with a webhook trigger node.
package n8ntest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"n8n-workflows/pkg/models"
)

// APIKeyHeader matches the header the real server checks.
const APIKeyHeader = "X-N8N-API-KEY"

// Request is a call the server received.
type Request struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   []byte
}

// WebhookFunc computes the response to a webhook call.
type WebhookFunc func(wf *models.Workflow, method string, body []byte) (int, interface{})

// Server is a fake n8n instance listening on a local port.
type Server struct {
	*httptest.Server

	APIKey string

	mu               sync.Mutex
	executeSupported bool
	onWebhook        WebhookFunc
	workflows        map[string]*models.Document
	order            []string
	requests         []Request
}

// NewServer starts a server that accepts apiKey.
func NewServer(apiKey string) *Server {
	s := &Server{
		APIKey:    apiKey,
		workflows: make(map[string]*models.Document),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.record)

	api := e.Group("/api/v1", s.requireAPIKey)
	api.POST("/workflows", s.createWorkflow)
	api.GET("/workflows", s.listWorkflows)
	api.GET("/workflows/:id", s.getWorkflow)
	api.PUT("/workflows/:id", s.updateWorkflow)
	api.PATCH("/workflows/:id", s.patchWorkflow)
	api.DELETE("/workflows/:id", s.deleteWorkflow)
	api.POST("/workflows/:id/activate", s.setActive(true))
	api.POST("/workflows/:id/deactivate", s.setActive(false))
	api.POST("/workflows/:id/execute", s.executeWorkflow)

	e.Any("/webhook/*", s.webhook)

	s.Server = httptest.NewServer(e)
	return s
}

// SetExecuteSupported makes POST /workflows/{id}/execute succeed. It is
// off by default, as on most n8n versions.
func (s *Server) SetExecuteSupported(ok bool) {
	s.mu.Lock()
	s.executeSupported = ok
	s.mu.Unlock()
}

// HandleWebhook overrides the default webhook response.
func (s *Server) HandleWebhook(fn WebhookFunc) {
	s.mu.Lock()
	s.onWebhook = fn
	s.mu.Unlock()
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests returns how many requests matched method and path prefix.
func (s *Server) CountRequests(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

// Workflow returns the stored workflow with id.
func (s *Server) Workflow(id string) (*models.Workflow, bool) {
	s.mu.Lock()
	doc, ok := s.workflows[id]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	wf, err := view(doc)
	if err != nil {
		return nil, false
	}
	return wf, true
}

// Len returns the number of stored workflows.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workflows)
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		body, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: req.Method,
			Path:   req.URL.Path,
			Query:  req.URL.RawQuery,
			APIKey: req.Header.Get(APIKeyHeader),
			Body:   body,
		})
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get(APIKeyHeader) != s.APIKey {
			return c.JSON(http.StatusUnauthorized, message("unauthorized"))
		}
		return next(c)
	}
}

func (s *Server) createWorkflow(c echo.Context) error {
	doc, err := readDocument(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, message("request/body must be object"))
	}
	if doc.String("name") == "" {
		return c.JSON(http.StatusBadRequest, message("request/body must have required property 'name'"))
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	doc.Delete("id")
	_ = doc.Set("id", id)
	_ = doc.Set("active", false)

	s.mu.Lock()
	s.workflows[id] = doc
	s.order = append(s.order, id)
	s.mu.Unlock()

	return c.JSON(http.StatusOK, doc)
}

func (s *Server) listWorkflows(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	start, _ := strconv.Atoi(c.QueryParam("cursor"))

	s.mu.Lock()
	var matched []*models.Document
	for _, id := range s.order {
		doc, ok := s.workflows[id]
		if !ok {
			continue
		}
		if activeOnly && !isActive(doc) {
			continue
		}
		matched = append(matched, doc)
	}
	s.mu.Unlock()

	page := struct {
		Data       []*models.Document `json:"data"`
		NextCursor *string            `json:"nextCursor"`
	}{Data: []*models.Document{}}
	if start < len(matched) {
		end := len(matched)
		if limit > 0 && start+limit < end {
			end = start + limit
			next := strconv.Itoa(end)
			page.NextCursor = &next
		}
		page.Data = matched[start:end]
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) getWorkflow(c echo.Context) error {
	doc, ok := s.lookup(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, message("Not Found"))
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) updateWorkflow(c echo.Context) error {
	id := c.Param("id")
	doc, err := readDocument(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, message("request/body must be object"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.workflows[id]
	if !ok {
		return c.JSON(http.StatusNotFound, message("Not Found"))
	}
	doc.Delete("id")
	_ = doc.Set("id", id)
	_ = doc.Set("active", isActive(old))
	s.workflows[id] = doc
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) patchWorkflow(c echo.Context) error {
	id := c.Param("id")
	patch, err := readDocument(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, message("request/body must be object"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.workflows[id]
	if !ok {
		return c.JSON(http.StatusNotFound, message("Not Found"))
	}
	for _, key := range patch.Keys() {
		if key == "id" {
			continue
		}
		raw, _ := patch.Raw(key)
		_ = doc.Set(key, raw)
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) deleteWorkflow(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.workflows[id]
	if !ok {
		return c.JSON(http.StatusNotFound, message("Not Found"))
	}
	delete(s.workflows, id)
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) setActive(active bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		doc, ok := s.workflows[c.Param("id")]
		if !ok {
			return c.JSON(http.StatusNotFound, message("Not Found"))
		}
		_ = doc.Set("active", active)
		return c.JSON(http.StatusOK, doc)
	}
}

func (s *Server) executeWorkflow(c echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	supported := s.executeSupported
	s.mu.Unlock()
	if !supported {
		return c.JSON(http.StatusNotFound, message("Not Found"))
	}
	if _, ok := s.lookup(id); !ok {
		return c.JSON(http.StatusNotFound, message("Not Found"))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"executionId": uuid.NewString(),
		"workflowId":  id,
		"finished":    true,
	})
}

func (s *Server) webhook(c echo.Context) error {
	path := strings.Trim(c.Param("*"), "/")
	method := c.Request().Method
	body, _ := io.ReadAll(c.Request().Body)

	wf := s.findWebhook(path, method)
	if wf == nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"code":    404,
			"message": fmt.Sprintf("The requested webhook \"%s %s\" is not registered.", method, path),
		})
	}

	s.mu.Lock()
	handle := s.onWebhook
	s.mu.Unlock()
	if handle != nil {
		status, resp := handle(wf, method, body)
		if resp == nil {
			return c.NoContent(status)
		}
		return c.JSON(status, resp)
	}

	var received interface{} = map[string]interface{}{}
	if len(bytes.TrimSpace(body)) > 0 {
		_ = json.Unmarshal(body, &received)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":    "Hello World from " + wf.Name + "!",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"workflowId": wf.ID,
		"method":     method,
		"body":       received,
	})
}

func (s *Server) findWebhook(path, method string) *models.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		doc, ok := s.workflows[id]
		if !ok || !isActive(doc) {
			continue
		}
		wf, err := view(doc)
		if err != nil {
			continue
		}
		for _, n := range wf.Nodes {
			if n.IsWebhookTrigger() && n.WebhookPath() == path && n.HTTPMethod() == method {
				return wf
			}
		}
	}
	return nil
}

func (s *Server) lookup(id string) (*models.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.workflows[id]
	return doc, ok
}

func readDocument(c echo.Context) (*models.Document, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	return models.ParseDocument(body)
}

func view(doc *models.Document) (*models.Workflow, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var wf models.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

func isActive(doc *models.Document) bool {
	var active bool
	_, _ = doc.Decode("active", &active)
	return active
}

func message(msg string) map[string]string {
	return map[string]string{"message": msg}
}
