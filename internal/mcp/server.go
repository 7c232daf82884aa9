package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"n8n-workflows/internal/n8n"
	"n8n-workflows/internal/services"
	"n8n-workflows/internal/workflowfile"
	"n8n-workflows/pkg/models"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

type Server struct {
	mcpServer     *server.MCPServer
	deployService *services.DeployService
}

func NewServer(deployService *services.DeployService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"n8n Workflows",
			Version,
			server.WithToolCapabilities(true),
		),
		deployService: deployService,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves the tools over stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List workflows on the n8n instance"),
			mcp.WithBoolean("active", mcp.Description("Only return active workflows")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of workflows to return")),
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_workflow",
			mcp.WithDescription("Get a workflow definition by ID"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The ID of the workflow")),
		),
		s.handleGetWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"activate_workflow",
			mcp.WithDescription("Activate a workflow so its triggers start listening"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The ID of the workflow")),
		),
		s.handleToggle(true),
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"deactivate_workflow",
			mcp.WithDescription("Deactivate a workflow"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The ID of the workflow")),
		),
		s.handleToggle(false),
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"trigger_webhook",
			mcp.WithDescription("Call the production webhook of an active workflow"),
			mcp.WithString("path", mcp.Required(), mcp.Description("The webhook path, without the /webhook/ prefix")),
			mcp.WithString("method", mcp.Description("GET, POST, PUT or DELETE; defaults to GET")),
			mcp.WithObject("body", mcp.Description("JSON body sent with POST and PUT")),
		),
		s.handleTriggerWebhook,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"webhook_url",
			mcp.WithDescription("Find the webhook URL of a workflow"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The ID of the workflow")),
		),
		s.handleWebhookURL,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"deploy_and_run",
			mcp.WithDescription("Create and activate a workflow, then trigger its webhook. Deploys the bundled Hello World workflow when no definition is given"),
			mcp.WithObject("definition", mcp.Description("The workflow definition")),
			mcp.WithString("method", mcp.Description("GET, POST, PUT or DELETE; defaults to GET")),
			mcp.WithObject("body", mcp.Description("JSON body sent with POST and PUT")),
		),
		s.handleDeployAndRun,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_deployments",
			mcp.WithDescription("List recent deploy-and-run attempts"),
			mcp.WithNumber("limit", mcp.Description("Maximum number of deployments to return")),
		),
		s.handleListDeployments,
	)
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	opts := n8n.ListOptions{}
	opts.ActiveOnly, _ = args["active"].(bool)
	if limit, ok := args["limit"].(float64); ok {
		opts.Limit = int(limit)
	}

	workflows, err := s.deployService.Client().List(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list workflows: %v", err)), nil
	}

	type summary struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}
	out := make([]summary, 0, len(workflows))
	for _, wf := range workflows {
		out = append(out, summary{ID: wf.ID, Name: wf.Name, Active: wf.Active})
	}
	return jsonResult(out)
}

func (s *Server) handleGetWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}

	wf, err := s.deployService.Client().Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get workflow: %v", err)), nil
	}
	return jsonResult(wf)
}

func (s *Server) handleToggle(active bool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := arguments(request)
		if !ok {
			return mcp.NewToolResultError("Invalid arguments type"), nil
		}

		id, ok := args["id"].(string)
		if !ok || id == "" {
			return mcp.NewToolResultError("Missing required parameter: id"), nil
		}

		client := s.deployService.Client()
		toggle, verb := client.Activate, "activate"
		if !active {
			toggle, verb = client.Deactivate, "deactivate"
		}
		wf, err := toggle(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to %s workflow: %v", verb, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Workflow %s is now %s", wf.ID, state(wf.Active))), nil
	}
}

func (s *Server) handleTriggerWebhook(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return mcp.NewToolResultError("Missing required parameter: path"), nil
	}
	method, _ := args["method"].(string)

	result, err := s.deployService.Client().TriggerWebhook(ctx, path, method, args["body"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to trigger webhook: %v", err)), nil
	}
	if result == nil {
		return mcp.NewToolResultText("Webhook returned no content"), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

func (s *Server) handleWebhookURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}

	client := s.deployService.Client()
	path, found, err := client.ResolveWebhookPath(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve webhook: %v", err)), nil
	}
	if !found {
		return mcp.NewToolResultError((&n8n.NoWebhookTriggerError{WorkflowID: id}).Error()), nil
	}
	return mcp.NewToolResultText(client.WebhookURL(path)), nil
}

func (s *Server) handleDeployAndRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	definition := workflowfile.HelloWorld()
	if raw, ok := args["definition"].(map[string]interface{}); ok {
		data, err := json.Marshal(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid definition: %v", err)), nil
		}
		if definition, err = models.ParseDocument(data); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid definition: %v", err)), nil
		}
		if err := workflowfile.Validate(definition); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	method, _ := args["method"].(string)
	result, err := s.deployService.DeployAndRun(ctx, definition, n8n.DeployOptions{
		Method: method,
		Body:   args["body"],
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to deploy: %v", err)), nil
	}
	return jsonResult(result)
}

func (s *Server) handleListDeployments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	limit := 0
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	deployments, err := s.deployService.History(ctx, limit)
	if errors.Is(err, services.ErrNoHistory) {
		return mcp.NewToolResultError("Deployment history is not configured"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list deployments: %v", err)), nil
	}
	return jsonResult(deployments)
}

// arguments treats a call without arguments as an empty argument map.
func arguments(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, true
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	return args, ok
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func state(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// SSE stream on /mcp/sse, client messages on /mcp/message
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp/sse", func(w http.ResponseWriter, r *http.Request) {
		// The stream stays open for the whole session, past any server WriteTimeout.
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
		sseServer.ServeHTTP(w, r)
	})
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
