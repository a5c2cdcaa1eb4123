package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// errorBody mirrors the control API error envelope.
type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// sessionStatus mirrors GET /api/v1/session.
type sessionStatus struct {
	Profile   string `json:"profile"`
	State     string `json:"state"`
	Scrolling bool   `json:"scrolling"`
	Count     int    `json:"count"`
	File      string `json:"file"`
}

// stopResponse mirrors POST /api/v1/session/stop.
type stopResponse struct {
	Count int    `json:"count"`
	Path  string `json:"path"`
}

// downloadResponse mirrors POST /api/v1/downloads.
type downloadResponse struct {
	Count   int      `json:"count"`
	TaskIDs []string `json:"task_ids"`
}

// downloadTask mirrors one entry of GET /api/v1/downloads.
type downloadTask struct {
	ID              string   `json:"id"`
	URL             string   `json:"url"`
	Status          string   `json:"status"`
	Progress        *float64 `json:"progress"`
	DownloadedBytes int64    `json:"downloaded_bytes"`
	TotalBytes      int64    `json:"total_bytes"`
	Filename        string   `json:"filename"`
	Error           string   `json:"error"`
}

// downloadSettings mirrors the settings in GET /api/v1/settings.
type downloadSettings struct {
	DownloadFolder  string `json:"download_folder"`
	MaxConcurrent   int    `json:"max_concurrent"`
	MaxRetries      int    `json:"max_retries"`
	DownloadTimeout int    `json:"download_timeout"`
	ChunkSize       int    `json:"chunk_size"`
}

// apiClient talks to a running `vidtrack track` control API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func main() {
	apiURL := os.Getenv("VIDTRACK_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8090"
	}
	c := &apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  os.Getenv("VIDTRACK_API_KEY"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}

	if err := server.ServeStdio(newServer(c)); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(c *apiClient) *server.MCPServer {
	s := server.NewMCPServer(
		"vidtrack",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("session_status",
		mcp.WithDescription("Report the running tracking session: profile, state, whether auto-scroll is active and how many video links were found."),
	), handleSessionStatus(c))

	s.AddTool(mcp.NewTool("stop_session",
		mcp.WithDescription("Stop the tracking session and write the collected video links to the profile's export file. Safe to call more than once."),
	), handleStopSession(c))

	s.AddTool(mcp.NewTool("stop_autoscroll",
		mcp.WithDescription("Stop automatic scrolling only; collection continues. Not every profile supports it."),
	), handleStopAutoScroll(c))

	s.AddTool(mcp.NewTool("list_links",
		mcp.WithDescription("Return the video links collected so far, one per line, in discovery order."),
	), handleListLinks(c))

	s.AddTool(mcp.NewTool("enqueue_downloads",
		mcp.WithDescription("Queue video URLs for download to the configured folder. Non-http(s) entries are skipped."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("Direct media URLs to download"),
		),
	), handleEnqueueDownloads(c))

	s.AddTool(mcp.NewTool("download_status",
		mcp.WithDescription("Show download progress for one task, or all tasks when no id is given."),
		mcp.WithString("id",
			mcp.Description("Task ID returned by enqueue_downloads"),
		),
	), handleDownloadStatus(c))

	s.AddTool(mcp.NewTool("download_settings",
		mcp.WithDescription("Show the downloader settings. Passing any value changes it for downloads queued afterwards."),
		mcp.WithNumber("max_concurrent", mcp.Description("Parallel downloads, 1-10")),
		mcp.WithNumber("max_retries", mcp.Description("Retries per download, 1-20")),
		mcp.WithNumber("download_timeout", mcp.Description("Read timeout in seconds, 30-300")),
		mcp.WithNumber("chunk_size", mcp.Description("Copy buffer in KB, 16-1024")),
	), handleDownloadSettings(c))

	return s
}

// do sends a request and returns the body, turning API errors into Go errors.
func (c *apiClient) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil && eb.Error != nil {
			return nil, fmt.Errorf("[%s] %s", eb.Error.Code, eb.Error.Message)
		}
		return nil, fmt.Errorf("API returned HTTP %d", resp.StatusCode)
	}
	return respBody, nil
}

func formatStatus(st sessionStatus) string {
	scrolling := "off"
	if st.Scrolling {
		scrolling = "on"
	}
	return fmt.Sprintf("Profile: %s\nState: %s\nAuto-scroll: %s\nLinks found: %d\nExport file: %s",
		st.Profile, st.State, scrolling, st.Count, st.File)
}

func handleSessionStatus(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := c.do(ctx, http.MethodGet, "/api/v1/session", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var st sessionStatus
		if err := json.Unmarshal(body, &st); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		return mcp.NewToolResultText(formatStatus(st)), nil
	}
}

func handleStopSession(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := c.do(ctx, http.MethodPost, "/api/v1/session/stop", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var sr stopResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Saved %d video link(s) to %s", sr.Count, sr.Path)), nil
	}
}

func handleStopAutoScroll(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := c.do(ctx, http.MethodPost, "/api/v1/session/stop-scroll", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var st sessionStatus
		if err := json.Unmarshal(body, &st); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		return mcp.NewToolResultText("Auto-scroll stopped. Collection continues.\n\n" + formatStatus(st)), nil
	}
}

func handleListLinks(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := c.do(ctx, http.MethodGet, "/api/v1/session/links", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(body) == 0 {
			return mcp.NewToolResultText("No video links found yet."), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func handleEnqueueDownloads(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		body, err := c.do(ctx, http.MethodPost, "/api/v1/downloads", map[string]interface{}{"urls": urls})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var dr downloadResponse
		if err := json.Unmarshal(body, &dr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Queued %d download(s):\n", dr.Count))
		for _, id := range dr.TaskIDs {
			sb.WriteString(id + "\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func formatTask(t downloadTask) string {
	progress := "?"
	if t.Progress != nil {
		progress = fmt.Sprintf("%.1f%%", *t.Progress)
	}
	line := fmt.Sprintf("%s  %s  %s  %d/%d bytes  %s", t.ID, t.Status, progress, t.DownloadedBytes, t.TotalBytes, t.URL)
	if t.Filename != "" {
		line += "  -> " + t.Filename
	}
	if t.Error != "" {
		line += "  (" + t.Error + ")"
	}
	return line
}

func handleDownloadStatus(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if id := request.GetString("id", ""); id != "" {
			body, err := c.do(ctx, http.MethodGet, "/api/v1/downloads/"+id, nil)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			var t downloadTask
			if err := json.Unmarshal(body, &t); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
			}
			return mcp.NewToolResultText(formatTask(t)), nil
		}

		body, err := c.do(ctx, http.MethodGet, "/api/v1/downloads", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var tasks []downloadTask
		if err := json.Unmarshal(body, &tasks); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if len(tasks) == 0 {
			return mcp.NewToolResultText("No downloads."), nil
		}

		var sb strings.Builder
		for _, t := range tasks {
			sb.WriteString(formatTask(t) + "\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

var settingsArgs = []string{"max_concurrent", "max_retries", "download_timeout", "chunk_size"}

func handleDownloadSettings(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		update := map[string]int{}
		args := request.GetArguments()
		for _, name := range settingsArgs {
			if _, ok := args[name]; ok {
				update[name] = request.GetInt(name, 0)
			}
		}

		var (
			body []byte
			err  error
		)
		if len(update) > 0 {
			body, err = c.do(ctx, http.MethodPost, "/api/v1/settings", update)
		} else {
			body, err = c.do(ctx, http.MethodGet, "/api/v1/settings", nil)
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp struct {
			Settings downloadSettings `json:"settings"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		st := resp.Settings
		return mcp.NewToolResultText(fmt.Sprintf(
			"Folder: %s\nMax concurrent: %d\nMax retries: %d\nTimeout: %ds\nChunk size: %d KB",
			st.DownloadFolder, st.MaxConcurrent, st.MaxRetries, st.DownloadTimeout, st.ChunkSize,
		)), nil
	}
}
