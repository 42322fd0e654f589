package imgapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	pathTask       = "/api/v1/directories/task/"
	pathTasks      = "/api/v1/directories/tasks"
	pathProcess    = "/api/v1/directories/process-async"
	pathScan       = "/api/v1/directories/scan"
	pathImages     = "/api/v1/images/"
	pathImageInfo  = "/api/v1/images/info/"
	pathDownload   = "/api/v1/images/download/"
	pathUpload     = "/api/v1/images/upload"
	pathPreload    = "/api/v1/models/preload"
	pathHealth     = "/api/v1/health"
	defaultPageMax = 100
)

// FetchTask retrieves the status of a background task.
func (c *Client) FetchTask(ctx context.Context, id string) (*Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ValidationError{Field: "task id", Reason: "required"}
	}
	var task Task
	rel := &url.URL{Path: pathTask + url.PathEscape(id)}
	if err := c.getJSON(ctx, KindDefault, rel, &task); err != nil {
		return nil, err
	}
	if task.ID == "" {
		task.ID = id
	}
	return &task, nil
}

// ListTasks retrieves the most recent background tasks.
func (c *Client) ListTasks(ctx context.Context, limit int) (TaskList, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var payload TaskList
	rel := &url.URL{Path: pathTasks, RawQuery: values.Encode()}
	if err := c.getJSON(ctx, KindDefault, rel, &payload); err != nil {
		return TaskList{}, err
	}
	return payload, nil
}

// ListImages lists, searches or filters processed images. The budget class
// follows q.Kind().
func (c *Client) ListImages(ctx context.Context, q ImageQuery) ([]ImageInfo, error) {
	values := url.Values{}
	if query := strings.TrimSpace(q.Query); query != "" {
		values.Set("query", query)
	}
	if len(q.Objects) > 0 {
		values.Set("objects", strings.Join(q.Objects, ","))
	}
	limit := q.Limit
	if limit <= 0 || limit > defaultPageMax {
		limit = defaultPageMax
	}
	values.Set("limit", strconv.Itoa(limit))
	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}
	var payload []ImageInfo
	rel := &url.URL{Path: pathImages, RawQuery: values.Encode()}
	if err := c.getJSON(ctx, q.Kind(), rel, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchImageInfo retrieves details for a single image.
func (c *Client) FetchImageInfo(ctx context.Context, id string) (*ImageInfo, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "image id", Reason: "required"}
	}
	var info ImageInfo
	rel := &url.URL{Path: pathImageInfo + url.PathEscape(id)}
	if err := c.getJSON(ctx, KindDefault, rel, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DownloadImage fetches the raw bytes of an image.
func (c *Client) DownloadImage(ctx context.Context, id string) (Blob, error) {
	if strings.TrimSpace(id) == "" {
		return Blob{}, &ValidationError{Field: "image id", Reason: "required"}
	}
	req, err := c.newRequest(http.MethodGet, &url.URL{Path: pathDownload + url.PathEscape(id)}, nil)
	if err != nil {
		return Blob{}, err
	}
	resp, err := c.Call(ctx, KindDefault, req)
	if err != nil {
		return Blob{}, err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(resp.Body)
	}
	return Blob{Data: resp.Body, ContentType: contentType}, nil
}

// ProcessDirectory submits a directory for background ingestion and returns
// the task to poll.
func (c *Client) ProcessDirectory(ctx context.Context, req ProcessDirectoryRequest) (TaskTicket, error) {
	if strings.TrimSpace(req.DirectoryPath) == "" {
		return TaskTicket{}, &ValidationError{Field: "directory path", Reason: "required"}
	}
	var ticket TaskTicket
	if err := c.postJSON(ctx, KindProcessing, &url.URL{Path: pathProcess}, req, &ticket); err != nil {
		return TaskTicket{}, err
	}
	if ticket.TaskID == "" {
		return TaskTicket{}, fmt.Errorf("process directory: response missing task_id")
	}
	return ticket, nil
}

// ScanDirectory reports which images in a directory are new.
func (c *Client) ScanDirectory(ctx context.Context, dir string, recursive bool) (ScanResult, error) {
	if strings.TrimSpace(dir) == "" {
		return ScanResult{}, &ValidationError{Field: "directory path", Reason: "required"}
	}
	values := url.Values{}
	values.Set("directory_path", dir)
	if recursive {
		values.Set("recursive", "true")
	}
	var payload ScanResult
	rel := &url.URL{Path: pathScan, RawQuery: values.Encode()}
	if err := c.getJSON(ctx, KindProcessing, rel, &payload); err != nil {
		return ScanResult{}, err
	}
	return payload, nil
}

// UploadImage uploads a local image file.
func (c *Client) UploadImage(ctx context.Context, path string, opts UploadOptions) (UploadResult, error) {
	if strings.TrimSpace(path) == "" {
		return UploadResult{}, &ValidationError{Field: "file path", Reason: "required"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("read upload: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", http.DetectContentType(data))
	part, err := writer.CreatePart(header)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return UploadResult{}, fmt.Errorf("write form file: %w", err)
	}
	_ = writer.WriteField("process_immediately", strconv.FormatBool(opts.ProcessImmediately))
	_ = writer.WriteField("overwrite", strconv.FormatBool(opts.Overwrite))
	if err := writer.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("close form: %w", err)
	}

	req, err := c.newRequest(http.MethodPost, &url.URL{Path: pathUpload}, &buf)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var result UploadResult
	if err := c.callJSON(ctx, KindUpload, req, &result); err != nil {
		return UploadResult{}, err
	}
	return result, nil
}

// PreloadModels asks the server to load its models. The server answers 200
// even on failure, so an unsuccessful payload is returned as an error.
func (c *Client) PreloadModels(ctx context.Context) (PreloadResult, error) {
	var result PreloadResult
	if err := c.postJSON(ctx, KindPreload, &url.URL{Path: pathPreload}, nil, &result); err != nil {
		return PreloadResult{}, err
	}
	if !result.Success {
		msg := strings.TrimSpace(result.Error)
		if msg == "" {
			msg = "unknown error"
		}
		return result, fmt.Errorf("preload models: %s", msg)
	}
	return result, nil
}

// Health performs a lightweight availability check.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.getJSON(ctx, KindHealth, &url.URL{Path: pathHealth}, &health); err != nil {
		return nil, err
	}
	return &health, nil
}
