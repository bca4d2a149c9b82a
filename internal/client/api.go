package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"alfredoptarigan/jd-matcher/internal/models"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
}

// API talks to the matcher HTTP server.
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		// scoring a batch of resumes can take minutes
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

type formFile struct {
	field string
	path  string
}

func (a *API) CreateAnalysis(ctx context.Context, title, jdPath string, resumePaths []string) (*models.AnalysisResult, error) {
	files := []formFile{{field: "jd", path: jdPath}}
	for _, p := range resumePaths {
		files = append(files, formFile{field: "candidates", path: p})
	}

	var out models.AnalysisResult
	if err := a.doMultipart(ctx, http.MethodPost, "/analyses", map[string]string{"title": title}, files, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAnalysis renames the job when title is set and rescores every
// candidate when jdPath is set.
func (a *API) UpdateAnalysis(ctx context.Context, id string, title *string, jdPath string) (*models.AnalysisDetail, error) {
	fields := map[string]string{}
	if title != nil {
		fields["title"] = *title
	}
	var files []formFile
	if jdPath != "" {
		files = append(files, formFile{field: "jd", path: jdPath})
	}

	var out models.AnalysisDetail
	if err := a.doMultipart(ctx, http.MethodPut, "/analyses/"+url.PathEscape(id), fields, files, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ListAnalyses(ctx context.Context) ([]models.AnalysisSummary, error) {
	var out []models.AnalysisSummary
	if err := a.doJSON(ctx, http.MethodGet, "/analyses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) GetAnalysis(ctx context.Context, id string) (*models.AnalysisDetail, error) {
	var out models.AnalysisDetail
	if err := a.doJSON(ctx, http.MethodGet, "/analyses/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) DeleteAnalysis(ctx context.Context, id string) error {
	return a.doJSON(ctx, http.MethodDelete, "/analyses/"+url.PathEscape(id), nil)
}

// ExportAnalysis returns the workbook bytes and the server-suggested file name.
func (a *API) ExportAnalysis(ctx context.Context, id string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/analyses/"+url.PathEscape(id)+"/export", nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, "", decodeAPIError(resp.StatusCode, body)
	}

	filename := "analysis.xlsx"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = filepath.Base(params["filename"])
	}
	return body, filename, nil
}

func (a *API) ListJobs(ctx context.Context) ([]models.JobListItem, error) {
	var out []models.JobListItem
	if err := a.doJSON(ctx, http.MethodGet, "/jobs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) GetJob(ctx context.Context, id string) (*models.JobDetail, error) {
	var out models.JobDetail
	if err := a.doJSON(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) AddCandidates(ctx context.Context, jobID string, paths []string) ([]models.UploadedCandidate, error) {
	files := make([]formFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, formFile{field: "files", path: p})
	}

	var out struct {
		Candidates []models.UploadedCandidate `json:"candidates"`
	}
	if err := a.doMultipart(ctx, http.MethodPost, "/jobs/"+url.PathEscape(jobID)+"/candidates/many", nil, files, &out); err != nil {
		return nil, err
	}
	return out.Candidates, nil
}

func (a *API) SearchCandidates(ctx context.Context, jobID, query string, limit int) ([]models.SearchHit, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out []models.SearchHit
	if err := a.doJSON(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID)+"/candidates/search?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) doJSON(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return a.send(req, out)
}

func (a *API) doMultipart(ctx context.Context, method, path string, fields map[string]string, files []formFile, out interface{}) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, f := range files {
		if err := attachFile(w, f); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return a.send(req, out)
}

func attachFile(w *multipart.Writer, f formFile) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, filepath.Base(f.path)))
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

func (a *API) send(req *http.Request, out interface{}) error {
	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{Status: status, Code: payload.Code, Message: payload.Error}
}
