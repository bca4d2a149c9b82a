package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"alfredoptarigan/jd-matcher/internal/models"
)

type View string

const (
	ViewSetup   View = "setup"
	ViewResults View = "results"
)

// RemoteFile is a document already stored on the server.
type RemoteFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FileRef is one entry of the working file set: either a local path
// selected for upload or a reference to a stored document.
type FileRef struct {
	Name string
	Path string
	URL  string
}

func (f FileRef) Remote() bool { return f.Path == "" }

type HistoryItem struct {
	ID           string                 `json:"id"`
	Title        string                 `json:"title"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	JDFileName   string                 `json:"jd_file_name,omitempty"`
	ResumesCount int64                  `json:"resumes_count"`
	Results      *models.AnalysisDetail `json:"results,omitempty"`
}

type persistedState struct {
	History []HistoryItem `json:"history"`
}

// State is the client-side working set: the analysis being prepared, the
// one being viewed, and a history of past analyses. Only the history is
// written to disk.
type State struct {
	mu   sync.Mutex
	path string

	jobTitle      string
	jd            string
	resumes       []string
	jdRemote      *RemoteFile
	resumesRemote []RemoteFile
	view          View
	history       []HistoryItem
	results       *models.AnalysisDetail
	selectedID    string
}

// LoadState reads the history stored at path. A missing or unreadable
// file yields an empty state bound to the same path.
func LoadState(path string) *State {
	s := &State{path: path, view: ViewSetup, history: []HistoryItem{}}
	if path == "" {
		return s
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var p persistedState
	if err := json.Unmarshal(raw, &p); err != nil {
		return s
	}
	if p.History != nil {
		s.history = p.History
	}
	return s
}

// DefaultStatePath is ~/.jd-matcher/state.json.
func DefaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jd-matcher-state.json"
	}
	return filepath.Join(home, ".jd-matcher", "state.json")
}

func (s *State) JobTitle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobTitle
}

func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *State) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

func (s *State) Results() *models.AnalysisDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

func (s *State) History() []HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

func (s *State) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobTitle = title
}

// SetJD selects a local job description; an empty path clears it.
func (s *State) SetJD(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jd = path
}

func (s *State) AddResumes(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumes = append(s.resumes, paths...)
}

// RemoveResumeAt ignores out of range indexes.
func (s *State) RemoveResumeAt(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.resumes) {
		return
	}
	s.resumes = append(s.resumes[:i:i], s.resumes[i+1:]...)
}

// ResetFiles clears the local selections and keeps remote references.
func (s *State) ResetFiles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jd = ""
	s.resumes = nil
}

func (s *State) SetView(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

// SetJDRemote points the JD at a stored document and drops the local one.
func (s *State) SetJDRemote(f *RemoteFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jdRemote = f
	s.jd = ""
}

func (s *State) SetResumesRemote(files []RemoteFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumesRemote = append([]RemoteFile(nil), files...)
}

func (s *State) SetResults(r *models.AnalysisDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = r
}

func (s *State) SetSelected(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = id
}

// SelectAnalysis shows the cached results of a history entry. It reports
// false, and changes nothing, when id is unknown or has no cached results.
func (s *State) SelectAnalysis(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.history {
		if h.ID != id {
			continue
		}
		if h.Results == nil {
			return false
		}
		s.results = h.Results
		s.selectedID = id
		s.view = ViewResults
		return true
	}
	return false
}

// PushHistory puts item first, replacing any entry with the same id.
func (s *State) PushHistory(item HistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]HistoryItem, 0, len(s.history)+1)
	next = append(next, item)
	for _, h := range s.history {
		if h.ID != item.ID {
			next = append(next, h)
		}
	}
	s.history = next
	return s.save()
}

// SetHistory replaces the history, keeping cached results of entries
// that are still present.
func (s *State) SetHistory(items []HistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached := make(map[string]*models.AnalysisDetail, len(s.history))
	for _, h := range s.history {
		if h.Results != nil {
			cached[h.ID] = h.Results
		}
	}

	next := make([]HistoryItem, len(items))
	for i, item := range items {
		if item.Results == nil {
			if r, ok := cached[item.ID]; ok && !item.UpdatedAt.After(r.UpdatedAt) {
				item.Results = r
			}
		}
		next[i] = item
	}
	s.history = next
	return s.save()
}

// CacheResults attaches results to the matching history entry.
func (s *State) CacheResults(id string, r *models.AnalysisDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.history {
		if s.history[i].ID == id {
			s.history[i].Results = r
			return s.save()
		}
	}
	return nil
}

// RemoveHistory drops an entry and leaves the results view if it was the
// selected one.
func (s *State) RemoveHistory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.history[:0:0]
	for _, h := range s.history {
		if h.ID != id {
			next = append(next, h)
		}
	}
	s.history = next
	if s.selectedID == id {
		s.selectedID = ""
		s.results = nil
		s.view = ViewSetup
	}
	return s.save()
}

func (s *State) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = []HistoryItem{}
	return s.save()
}

// NewAnalysis clears the working set and keeps the history.
func (s *State) NewAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobTitle = ""
	s.jd = ""
	s.resumes = nil
	s.jdRemote = nil
	s.resumesRemote = nil
	s.results = nil
	s.selectedID = ""
	s.view = ViewSetup
}

func (s *State) ResetAll() {
	s.NewAnalysis()
}

// Files returns the documents an analyze call would use. A local JD wins
// over the remote one; local resumes, when any are selected, replace the
// remote list.
func (s *State) Files() (jd *FileRef, resumes []FileRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.jd != "":
		jd = &FileRef{Name: filepath.Base(s.jd), Path: s.jd}
	case s.jdRemote != nil:
		jd = &FileRef{Name: s.jdRemote.Name, URL: s.jdRemote.URL}
	}

	if len(s.resumes) > 0 {
		for _, p := range s.resumes {
			resumes = append(resumes, FileRef{Name: filepath.Base(p), Path: p})
		}
		return jd, resumes
	}
	for _, r := range s.resumesRemote {
		resumes = append(resumes, FileRef{Name: r.Name, URL: r.URL})
	}
	return jd, resumes
}

func (s *State) save() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(persistedState{History: s.history}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Join(fmt.Errorf("failed to replace state: %w", err), os.Remove(tmp))
	}
	return nil
}
