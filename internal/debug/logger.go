// Package debug dumps per-generation artifacts to numbered files so a
// misbehaving conversion can be replayed offline.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const maxKeepDirs = 20

// Logger writes one directory per generation. A disabled logger is a valid
// zero-cost no-op so call sites never branch.
type Logger struct {
	enabled       bool
	dir           string
	snapshotsFile *os.File
	chunksFile    *os.File
	mu            sync.Mutex
	startTime     time.Time
}

func New(enabled bool, baseDir string, responseID int64) *Logger {
	if !enabled {
		return &Logger{}
	}
	if baseDir == "" {
		baseDir = "debug-logs"
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	dir := filepath.Join(baseDir, fmt.Sprintf("%s_gen%d", timestamp, responseID))
	os.MkdirAll(dir, 0755)
	cleanupOldDirs(baseDir, maxKeepDirs)

	return &Logger{
		enabled:   true,
		dir:       dir,
		startTime: time.Now(),
	}
}

// CleanupAllLogs removes every previous dump. Called once at startup.
func CleanupAllLogs(baseDir string) {
	if baseDir == "" {
		baseDir = "debug-logs"
	}
	os.RemoveAll(baseDir)
	os.MkdirAll(baseDir, 0755)
}

func (l *Logger) Dir() string {
	if !l.enabled {
		return ""
	}
	return l.dir
}

// LogRequest records the incoming completion request.
func (l *Logger) LogRequest(req interface{}) {
	l.writeJSON("1_request.json", req)
}

// LogPrompt records the formatted prompt pasted into the page.
func (l *Logger) LogPrompt(prompt string) {
	l.writeFile("2_prompt.md", prompt)
}

// LogSnapshot appends one converted snapshot with its elapsed offset.
func (l *Logger) LogSnapshot(markdown string) {
	l.appendLine(&l.snapshotsFile, "3_snapshots.jsonl", markdown)
}

// LogChunk appends one chunk as emitted to the client.
func (l *Logger) LogChunk(content string) {
	l.appendLine(&l.chunksFile, "4_chunks.jsonl", content)
}

// LogResponse records the final assembled response body.
func (l *Logger) LogResponse(content string) {
	l.writeFile("5_response.md", content)
}

// LogSummary records how the generation ended.
func (l *Logger) LogSummary(outcome string, chunks int, duration time.Duration) {
	l.writeJSON("6_summary.json", map[string]interface{}{
		"outcome":     outcome,
		"chunks":      chunks,
		"duration_ms": duration.Milliseconds(),
	})
}

func (l *Logger) Close() {
	if !l.enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.snapshotsFile != nil {
		l.snapshotsFile.Close()
		l.snapshotsFile = nil
	}
	if l.chunksFile != nil {
		l.chunksFile.Close()
		l.chunksFile = nil
	}
}

func (l *Logger) appendLine(file **os.File, filename, content string) {
	if l == nil || !l.enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if *file == nil {
		f, err := os.OpenFile(filepath.Join(l.dir, filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return
		}
		*file = f
	}

	record, err := json.Marshal(map[string]interface{}{
		"elapsed_ms": time.Since(l.startTime).Milliseconds(),
		"content":    content,
	})
	if err != nil {
		return
	}
	fmt.Fprintf(*file, "%s\n", record)
}

func (l *Logger) writeJSON(filename string, data interface{}) {
	if l == nil || !l.enabled {
		return
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(filepath.Join(l.dir, filename), jsonData, 0644)
}

func (l *Logger) writeFile(filename, content string) {
	if l == nil || !l.enabled {
		return
	}
	os.WriteFile(filepath.Join(l.dir, filename), []byte(content), 0644)
}

func cleanupOldDirs(basePath string, maxKeep int) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return
	}

	var dirs []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		}
	}
	if len(dirs) <= maxKeep {
		return
	}

	// Timestamped names sort newest-first in reverse order.
	sort.Slice(dirs, func(i, j int) bool {
		return dirs[i].Name() > dirs[j].Name()
	})
	for i := maxKeep; i < len(dirs); i++ {
		os.RemoveAll(filepath.Join(basePath, dirs[i].Name()))
	}
}
