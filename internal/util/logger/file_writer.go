package logger

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// FileWriter appends log records as JSON lines to a local file. Writes are
// best-effort: a failed write never fails the logging call.
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
}

type fileRecord struct {
	Time    string                 `json:"time"`
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Attrs   map[string]interface{} `json:"attrs,omitempty"`
}

func NewFileWriter(path string) (*FileWriter, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &FileWriter{file: file}, nil
}

func (w *FileWriter) Write(level, message string, attrs map[string]interface{}) {
	record := fileRecord{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:   level,
		Message: message,
		Attrs:   attrs,
	}

	line, err := json.Marshal(record)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, _ = w.file.Write(append(line, '\n'))
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Close()
}
