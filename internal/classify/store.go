package classify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jbrukh/bayesian"

	"kharcha/internal/core"
)

// MinTrainingExamples is the least history needed before a model is trained.
// Below this the fallback stays unavailable and Detect returns Others.
const MinTrainingExamples = 5

// ErrNotEnoughHistory signals that training was skipped, not that it failed.
var ErrNotEnoughHistory = errors.New("not enough history to train classifier")

// Store owns the persisted naive-Bayes model. It guards the in-memory
// classifier with a read-write lock and replaces the model file atomically,
// so a concurrently retraining worker never leaves a reader with a torn
// model.
type Store struct {
	path string

	mu         sync.RWMutex
	cl         *bayesian.Classifier
	loadedAt   time.Time
	generation uint64
}

// NewStore creates a store persisting its model at path. The model file is
// loaded lazily on first use; a missing file simply means no fallback yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Train fits a fresh TF-IDF naive-Bayes model on the accumulated history and
// atomically replaces both the persisted file and the in-memory model.
// Returns ErrNotEnoughHistory when the dataset is too small or has fewer
// than two distinct labels.
func (s *Store) Train(examples []core.TrainingExample) error {
	if len(examples) < MinTrainingExamples {
		return ErrNotEnoughHistory
	}

	seen := make(map[core.Category]bool)
	var classes []bayesian.Class
	for _, ex := range examples {
		if ex.Category == "" || seen[ex.Category] {
			continue
		}
		seen[ex.Category] = true
		classes = append(classes, bayesian.Class(ex.Category))
	}
	if len(classes) < 2 {
		return ErrNotEnoughHistory
	}

	cl := bayesian.NewClassifierTfIdf(classes...)
	for _, ex := range examples {
		toks := terms(ex.Description)
		if len(toks) == 0 {
			continue
		}
		cl.Learn(toks, bayesian.Class(ex.Category))
	}
	cl.ConvertTermsFreqToTfIdf()

	if err := s.persist(cl); err != nil {
		return err
	}

	s.mu.Lock()
	s.cl = cl
	s.loadedAt = time.Now()
	s.generation++
	s.mu.Unlock()
	return nil
}

// persist writes the model to a temp file and renames it over the old one.
func (s *Store) persist(cl *bayesian.Classifier) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "model-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := cl.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("serialize model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp model file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace model file: %w", err)
	}
	return nil
}

// Reload reads the persisted model file, if any. Called at startup and
// whenever the file on disk is newer than the loaded model.
func (s *Store) Reload() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat model file: %w", err)
	}

	cl, err := bayesian.NewClassifierFromFile(s.path)
	if err != nil {
		return fmt.Errorf("load model file: %w", err)
	}

	s.mu.Lock()
	s.cl = cl
	s.loadedAt = info.ModTime()
	s.generation++
	s.mu.Unlock()
	return nil
}

// Generation increments every time a new model is installed. Callers that
// memoize predictions use it to notice a model swap.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// stale reports whether the file on disk is newer than the loaded model.
func (s *Store) stale() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cl == nil || info.ModTime().After(s.loadedAt)
}

// Predict scores a description against the trained model. ok=false means no
// model is available or the description carries no usable tokens. A
// predicted label outside the closed category set maps to Others.
func (s *Store) Predict(description string) (core.Category, bool) {
	if s.stale() {
		// Best effort; a failed reload leaves the previous model in place.
		_ = s.Reload()
	}

	toks := terms(description)
	if len(toks) == 0 {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cl == nil {
		return "", false
	}

	_, idx, _ := s.cl.LogScores(toks)
	predicted := core.Category(s.cl.Classes[idx])
	if !predicted.Known() {
		return core.Others, true
	}
	return predicted, true
}
