package models

import (
	"sync"
	"time"

	"cox-analyzer/internal/survival"
)

// FitRecord is the most recent successful fit together with what it was
// fit on.
type FitRecord struct {
	Model      *survival.Model
	Mode       Mode
	Covariates []string
	Data       *survival.Data
	FitTime    time.Time
}

// Session holds the single loaded dataset and the single last fit. Both
// are replaced wholesale; a new dataset always clears the fit.
type Session struct {
	mu       sync.RWMutex
	table    *Table
	fileName string
	loadTime time.Time
	fit      *FitRecord
}

func NewSession() *Session {
	return &Session{}
}

// SetDataset stores a freshly loaded table and drops the previous fit.
func (s *Session) SetDataset(t *Table, fileName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = t
	s.fileName = fileName
	s.loadTime = time.Now()
	s.fit = nil
}

// Dataset returns the loaded table, or nil.
func (s *Session) Dataset() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

func (s *Session) FileName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fileName
}

func (s *Session) SetFit(rec *FitRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec != nil && rec.FitTime.IsZero() {
		rec.FitTime = time.Now()
	}
	s.fit = rec
}

// Fit returns the last successful fit, or nil.
func (s *Session) Fit() *FitRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fit
}

func (s *Session) ClearFit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fit = nil
}

// Reset forgets the dataset and the fit.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = nil
	s.fileName = ""
	s.loadTime = time.Time{}
	s.fit = nil
}

// State summarises the session for status display and logging.
type State struct {
	HasDataset bool
	FileName   string
	Rows       int
	Columns    int
	HasFit     bool
	Covariates []string
	LoadTime   time.Time
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		HasDataset: s.table != nil,
		FileName:   s.fileName,
		HasFit:     s.fit != nil,
		LoadTime:   s.loadTime,
	}
	if s.table != nil {
		st.Rows = s.table.NumRows()
		st.Columns = s.table.NumCols()
	}
	if s.fit != nil {
		st.Covariates = append([]string(nil), s.fit.Covariates...)
	}
	return st
}
