package indexer

import (
	"sync"
	"time"
)

// Progress is a point-in-time view of an active run
type Progress struct {
	TotalFiles             int           `json:"totalFiles"`
	ProcessedFiles         int           `json:"processedFiles"`
	CurrentFile            string        `json:"currentFile,omitempty"`
	Percentage             float64       `json:"percentage"`
	EstimatedTimeRemaining time.Duration `json:"estimatedTimeRemaining"`
	ChunkIndex             int           `json:"chunkIndex"`
	TotalChunks            int           `json:"totalChunks"`
	Message                string        `json:"message,omitempty"`
}

// ProgressFunc receives progress updates. Calls are serialized and run
// without internal locks held, so a callback may query the Indexer.
type ProgressFunc func(Progress)

// progressTracker accumulates progress for one run and fans it out
type progressTracker struct {
	emitMu   sync.Mutex // serializes callbacks, taken before mu
	mu       sync.Mutex
	current  Progress
	started  time.Time
	active   bool
	callback ProgressFunc
	now      func() time.Time
}

func newProgressTracker(callback ProgressFunc) *progressTracker {
	return &progressTracker{callback: callback, now: time.Now}
}

func (p *progressTracker) begin(totalFiles, totalChunks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = p.now()
	p.active = true
	p.current = Progress{TotalFiles: totalFiles, TotalChunks: totalChunks}
}

func (p *progressTracker) end() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
	p.current = Progress{}
}

// chunk reports the start of a chunk
func (p *progressTracker) chunk(index int, message string) {
	p.update(func(cur *Progress) {
		cur.ChunkIndex = index
		cur.Message = message
	})
}

// fileDone records one processed file, successful or not
func (p *progressTracker) fileDone(path string) {
	p.update(func(cur *Progress) {
		cur.ProcessedFiles++
		cur.CurrentFile = path
	})
}

func (p *progressTracker) snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return Progress{}
	}
	return p.current
}

// update applies fn to the current progress, recomputes the derived fields
// and hands a copy to the callback once mu is released.
func (p *progressTracker) update(fn func(*Progress)) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	fn(&p.current)
	total := p.current.TotalFiles
	processed := p.current.ProcessedFiles
	if total > 0 {
		p.current.Percentage = float64(processed) / float64(total) * 100
	} else {
		p.current.Percentage = 100
	}
	p.current.EstimatedTimeRemaining = estimateRemaining(p.now().Sub(p.started), processed, total)
	current := p.current
	p.mu.Unlock()

	if p.callback != nil {
		p.callback(current)
	}
}

// estimateRemaining extrapolates the average time per processed file to
// the files still left.
func estimateRemaining(elapsed time.Duration, processed, total int) time.Duration {
	if processed <= 0 || total <= processed {
		return 0
	}
	perFile := elapsed / time.Duration(processed)
	return perFile * time.Duration(total-processed)
}
