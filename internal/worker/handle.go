package worker

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StepImageJob describes one step whose illustration should be generated.
type StepImageJob struct {
	StepID        int64  `json:"step_id"`
	StepNumber    int    `json:"step_number"`
	Instruction   string `json:"instruction"`
	RecipeID      int64  `json:"recipe_id"`
	RecipeTitle   string `json:"recipe_title"`
	CheckExisting bool   `json:"check_existing"`
}

// NewStepImageJob returns a job with the existing-image check enabled.
func NewStepImageJob(stepID int64, stepNumber int, instruction string, recipeID int64, recipeTitle string) StepImageJob {
	return StepImageJob{
		StepID:        stepID,
		StepNumber:    stepNumber,
		Instruction:   instruction,
		RecipeID:      recipeID,
		RecipeTitle:   recipeTitle,
		CheckExisting: true,
	}
}

// Result is the outcome of a single step image task.
type Result struct {
	Success  bool   `json:"success"`
	StepID   int64  `json:"step_id"`
	ImageURL string `json:"image_url,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
	Queued   bool   `json:"queued,omitempty"`
	Error    string `json:"error,omitempty"`
}

func failed(stepID int64, err error) Result {
	return Result{Success: false, StepID: stepID, Error: err.Error()}
}

// Handle represents an in-flight step image task. It resolves exactly once.
type Handle struct {
	ID     string
	StepID int64

	once   sync.Once
	done   chan struct{}
	result Result
}

func newHandle(stepID int64) *Handle {
	return &Handle{
		ID:     uuid.NewString(),
		StepID: stepID,
		done:   make(chan struct{}),
	}
}

// ResolvedHandle returns a handle that is already complete.
func ResolvedHandle(r Result) *Handle {
	h := newHandle(r.StepID)
	h.resolve(r)
	return h
}

func (h *Handle) resolve(r Result) {
	h.once.Do(func() {
		h.result = r
		close(h.done)
	})
}

// Done is closed once the task has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task finishes or timeout elapses. A non-positive
// timeout waits indefinitely. The task keeps running after a timeout.
func (h *Handle) Wait(timeout time.Duration) (Result, bool) {
	if timeout <= 0 {
		<-h.done
		return h.result, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.result, true
	case <-timer.C:
		return Result{
			Success: false,
			StepID:  h.StepID,
			Error:   fmt.Sprintf("timed out after %s waiting for step image", timeout),
		}, false
	}
}
