package grbl

import (
	"github.com/google/uuid"

	"github.com/mastercactapus/geocraft/machine"
)

// job is a queue of lines streamed one at a time. It is only touched by
// the controller loop.
type job struct {
	id     string
	queue  []string
	total  int
	sent   int
	errors int
	paused bool

	// inFlight is set while a written line waits for its ok/error.
	inFlight bool
}

func newJob(lines []string) *job {
	return &job{
		id:    uuid.New().String(),
		queue: lines,
		total: len(lines),
	}
}

func (j *job) next() string {
	line := j.queue[0]
	j.queue = j.queue[1:]
	j.inFlight = true
	return line
}

func (j *job) ack(isError bool) {
	j.inFlight = false
	if j.sent < j.total {
		j.sent++
	}
	if isError {
		j.errors++
	}
}

func (j *job) done() bool { return !j.inFlight && len(j.queue) == 0 }

func (j *job) progress(status machine.JobStatus) machine.Progress {
	return machine.Progress{
		JobID:  j.id,
		Sent:   j.sent,
		Total:  j.total,
		Status: status,
		Errors: j.errors,
	}
}
