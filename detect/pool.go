package detect

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Pool holds several instances of the same Detector so images can be run
// through them concurrently
type Pool struct {
	// pool of detectors
	detectors chan Detector
	size      int
	close     sync.Once
}

// NewPool creates size detectors with open
func NewPool(size int, open func() (Detector, error)) (*Pool, error) {

	if size < 1 {
		return nil, errors.Errorf("invalid pool size %d", size)
	}

	p := &Pool{
		detectors: make(chan Detector, size),
		size:      size,
	}

	for i := 0; i < size; i++ {
		det, err := open()

		if err != nil {
			// close any instances created before the error
			p.Close()
			return nil, errors.Wrapf(err, "error creating detector %d", i)
		}

		p.Return(det)
	}

	return p, nil
}

// Get takes a detector from the pool, blocking until one is free
func (p *Pool) Get() Detector {
	return <-p.detectors
}

// Return puts a detector back in the pool
func (p *Pool) Return(det Detector) {
	select {
	case p.detectors <- det:
	default:
		// pool is full
	}
}

// Size returns the number of detectors in the pool
func (p *Pool) Size() int {
	return p.size
}

// Close closes the pool and every detector in it.  Detectors still checked
// out are not closed.
func (p *Pool) Close() error {

	var err error

	p.close.Do(func() {
		close(p.detectors)

		for det := range p.detectors {
			err = multierr.Append(err, det.Close())
		}
	})

	return err
}
