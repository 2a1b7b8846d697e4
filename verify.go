package ufogfx

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/bodgit/ufogfx/asset"
)

// DefaultWorkers is the number of decodes Verify runs at once if asked for
// fewer than one.
const DefaultWorkers = 10

// Result is the outcome of verifying a single fixture.
type Result struct {
	Fixture Fixture
	// Err is nil if the decoded image matched the reference. Otherwise it is
	// the decode error, a *asset.MismatchError or a size mismatch.
	Err error
}

// Passed reports whether the fixture matched its reference
func (r Result) Passed() bool {
	return r.Err == nil
}

func listFixtures(ctx context.Context, fixtures []Fixture) (<-chan Fixture, <-chan error, error) {
	out := make(chan Fixture)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, f := range fixtures {
			if err := ctx.Err(); err != nil {
				errc <- err
				return
			}

			select {
			case out <- f:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc, nil
}

func (l *Loader) fixtureWorker(ctx context.Context, db *FixtureDB, in <-chan Fixture) (<-chan Result, <-chan error, error) {
	out := make(chan Result)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for f := range in {
			r := Result{
				Fixture: f,
				Err:     l.verify(db, f.Locator),
			}

			if r.Err != nil {
				l.logger.Debug("fixture failed", "locator", f.Locator, "error", r.Err)
			}

			select {
			case out <- r:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc, nil
}

func (l *Loader) verify(db *FixtureDB, locator string) error {
	want, err := db.Reference(locator)
	if err != nil {
		return err
	}

	got, err := l.Decode(locator)
	if err != nil {
		return err
	}

	return asset.Compare(got, want)
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func mergeResults(cs ...<-chan Result) <-chan Result {
	var wg sync.WaitGroup
	out := make(chan Result)
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan Result) {
			for r := range c {
				out <- r
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Verify decodes every fixture in db using workers concurrent decoders and
// compares each with its reference image. Results are ordered by locator.
// The returned error is only non-nil if the fixtures couldn't be listed or
// ctx was cancelled; individual failures are reported in each Result.
func (l *Loader) Verify(ctx context.Context, db *FixtureDB, workers int) ([]Result, error) {
	if db == nil {
		return nil, errors.New("no fixture database")
	}
	if workers < 1 {
		workers = DefaultWorkers
	}

	fixtures, err := db.Fixtures()
	if err != nil {
		return nil, err
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	in, errc, err := listFixtures(ctx, fixtures)
	if err != nil {
		return nil, err
	}
	errcList = append(errcList, errc)

	outs := make([]<-chan Result, 0, workers)
	for i := 0; i < workers; i++ {
		out, errc, err := l.fixtureWorker(ctx, db, in)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
		errcList = append(errcList, errc)
	}

	results := make([]Result, 0, len(fixtures))
	for r := range mergeResults(outs...) {
		results = append(results, r)
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Fixture.Locator < results[j].Fixture.Locator })

	return results, nil
}
