package submitter

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"graphload/pkg/graph"
	"graphload/pkg/progress"
	"graphload/pkg/ratelimit"
)

// MockInserter is a mock implementation of the graph server client
type MockInserter struct {
	insertDelay   time.Duration
	insertError   error
	insertCounter int32
	elementCount  int32
}

func (m *MockInserter) InsertBatch(kind graph.Kind, elements []graph.Element) (int, error) {
	atomic.AddInt32(&m.insertCounter, 1)
	if m.insertDelay > 0 {
		time.Sleep(m.insertDelay)
	}
	if m.insertError != nil {
		return 0, m.insertError
	}
	atomic.AddInt32(&m.elementCount, int32(len(elements)))
	return len(elements), nil
}

func (m *MockInserter) GetInsertCount() int {
	return int(atomic.LoadInt32(&m.insertCounter))
}

func (m *MockInserter) GetElementCount() int {
	return int(atomic.LoadInt32(&m.elementCount))
}

func makeJob(i int) Job {
	return Job{
		Kind:   graph.KindVertex,
		Source: progress.SourceKey(fmt.Sprintf("person-part-%d.csv", i)),
		Elements: []graph.Element{
			&graph.Vertex{ID: fmt.Sprintf("v%d-a", i), Label: "person"},
			&graph.Vertex{ID: fmt.Sprintf("v%d-b", i), Label: "person"},
		},
		Bytes: 64,
	}
}

func TestPoolBasicFunctionality(t *testing.T) {
	mockClient := &MockInserter{insertDelay: 10 * time.Millisecond}
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewPool(3, mockClient, rateLimiter, nil)
	pool.Start()

	// Collect results
	var results []Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	// Submit jobs
	numJobs := 10
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(makeJob(i)); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	// Stop pool and wait for results
	pool.Stop()
	wg.Wait()

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}

	successCount := 0
	insertedTotal := 0
	for _, result := range results {
		if result.Success {
			successCount++
		}
		insertedTotal += result.Inserted
	}

	if successCount != numJobs {
		t.Errorf("Expected %d successful batches, got %d", numJobs, successCount)
	}

	if insertedTotal != numJobs*2 {
		t.Errorf("Expected %d inserted elements, got %d", numJobs*2, insertedTotal)
	}

	if mockClient.GetInsertCount() != numJobs {
		t.Errorf("Expected %d insert calls, got %d", numJobs, mockClient.GetInsertCount())
	}
}

func TestPoolWithErrors(t *testing.T) {
	mockClient := &MockInserter{
		insertError: fmt.Errorf("insert error"),
	}
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewPool(2, mockClient, rateLimiter, nil)
	pool.Start()

	var results []Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	numJobs := 5
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(makeJob(i)); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}

	for _, result := range results {
		if result.Success {
			t.Error("Expected all batches to fail")
		}
		if result.Error == nil {
			t.Error("Expected error in result")
		}
		if result.Inserted != 0 {
			t.Errorf("Expected no inserted elements on failure, got %d", result.Inserted)
		}
	}
}

func TestPoolConcurrency(t *testing.T) {
	// Insert delay makes serial execution measurably slower than parallel
	mockClient := &MockInserter{insertDelay: 100 * time.Millisecond}
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewPool(5, mockClient, rateLimiter, nil)
	pool.Start()

	var results []Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	numJobs := 10
	startTime := time.Now()

	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(makeJob(i)); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	elapsed := time.Since(startTime)

	// With 5 workers and 10 jobs taking 100ms each, it should take ~200ms
	// Allow some buffer for overhead
	expectedTime := 300 * time.Millisecond
	if elapsed > expectedTime {
		t.Errorf("Batches took too long: %v (expected < %v)", elapsed, expectedTime)
	}

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
}

func TestPoolProcessWaitsForResult(t *testing.T) {
	mockClient := &MockInserter{insertDelay: 20 * time.Millisecond}
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewPool(2, mockClient, rateLimiter, nil)
	pool.Start()

	// Drain the shared result stream
	var streamed int32
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range pool.Results() {
			atomic.AddInt32(&streamed, 1)
		}
	}()

	result, err := pool.Process(makeJob(0))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !result.Success {
		t.Errorf("Expected successful result, got error: %v", result.Error)
	}
	if result.Inserted != 2 {
		t.Errorf("Expected 2 inserted elements, got %d", result.Inserted)
	}
	if result.Duration <= 0 {
		t.Error("Expected a positive duration")
	}

	// By the time Process returns, the insert must have happened.
	if mockClient.GetInsertCount() != 1 {
		t.Errorf("Expected 1 insert call before Process returned, got %d", mockClient.GetInsertCount())
	}

	pool.Stop()
	wg.Wait()

	if atomic.LoadInt32(&streamed) != 1 {
		t.Errorf("Expected the result on the shared stream as well, got %d", streamed)
	}
}

func TestPoolInterleavesSources(t *testing.T) {
	mockClient := &MockInserter{insertDelay: 10 * time.Millisecond}
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewPool(4, mockClient, rateLimiter, nil)
	pool.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range pool.Results() {
		}
	}()

	// Two source workers each submit sequential batches through Process.
	var workers sync.WaitGroup
	for s := 0; s < 2; s++ {
		workers.Add(1)
		go func(s int) {
			defer workers.Done()
			for b := 0; b < 3; b++ {
				result, err := pool.Process(makeJob(s))
				if err != nil {
					t.Errorf("source %d batch %d: %v", s, b, err)
					return
				}
				if !result.Success {
					t.Errorf("source %d batch %d failed: %v", s, b, result.Error)
				}
			}
		}(s)
	}
	workers.Wait()

	pool.Stop()
	wg.Wait()

	if mockClient.GetInsertCount() != 6 {
		t.Errorf("Expected 6 insert calls, got %d", mockClient.GetInsertCount())
	}
}
