package connector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bufferCapacity   = 64
	numProducers     = 4
	itemsPerProducer = 10_000
)

var connKinds = []string{"ring_buffer", "channel"}

func getConnectorFromKind[T any](connKind string, size int) Connector[T] {
	switch connKind {
	case "channel":
		return NewChannel[T](size)
	case "ring_buffer":
		return NewRingBuffer[T](uint32(size))
	}
	return nil
}

func Test_Connector_FIFO(t *testing.T) {
	for _, connKind := range connKinds {
		t.Run(connKind, func(t *testing.T) {
			assert := assert.New(t)

			conn := getConnectorFromKind[int](connKind, bufferCapacity)

			go func() {
				for i := range 1000 {
					if err := conn.Write(i); err != nil {
						t.Errorf("write %d: %v", i, err)
						return
					}
				}
			}()

			for i := range 1000 {
				item, ok := conn.ReadTimeout(time.Second)
				assert.True(ok)
				assert.Equal(i, item)
			}
		})
	}
}

func Test_Connector_ReadTimeout(t *testing.T) {
	for _, connKind := range connKinds {
		t.Run(connKind, func(t *testing.T) {
			assert := assert.New(t)

			conn := getConnectorFromKind[string](connKind, bufferCapacity)

			start := time.Now()
			item, ok := conn.ReadTimeout(50 * time.Millisecond)
			elapsed := time.Since(start)

			assert.False(ok)
			assert.Empty(item)
			assert.GreaterOrEqual(elapsed, 50*time.Millisecond)
			assert.Less(elapsed, time.Second)
		})
	}
}

func Test_Connector_ReadTimeout_WakesOnWrite(t *testing.T) {
	for _, connKind := range connKinds {
		t.Run(connKind, func(t *testing.T) {
			assert := assert.New(t)

			conn := getConnectorFromKind[string](connKind, bufferCapacity)

			go func() {
				time.Sleep(20 * time.Millisecond)
				_ = conn.Write("item")
			}()

			start := time.Now()
			item, ok := conn.ReadTimeout(5 * time.Second)

			assert.True(ok)
			assert.Equal("item", item)
			assert.Less(time.Since(start), 5*time.Second)
		})
	}
}

func Test_Connector_Close(t *testing.T) {
	for _, connKind := range connKinds {
		t.Run(connKind, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			conn := getConnectorFromKind[int](connKind, bufferCapacity)

			require.NoError(conn.Write(1))
			require.NoError(conn.Write(2))
			assert.Equal(2, conn.Len())

			conn.Close()
			conn.Close()

			assert.ErrorIs(conn.Write(3), ErrClosed)

			// Queued items can still be drained
			item, err := conn.Read()
			assert.NoError(err)
			assert.Equal(1, item)

			item, ok := conn.ReadTimeout(time.Second)
			assert.True(ok)
			assert.Equal(2, item)

			_, err = conn.Read()
			assert.ErrorIs(err, ErrClosed)

			_, ok = conn.ReadTimeout(time.Second)
			assert.False(ok)
		})
	}
}

func Test_Connector_CloseUnblocksReader(t *testing.T) {
	for _, connKind := range connKinds {
		t.Run(connKind, func(t *testing.T) {
			conn := getConnectorFromKind[int](connKind, bufferCapacity)

			errCh := make(chan error, 1)
			go func() {
				_, err := conn.Read()
				errCh <- err
			}()

			time.Sleep(10 * time.Millisecond)
			conn.Close()

			select {
			case err := <-errCh:
				assert.ErrorIs(t, err, ErrClosed)
			case <-time.After(time.Second):
				t.Fatal("reader was not unblocked by close")
			}
		})
	}
}

func Test_Connector_TryWrite(t *testing.T) {
	for _, connKind := range connKinds {
		t.Run(connKind, func(t *testing.T) {
			assert := assert.New(t)

			conn := getConnectorFromKind[int](connKind, 2)

			assert.NoError(conn.TryWrite(1))
			assert.NoError(conn.TryWrite(2))
			assert.ErrorIs(conn.TryWrite(3), ErrFull)
			assert.Equal(2, conn.Len())

			item, err := conn.Read()
			assert.NoError(err)
			assert.Equal(1, item)
			assert.NoError(conn.TryWrite(3))

			conn.Close()
			assert.ErrorIs(conn.TryWrite(4), ErrClosed)
		})
	}
}

func Test_Connector_ReadContext(t *testing.T) {
	for _, connKind := range connKinds {
		t.Run(connKind, func(t *testing.T) {
			assert := assert.New(t)

			conn := getConnectorFromKind[int](connKind, bufferCapacity)

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()

			start := time.Now()
			_, err := conn.ReadContext(ctx)
			assert.ErrorIs(err, context.Canceled)
			assert.Less(time.Since(start), time.Second)

			// A done context never dequeues, even with an item ready
			assert.NoError(conn.Write(1))
			_, err = conn.ReadContext(ctx)
			assert.ErrorIs(err, context.Canceled)
			assert.Equal(1, conn.Len())

			item, err := conn.ReadContext(context.Background())
			assert.NoError(err)
			assert.Equal(1, item)
		})
	}
}

func Test_Connector_ReadContext_Closed(t *testing.T) {
	for _, connKind := range connKinds {
		t.Run(connKind, func(t *testing.T) {
			assert := assert.New(t)

			conn := getConnectorFromKind[int](connKind, bufferCapacity)
			conn.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			start := time.Now()
			_, err := conn.ReadContext(ctx)
			assert.ErrorIs(err, ErrClosed)
			assert.Less(time.Since(start), time.Second)
		})
	}
}

func Test_Connector_MultipleProducers(t *testing.T) {
	for _, connKind := range connKinds {
		t.Run(connKind, func(t *testing.T) {
			conn := getConnectorFromKind[int](connKind, bufferCapacity)

			producerWg := sync.WaitGroup{}
			producerWg.Add(numProducers)
			for i := range numProducers {
				go func(producerID int) {
					defer producerWg.Done()

					base := producerID * itemsPerProducer
					for j := range itemsPerProducer {
						if err := conn.Write(base + j); err != nil {
							t.Errorf("producer %d failed to write: %v", producerID, err)
							return
						}
					}
				}(i)
			}

			go func() {
				producerWg.Wait()
				conn.Close()
			}()

			received := make(map[int]int)
			lastPerProducer := make(map[int]int)
			for {
				item, err := conn.Read()
				if err != nil {
					if !errors.Is(err, ErrClosed) {
						t.Fatalf("unexpected error: %v", err)
					}
					break
				}

				received[item]++

				// Items of a single producer keep their order
				producerID := item / itemsPerProducer
				if last, ok := lastPerProducer[producerID]; ok && last > item {
					t.Fatalf("item %d received after %d", item, last)
				}
				lastPerProducer[producerID] = item
			}

			assert.Len(t, received, numProducers*itemsPerProducer)
			for item, count := range received {
				if count != 1 {
					t.Fatalf("item %d received %d times", item, count)
				}
			}
		})
	}
}

func Test_roundToPowerOf2(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint32(1), roundToPowerOf2(0))
	assert.Equal(uint32(1), roundToPowerOf2(1))
	assert.Equal(uint32(4), roundToPowerOf2(3))
	assert.Equal(uint32(64), roundToPowerOf2(64))
	assert.Equal(uint32(128), roundToPowerOf2(65))
}

func Benchmark_Connectors(b *testing.B) {
	b.ReportAllocs()

	for _, connKind := range connKinds {
		b.Run("WriteRead-"+connKind, func(b *testing.B) {
			conn := getConnectorFromKind[int](connKind, 1024)

			b.ResetTimer()
			for i := range b.N {
				if err := conn.Write(i); err != nil {
					b.Fatal(err)
				}
				if _, err := conn.Read(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
