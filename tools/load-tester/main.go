package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var sampleNames = []string{"", "bakery", "acme", "coffee", "studio"}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the log service")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 200, "Requests per second limit")
	flag.Parse()

	log.Printf("Starting load test on %s/logs", *baseURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var successCount, notFoundCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 50) // Allow bursts up to 50

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for n := 0; ; n++ {
				if err := limiter.Wait(ctx); err != nil {
					return // Deadline reached
				}

				target := *baseURL + "/logs"
				switch n % 3 {
				case 0:
					target += "?name=" + url.QueryEscape(sampleNames[(workerID+n)%len(sampleNames)])
				case 1:
					target += "?timestamp=" + url.QueryEscape(time.Now().UTC().Format("2006-01"))
				default:
					// Unknown ids exercise the 404 path.
					target += "/" + uuid.NewString()
				}

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					continue // Should not happen
				}

				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						errorCount.Add(1)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				switch resp.StatusCode {
				case http.StatusOK:
					successCount.Add(1)
				case http.StatusNotFound:
					notFoundCount.Add(1)
				default:
					errorCount.Add(1)
				}
			}
		}(i)
	}

	wg.Wait()

	totalRequests := successCount.Load() + notFoundCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (200 OK): %d", successCount.Load())
	log.Printf("Not found (404): %d", notFoundCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}
