package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Booking load generator. Hammers the API with concurrent reservation
// attempts so the conflict path (exactly one winner per slot) can be
// observed under real contention.

type simConfig struct {
	apiBaseURL string
	duration   time.Duration
	workers    int
	confirmPct int
	daysAhead  int
}

type counters struct {
	created   int64
	conflicts int64
	rejected  int64
	confirmed int64
	errors    int64
}

type providerInfo struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Availability []string  `json:"availability"`
}

type availabilityInfo struct {
	IsWorkingDay bool     `json:"is_working_day"`
	OpenSlots    []string `json:"open_slots"`
}

type apptInfo struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func main() {
	cfg := simConfig{}
	flag.StringVar(&cfg.apiBaseURL, "api", "http://127.0.0.1:8080", "API base URL")
	flag.DurationVar(&cfg.duration, "duration", 30*time.Second, "how long to run")
	flag.IntVar(&cfg.workers, "workers", 16, "concurrent workers")
	flag.IntVar(&cfg.confirmPct, "confirm", 30, "percent of created appointments to confirm")
	flag.IntVar(&cfg.daysAhead, "days", 7, "how many days ahead to book")
	flag.Parse()

	log.SetFlags(log.LstdFlags)
	log.Printf("simulate starting api=%s workers=%d duration=%s", cfg.apiBaseURL, cfg.workers, cfg.duration)

	client := &http.Client{Timeout: 10 * time.Second}

	providers, err := fetchProviders(client, cfg.apiBaseURL)
	if err != nil {
		log.Fatalf("fetch providers: %v", err)
	}
	if len(providers) == 0 {
		log.Fatal("no providers found, run cmd/seed first")
	}
	log.Printf("loaded %d providers", len(providers))

	var stats counters
	deadline := time.Now().Add(cfg.duration)

	var wg sync.WaitGroup
	for i := 0; i < cfg.workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for time.Now().Before(deadline) {
				runAttempt(client, cfg, providers, rng, &stats)
			}
		}(time.Now().UnixNano() + int64(i))
	}
	wg.Wait()

	log.Printf("simulate done: created=%d confirmed=%d conflicts=%d rejected=%d errors=%d",
		atomic.LoadInt64(&stats.created),
		atomic.LoadInt64(&stats.confirmed),
		atomic.LoadInt64(&stats.conflicts),
		atomic.LoadInt64(&stats.rejected),
		atomic.LoadInt64(&stats.errors),
	)
}

func fetchProviders(client *http.Client, baseURL string) ([]providerInfo, error) {
	resp, err := client.Get(baseURL + "/providers")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	var providers []providerInfo
	if err := json.NewDecoder(resp.Body).Decode(&providers); err != nil {
		return nil, err
	}
	return providers, nil
}

func runAttempt(client *http.Client, cfg simConfig, providers []providerInfo, rng *rand.Rand, stats *counters) {
	p := providers[rng.Intn(len(providers))]
	date := time.Now().UTC().AddDate(0, 0, 1+rng.Intn(cfg.daysAhead)).Format("2006-01-02")

	// Pull the provider's open slots; a booking against a non-working day
	// or an occupied slot would just bounce.
	avail, err := fetchAvailability(client, cfg.apiBaseURL, p.ID, date)
	if err != nil {
		atomic.AddInt64(&stats.errors, 1)
		return
	}
	if !avail.IsWorkingDay || len(avail.OpenSlots) == 0 {
		return
	}
	slot := avail.OpenSlots[rng.Intn(len(avail.OpenSlots))]

	payload, _ := json.Marshal(map[string]string{
		"provider_id":   p.ID.String(),
		"date":          date,
		"time":          slot,
		"patient_name":  fmt.Sprintf("Sim Patient %d", rng.Intn(10000)),
		"patient_email": fmt.Sprintf("sim-%d@example.com", rng.Intn(10000)),
		"symptoms":      "load test booking",
	})

	resp, err := client.Post(cfg.apiBaseURL+"/appointments", "application/json", bytes.NewReader(payload))
	if err != nil {
		atomic.AddInt64(&stats.errors, 1)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		atomic.AddInt64(&stats.created, 1)
		var appt apptInfo
		if err := json.NewDecoder(resp.Body).Decode(&appt); err != nil {
			return
		}
		if rng.Intn(100) < cfg.confirmPct {
			confirm(client, cfg.apiBaseURL, appt.ID, stats)
		}
	case http.StatusConflict:
		atomic.AddInt64(&stats.conflicts, 1)
	case http.StatusUnprocessableEntity:
		atomic.AddInt64(&stats.rejected, 1)
	default:
		atomic.AddInt64(&stats.errors, 1)
	}
}

func fetchAvailability(client *http.Client, baseURL string, providerID uuid.UUID, date string) (*availabilityInfo, error) {
	url := fmt.Sprintf("%s/providers/%s/availability?date=%s", baseURL, providerID, date)
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("availability status %d", resp.StatusCode)
	}
	var avail availabilityInfo
	if err := json.NewDecoder(resp.Body).Decode(&avail); err != nil {
		return nil, err
	}
	return &avail, nil
}

func confirm(client *http.Client, baseURL string, id uuid.UUID, stats *counters) {
	payload, _ := json.Marshal(map[string]string{
		"status":     "confirmed",
		"actor_role": "provider",
	})
	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/appointments/%s/status", baseURL, id), bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		atomic.AddInt64(&stats.errors, 1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		atomic.AddInt64(&stats.confirmed, 1)
	}
}
