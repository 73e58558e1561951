package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidacall/telehealth-scheduling/internal/config"
	"github.com/vidacall/telehealth-scheduling/internal/db"
	"github.com/vidacall/telehealth-scheduling/internal/identity"
)

// simulate hammers the booking API with concurrent reservation attempts for a
// small set of professionals, then audits the appointments table: if the
// store's atomicity guarantee holds, no two non-cancelled appointments for
// one professional may overlap, no matter how hard the race.

type SimConfig struct {
	APIBaseURL string
	Duration   time.Duration
	Workers    int
	Patients   int
	Targets    int // how many professionals to fight over
}

type DataPool struct {
	Patients      []uuid.UUID
	Professionals []uuid.UUID
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch status {
	case http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, p50, p95
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	sim := SimConfig{
		APIBaseURL: getEnv("SIM_API_URL", "http://127.0.0.1:8080"),
		Duration:   getDurationEnv("SIM_DURATION", 30*time.Second),
		Workers:    getIntEnv("SIM_WORKERS", 20),
		Patients:   getIntEnv("SIM_PATIENTS", 100),
		Targets:    getIntEnv("SIM_TARGETS", 5),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	data, err := loadPool(context.Background(), pool, sim)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded %d patients, targeting %d professionals", len(data.Patients), len(data.Professionals))

	metrics := &OperationMetrics{}
	runWorkers(sim, cfg.JWTSecret, data, metrics)

	avg, p50, p95 := metrics.Stats()
	log.Printf("reserve attempts=%d success=%d conflict=%d error=%d",
		metrics.Total, metrics.Success, metrics.Conflict, metrics.Error)
	log.Printf("latency avg=%s p50=%s p95=%s", avg, p50, p95)

	overlaps, err := auditOverlaps(context.Background(), pool)
	if err != nil {
		log.Fatalf("overlap audit: %v", err)
	}
	if overlaps > 0 {
		log.Fatalf("ATOMICITY BROKEN: found %d overlapping non-cancelled appointment pairs", overlaps)
	}
	log.Println("overlap audit clean: no double bookings")
}

func loadPool(ctx context.Context, pool *pgxpool.Pool, sim SimConfig) (*DataPool, error) {
	data := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM accounts WHERE role = 'patient' LIMIT $1`, sim.Patients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		data.Patients = append(data.Patients, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	profRows, err := pool.Query(ctx, `SELECT id FROM accounts WHERE role = 'professional' LIMIT $1`, sim.Targets)
	if err != nil {
		return nil, err
	}
	defer profRows.Close()
	for profRows.Next() {
		var id uuid.UUID
		if err := profRows.Scan(&id); err != nil {
			return nil, err
		}
		data.Professionals = append(data.Professionals, id)
	}
	if err := profRows.Err(); err != nil {
		return nil, err
	}

	if len(data.Patients) == 0 || len(data.Professionals) == 0 {
		return nil, fmt.Errorf("not enough seeded accounts, run cmd/seed first")
	}

	return data, nil
}

func runWorkers(sim SimConfig, jwtSecret string, data *DataPool, metrics *OperationMetrics) {
	deadline := time.Now().Add(sim.Duration)
	client := &http.Client{Timeout: 10 * time.Second}

	var wg sync.WaitGroup
	for w := 0; w < sim.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for time.Now().Before(deadline) {
				patientID := data.Patients[rng.Intn(len(data.Patients))]
				professionalID := data.Professionals[rng.Intn(len(data.Professionals))]

				token, err := identity.MakeToken(identity.Identity{ID: patientID, Role: identity.RolePatient}, jwtSecret, 5*time.Minute)
				if err != nil {
					log.Printf("mint token: %v", err)
					continue
				}

				slot, ok := fetchSlot(client, sim.APIBaseURL, token, professionalID, rng)
				if !ok {
					continue
				}

				start := time.Now()
				status := reserve(client, sim.APIBaseURL, token, professionalID, slot)
				metrics.Record(time.Since(start), status)
			}
		}(int64(w) + time.Now().UnixNano())
	}
	wg.Wait()
}

type slotsPayload struct {
	Slots []struct {
		Start time.Time `json:"start"`
	} `json:"slots"`
}

// fetchSlot asks for slots in the coming week and picks one at random.
// Everyone picking from the same small window maximizes contention.
func fetchSlot(client *http.Client, baseURL, token string, professionalID uuid.UUID, rng *rand.Rand) (time.Time, bool) {
	date := time.Now().AddDate(0, 0, 1+rng.Intn(7)).Format("2006-01-02")
	url := fmt.Sprintf("%s/professionals/%s/slots?date=%s", baseURL, professionalID, date)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return time.Time{}, false
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return time.Time{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return time.Time{}, false
	}

	var payload slotsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || len(payload.Slots) == 0 {
		return time.Time{}, false
	}

	return payload.Slots[rng.Intn(len(payload.Slots))].Start, true
}

func reserve(client *http.Client, baseURL, token string, professionalID uuid.UUID, startAt time.Time) int {
	body, _ := json.Marshal(map[string]any{
		"professional_id": professionalID.String(),
		"start_at":        startAt.Format(time.RFC3339),
	})

	req, err := http.NewRequest(http.MethodPost, baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return 0
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode
}

// auditOverlaps counts pairs of non-cancelled appointments for the same
// professional whose intervals intersect. Must always be zero.
func auditOverlaps(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var count int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.professional_id = b.professional_id
		 AND a.id < b.id
		 AND a.status <> 'cancelled'
		 AND b.status <> 'cancelled'
		 AND a.start_at < b.start_at + make_interval(mins => b.duration_minutes)
		 AND b.start_at < a.start_at + make_interval(mins => a.duration_minutes)
	`).Scan(&count)
	return count, err
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
