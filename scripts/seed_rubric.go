// seed_rubric.go — standalone script to seed a demo grading rubric for one
// subject via the Rubric API.
//
// Usage:
//
//	go run scripts/seed_rubric.go -api http://localhost:8700 -subject 1 -staff registrar
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
)

type allocation struct {
	path string
	body map[string]interface{}
}

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "Rubric API base URL")
	subject := flag.Int64("subject", 1, "subject id to seed")
	staff := flag.String("staff", "seed-script", "X-Staff-ID to send")
	flag.Parse()

	base := fmt.Sprintf("%s/api/v1/subjects/%d", *apiURL, *subject)
	allocations := []allocation{
		{base + "/components", map[string]interface{}{
			"component_type": "homework", "quantity": 3, "total_weight": 15.0, "display_order": 0,
		}},
		{base + "/components", map[string]interface{}{
			"component_type": "quiz", "quantity": 2, "total_weight": 10.0, "display_order": 100,
		}},
		{base + "/components/midterm-split", map[string]interface{}{
			"practical_weight": 10.0, "theoretical_weight": 10.0, "display_order": 200,
		}},
		{base + "/components", map[string]interface{}{
			"component_type": "project", "quantity": 1, "total_weight": 15.0, "display_order": 300,
		}},
		{base + "/components", map[string]interface{}{
			"component_type": "final", "quantity": 1, "total_weight": 40.0, "display_order": 400,
		}},
	}

	for _, a := range allocations {
		payload, _ := json.Marshal(a.body)
		req, err := http.NewRequest(http.MethodPost, a.path, bytes.NewReader(payload))
		if err != nil {
			log.Fatalf("build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Staff-ID", *staff)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatalf("POST %s: %v", a.path, err)
		}
		if resp.StatusCode != http.StatusCreated {
			var body map[string]interface{}
			_ = json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			log.Fatalf("POST %s: status %d body %v", a.path, resp.StatusCode, body)
		}
		resp.Body.Close()
		fmt.Printf("seeded %v\n", a.body)
	}

	req, err := http.NewRequest(http.MethodGet, base+"/weight", nil)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-Staff-ID", *staff)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("GET weight: %v", err)
	}
	defer resp.Body.Close()
	var summary map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&summary)
	fmt.Printf("subject %d weight summary: %v\n", *subject, summary)
}
