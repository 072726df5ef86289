//go:build ignore

// seed_demo.go - Seeds a running Wire node with demo users and content
//
// The server must be up and reachable first (default http://localhost:8080,
// override with WIRE_URL). Rerunning is safe: existing accounts are logged
// into instead of recreated. Signup is rate limited per IP, so the seed
// stays under ten accounts.
//
// Usage: go run scripts/seed_demo.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

const password = "Demo-pass1"

type demoUser struct {
	Handle string
	Email  string
	Token  string
}

var handles = []string{
	"ada", "grace_h", "dennis_r", "ken_t",
	"barbara_l", "donald_k", "radia_p", "lynn_c",
}

var posts = []string{
	"Just migrated the feed tier to the new kv layout. Zero downtime, one very long night.",
	"Hot take: pagination cursors should be opaque. Your clients will thank you later.",
	"Reading the raft paper again. It gets better every time.",
	"Shipped a fix for the reconnect storm tonight. Exponential backoff, you beautiful thing.",
	"TIL redis SETNX predates half the databases I have used in production.",
	"The best code review comment I ever got was 'what happens when this is empty?'",
	"Debugging distributed systems is just archaeology with worse tooling.",
	"My favorite benchmark is still 'does it feel fast on my phone on the train'.",
	"Write-ahead logs are the unsung heroes of every system you rely on.",
	"Renamed a variable from data2 to snapshot and the bug became obvious. Naming is design.",
	"Every cache is a bet about the future. Price your invalidations accordingly.",
	"A queue with at-least-once delivery and idempotent handlers beats exactly-once dreams.",
	"Observability tip: log the request id everywhere or regret it at 3am.",
	"The fan-out worker hit 10k deliveries a second today. Champagne emoji.",
	"Clock skew is the horror movie villain of distributed systems. It always comes back.",
	"If your health check is just 'return 200' you do not have a health check.",
}

var replies = []string{
	"Strong agree. We learned this the hard way last quarter.",
	"Counterpoint: sometimes the boring option is the right option.",
	"This matches what we saw at scale, for what it is worth.",
	"Saving this one for the next design review.",
	"What did the p99 look like after the change?",
}

func main() {
	base := os.Getenv("WIRE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	log.Printf("Seeding %s with %d demo users", base, len(handles))

	// Step 1: create the accounts (or log back in on rerun).
	users := make([]demoUser, 0, len(handles))
	for _, h := range handles {
		u := demoUser{Handle: h, Email: h + "@example.com"}
		token, err := signupOrLogin(base, u.Handle, u.Email)
		if err != nil {
			log.Fatalf("Failed to provision %s: %v", h, err)
		}
		u.Token = token
		users = append(users, u)
		log.Printf("  ready: @%s", h)
	}

	// Step 2: everyone posts a few things.
	perm := rng.Perm(len(posts))
	next := 0
	postIDs := make([]string, 0, len(posts))
	for i := range users {
		n := 1 + rng.Intn(3)
		for j := 0; j < n && next < len(perm); j++ {
			id, err := createPost(base, users[i].Token, map[string]any{"content": posts[perm[next]]})
			if err != nil {
				log.Fatalf("Failed to post as @%s: %v", users[i].Handle, err)
			}
			postIDs = append(postIDs, id)
			next++
		}
	}
	log.Printf("Created %d posts", len(postIDs))

	// Step 3: a follow graph. Everyone follows two or three others.
	follows := 0
	for i, u := range users {
		for _, off := range rng.Perm(len(users))[:3] {
			if off == i {
				continue
			}
			if err := do(base, u.Token, http.MethodPost, "/api/users/"+users[off].Handle+"/follow", nil); err != nil {
				log.Fatalf("Failed follow @%s -> @%s: %v", u.Handle, users[off].Handle, err)
			}
			follows++
		}
	}
	log.Printf("Created %d follows", follows)

	// Step 4: replies under the first post, likes sprinkled around.
	if len(postIDs) > 0 {
		root := postIDs[0]
		for i, text := range replies[:3] {
			if _, err := createPost(base, users[(i+1)%len(users)].Token, map[string]any{
				"content":   text,
				"replyToId": root,
			}); err != nil {
				log.Fatalf("Failed to reply: %v", err)
			}
		}
	}

	likes := 0
	for _, u := range users {
		for _, off := range rng.Perm(len(postIDs))[:min(4, len(postIDs))] {
			if err := do(base, u.Token, http.MethodPost, "/api/posts/"+postIDs[off]+"/like", nil); err != nil {
				log.Fatalf("Failed to like: %v", err)
			}
			likes++
		}
	}
	log.Printf("Created %d likes", likes)

	// Step 5: one quote and one repost for flavor.
	if len(postIDs) > 1 {
		if _, err := createPost(base, users[0].Token, map[string]any{
			"content":   "This, a hundred times this.",
			"quoteOfId": postIDs[1],
		}); err != nil {
			log.Fatalf("Failed to quote: %v", err)
		}
		if err := do(base, users[1].Token, http.MethodPost, "/api/posts/"+postIDs[0]+"/repost", nil); err != nil {
			log.Printf("Warning: repost failed (fine on rerun): %v", err)
		}
	}

	log.Printf("✓ Done. Open /api/feed/home with any seeded token, e.g. @%s", users[0].Handle)
}

// signupOrLogin returns a bearer token for the handle, creating the
// account on first run.
func signupOrLogin(base, handle, email string) (string, error) {
	token, status, err := session(base, "/api/auth/signup", map[string]string{
		"handle": handle, "email": email, "password": password,
	})
	if err == nil {
		return token, nil
	}
	if status != http.StatusConflict {
		return "", err
	}
	token, _, err = session(base, "/api/auth/login", map[string]string{
		"identifier": handle, "password": password,
	})
	return token, err
}

// session posts credentials and pulls the token out of the envelope.
func session(base, path string, body map[string]string) (string, int, error) {
	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	status, err := call(base, "", http.MethodPost, path, body, &out)
	if err != nil {
		return "", status, err
	}
	return out.Data.Token, status, nil
}

func createPost(base, token string, body map[string]any) (string, error) {
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if _, err := call(base, token, http.MethodPost, "/api/posts", body, &out); err != nil {
		return "", err
	}
	return out.Data.ID, nil
}

func do(base, token, method, path string, body any) error {
	_, err := call(base, token, method, path, body, nil)
	return err
}

func call(base, token, method, path string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequest(method, base+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return resp.StatusCode, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Error)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
