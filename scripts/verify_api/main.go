// Smoke check against a running API service: register two users, log
// in, list users, and fetch (empty) history between them.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

const apiAddr = "http://localhost:8081"

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID string `json:"id"`
	} `json:"user"`
}

func post(path string, body map[string]string) (*http.Response, error) {
	raw, _ := json.Marshal(body)
	return http.Post(apiAddr+path, "application/json", bytes.NewBuffer(raw))
}

func main() {
	// 1. Register two users (a repeat run gets "email already
	// registered", which is fine for the login below).
	for _, u := range []map[string]string{
		{"username": "smoke_a", "email": "smoke_a@example.com", "password": "password123"},
		{"username": "smoke_b", "email": "smoke_b@example.com", "password": "password123"},
	} {
		resp, err := post("/auth/register", u)
		if err != nil {
			log.Fatal(err)
		}
		resp.Body.Close()
		log.Printf("register %s: %s", u["username"], resp.Status)
	}

	// 2. Login as smoke_a.
	resp, err := post("/auth/login", map[string]string{
		"email": "smoke_a@example.com", "password": "password123",
	})
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Token: %s...\n", login.Token[:10])

	// 3. List users.
	req, _ := http.NewRequest(http.MethodGet, apiAddr+"/users", nil)
	req.Header.Add("Authorization", "Bearer "+login.Token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal("users request failed:", err)
	}
	defer resp.Body.Close()

	var users []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		log.Fatal(err)
	}
	log.Printf("users: %d", len(users))
	if len(users) == 0 {
		log.Fatal("expected at least one other user")
	}

	// 4. History with the first listed user.
	req, _ = http.NewRequest(http.MethodGet, apiAddr+"/messages/"+users[0].ID, nil)
	req.Header.Add("Authorization", "Bearer "+login.Token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal("history request failed:", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	log.Printf("history: %s", string(body))
}
