// Package main is a container health probe: it exits 0 when the local
// server answers /healthz with 200.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/garyellow/buscacursos-bot-go/internal/config"
)

func main() {
	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = config.DefaultPort
	}

	client := &http.Client{Timeout: config.ReadinessCheck}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
	if err != nil {
		os.Exit(1)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
