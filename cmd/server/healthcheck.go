package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var healthCheckAddr string

// healthCheckCmd is meant for container HEALTHCHECK instructions.
var healthCheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check the health endpoint of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthCheck(healthCheckAddr)
	},
}

func init() {
	healthCheckCmd.Flags().StringVar(&healthCheckAddr, "addr", ":8099", "Address the server listens on")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + host + "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
