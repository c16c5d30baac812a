package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"workstation/internal/client"
	"workstation/internal/logging"
	"workstation/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var invokeCheckIPURL string

// invokeCmd runs one request through the handler in-process
var invokeCmd = &cobra.Command{
	Use:   "invoke <POST|DELETE>",
	Short: "Run the endpoint handler once, locally",
	Long: `Invoke the request handler in-process with the API key from WORKSTATION_API_KEY,
exactly as the deployed endpoint would handle it. For POST the caller's public
address is discovered first. Useful to exercise a configuration before deploying.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		method := strings.ToUpper(args[0])
		apiKey := requireAPIKey()
		cfg := loadConfig()
		ctx := context.Background()

		handler, err := server.NewWorkstationHandler(ctx, cfg)
		if err != nil {
			logging.Logger().Fatal("Failed to create handler", zap.Error(err))
		}

		var currentIP string
		if method == http.MethodPost {
			ip, err := client.NewIPResolver(invokeCheckIPURL, 3).CurrentIP(ctx)
			if err != nil {
				logging.Logger().Fatal("Failed to discover current IP", zap.Error(err))
			}
			currentIP = ip
		}

		req, err := newInvokeRequest(ctx, method, currentIP)
		if err != nil {
			logging.Logger().Fatal("Failed to build request", zap.Error(err))
		}
		req.Header.Set("Authorization", apiKey)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		logging.Logger().Info("Handler finished", zap.Int("status", rec.Code))
		fmt.Println(rec.Body.String())
	},
}

func init() {
	rootCmd.AddCommand(invokeCmd)

	invokeCmd.Flags().StringVar(&invokeCheckIPURL, "checkip-url", client.DefaultCheckIPURL, "Service returning the caller's public IPv4 address")
}

// newInvokeRequest builds the synthetic request passed to the handler. POST
// carries the caller address in the JSON body; other methods have no body.
func newInvokeRequest(ctx context.Context, method, currentIP string) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if method == http.MethodPost {
		payload, err := json.Marshal(map[string]string{"CURRENT_IP": currentIP})
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, "/", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}
