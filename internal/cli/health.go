package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"hybridrag/internal/usecase"
)

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report backend reachability and degradation state",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output as JSON")
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	checker := usecase.NewHealthChecker(b.vector, b.store.Name(), nil)
	status := checker.Check(ctx)

	if healthJSON {
		output, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("vector reachable:  %t\n", status.VectorReachable)
	fmt.Printf("collection exists: %t\n", status.CollectionExists)
	if status.VectorVersion != "" {
		fmt.Printf("vector backend:    %s\n", status.VectorVersion)
	}
	fmt.Printf("cache backend:     %s\n", status.CacheBackend)
	fmt.Printf("degraded:          %t\n", status.Degraded)
	return nil
}
