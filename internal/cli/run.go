package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/masubs/masubs/internal/task"
)

// runTask starts fn on runner and blocks until its terminal notification,
// printing progress to w as it arrives.
func runTask[T any](
	ctx context.Context,
	runner *task.Runner[T],
	fn task.Func[T],
	w io.Writer,
) (T, error) {
	var (
		result  T
		taskErr error
	)

	h, err := runner.Start(ctx, fn, task.Funcs[T]{
		OnProgress: func(p task.Progress) { printProgress(w, p) },
		OnSuccess:  func(r T) { result = r },
		OnFailure:  func(err error) { taskErr = err },
	})
	if err != nil {
		return result, err
	}
	h.Wait()

	return result, taskErr
}

func printProgress(w io.Writer, p task.Progress) {
	if p.Percent == task.Indeterminate {
		fmt.Fprintf(w, "[ .. ] %s\n", p.Message)
		return
	}
	fmt.Fprintf(w, "[%3d%%] %s\n", p.Percent, p.Message)
}

// environment variable holding the API key of a hosted provider
func apiKeyEnv(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// resolveAPIKey prefers --api-key, then the config file, then the
// provider's environment variable.
func resolveAPIKey(cmd *cobra.Command, provider string) string {
	if key, _ := cmd.Flags().GetString("api-key"); key != "" {
		return key
	}
	if key := cfg.APIKey(provider); key != "" {
		return key
	}
	return os.Getenv(apiKeyEnv(provider))
}

// flag value when set on the command line, otherwise the config fallback
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) || fallback == "" {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

func intFlag(cmd *cobra.Command, name string, fallback int) int {
	if cmd.Flags().Changed(name) || fallback == 0 {
		v, _ := cmd.Flags().GetInt(name)
		return v
	}
	return fallback
}

func durationFlag(cmd *cobra.Command, name string, fallback time.Duration) time.Duration {
	if cmd.Flags().Changed(name) || fallback == 0 {
		v, _ := cmd.Flags().GetDuration(name)
		return v
	}
	return fallback
}
