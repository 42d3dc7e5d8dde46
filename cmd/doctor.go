package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chebykinn/browser-code/internal/config"
	"github.com/chebykinn/browser-code/internal/store"
	"github.com/chebykinn/browser-code/pkg/protocol"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("browsercoded doctor")
	fmt.Printf("  Version:  %s (protocol %d)\n", Version, protocol.ProtocolVersion)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Store:")
	fmt.Printf("    %-12s %s\n", "Driver:", driverLabel(cfg.Database.Driver))
	ctx := context.Background()
	db, driverName, err := store.Open(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
	} else {
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			fmt.Printf("    %-12s PING FAILED (%s)\n", "Status:", err)
		} else {
			fmt.Printf("    %-12s OK (migrations applied)\n", "Status:")
		}
		if _, err := store.NewDomainStore(db, driverName); err != nil {
			fmt.Printf("    %-12s %s\n", "Domain store:", err)
		} else {
			fmt.Printf("    %-12s OK\n", "Domain store:")
		}
	}

	fmt.Println()
	fmt.Println("  Browser:")
	if cfg.Browser.RemoteDebuggingURL == "" {
		fmt.Printf("    %-12s (not configured)\n", "CDP target:")
	} else {
		fmt.Printf("    %-12s %s\n", "CDP target:", cfg.Browser.RemoteDebuggingURL)
	}

	fmt.Println()
	fmt.Println("  Provider:")
	providerName := cfg.Agent.Provider
	if providerName == "" {
		providerName = "anthropic"
	}
	switch providerName {
	case "anthropic":
		checkProvider("Anthropic", config.AnthropicAPIKey())
	case "openai":
		checkProvider("OpenAI", os.Getenv("BROWSERCODE_OPENAI_API_KEY"))
	default:
		fmt.Printf("    %-12s unknown provider %q\n", "Status:", providerName)
	}

	if len(cfg.MCPServers) > 0 {
		fmt.Println()
		fmt.Println("  MCP servers:")
		for name, srv := range cfg.MCPServers {
			fmt.Printf("    %-16s %s\n", name+":", srv.Command)
		}
	}

	fmt.Println()
	fmt.Println("  External Tools:")
	checkBinary("git")
	checkBinary("curl")

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func driverLabel(driver string) string {
	if driver == "" {
		return "sqlite (default)"
	}
	return driver
}

func checkProvider(name, apiKey string) {
	if apiKey == "" {
		fmt.Printf("    %-12s (not configured)\n", name+":")
		return
	}
	masked := apiKey
	if len(apiKey) > 8 {
		masked = apiKey[:4] + strings.Repeat("*", len(apiKey)-8) + apiKey[len(apiKey)-4:]
	}
	fmt.Printf("    %-12s %s\n", name+":", masked)
}

func checkBinary(name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Printf("    %-12s NOT FOUND\n", name+":")
	} else {
		fmt.Printf("    %-12s %s\n", name+":", path)
	}
}
