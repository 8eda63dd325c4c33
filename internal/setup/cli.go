package setup

import (
	"fmt"
	"io"
	"os"
)

// CLI runs the setup subcommands.
type CLI struct {
	out            io.Writer
	configPath     func() (string, error)
	defaultDataDir string
}

// NewCLI creates a setup CLI writing to out.
func NewCLI(out io.Writer, defaultDataDir string) *CLI {
	return &CLI{out: out, configPath: DesktopConfigPath, defaultDataDir: defaultDataDir}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "claude-desktop":
		return c.register(args[1:])
	case "status":
		return c.showStatus()
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n\n", args[0])
		return c.showHelp()
	}
}

func (c *CLI) showHelp() error {
	fmt.Fprint(c.out, `
Usage:
  mcp-server setup <command> [options]

Commands:
  claude-desktop  Register the interview server with the desktop client
                  --binary, -b     path to the server binary
                  --data-dir, -d   transcript data directory
                  --catalog-dir    directory with conditions.yaml, relevance.yaml, questions.yaml
  status          Show current setup status
`)
	return nil
}

func (c *CLI) register(args []string) error {
	var opts Options
	for i := 0; i < len(args); i++ {
		if i+1 >= len(args) {
			break
		}
		switch args[i] {
		case "--binary", "-b":
			opts.BinaryPath = args[i+1]
			i++
		case "--data-dir", "-d":
			opts.DataDir = args[i+1]
			i++
		case "--catalog-dir":
			opts.CatalogDir = args[i+1]
			i++
		}
	}
	if opts.BinaryPath == "" {
		if execPath, err := os.Executable(); err == nil {
			opts.BinaryPath = execPath
		}
	}

	path, err := c.configPath()
	if err != nil {
		return err
	}
	entry, err := Register(path, opts)
	if err != nil {
		return fmt.Errorf("failed to register server: %w", err)
	}

	fmt.Fprintf(c.out, "Registered %s in %s\n", ServerName, path)
	fmt.Fprintf(c.out, "  command: %s\n", entry.Command)
	for k, v := range entry.Env {
		fmt.Fprintf(c.out, "  %s=%s\n", k, v)
	}
	fmt.Fprintln(c.out, "Restart the desktop client to load the new configuration.")
	return nil
}

func (c *CLI) showStatus() error {
	path, err := c.configPath()
	if err != nil {
		return err
	}
	status, err := CheckStatus(path, c.defaultDataDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Config file:    %s\n", status.ConfigPath)
	fmt.Fprintf(c.out, "Registered:     %t\n", status.Registered)
	if status.Registered {
		fmt.Fprintf(c.out, "Binary:         %s\n", status.ServerPath)
	}
	fmt.Fprintf(c.out, "Data directory: %s\n", status.DataDir)
	fmt.Fprintf(c.out, "Transcript DB:  %t\n", status.TranscriptDB)
	for _, issue := range status.Issues {
		fmt.Fprintf(c.out, "  ! %s\n", issue)
	}
	return nil
}
