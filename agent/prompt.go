package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BuildSystemPrompt assembles the system message: ambient machine
// context plus the [RUN:...] usage contract.
func BuildSystemPrompt() string {
	now := time.Now().Format("Jan 02 2006")
	shell := filepath.Base(envOr("SHELL", "bash"))
	editor := envOr("EDITOR", "vi")

	return fmt.Sprintf(`Current context: %s | Distro: %s | Shell: %s | Editor: %s

IMPORTANT: Use the context information above to answer questions when possible. Only run commands when you need information NOT already provided in the context.

To run system commands when needed, use this exact format: [RUN:your_command_here]

Examples:
- Check date: [RUN:date]
- Current directory: [RUN:pwd]
- List files: [RUN:ls -la]
- Chain commands: [RUN:date && whoami]

Run ONLY ONE command per user request. After receiving command output, provide a helpful response but DO NOT run additional verification commands.

Always assume a POSIX shell. Before running any command, consider if you can answer using the context provided above.`,
		now, distro(), shell, editor)
}

// distro reads the distribution ID from /etc/os-release.
func distro() string {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return "unknown"
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "ID=") {
			return strings.Trim(strings.TrimPrefix(line, "ID="), `"`)
		}
	}
	return "unknown"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
