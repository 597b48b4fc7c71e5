// Package setup registers the framedx MCP server with desktop assistant
// clients that read an mcpServers JSON file.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// ServerName is the key framedx is registered under.
const ServerName = "framedx"

// ClientConfig is the client's configuration file. Keys other than
// mcpServers are preserved verbatim.
type ClientConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`

	extra map[string]json.RawMessage
}

// MCPServerConfig describes how the client launches one MCP server.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls what gets registered.
type Options struct {
	BinaryPath string
	FramesFile string
	DataDir    string
	NoFeedback bool
}

// ClientConfigPath returns the desktop client's config file for this OS.
func ClientConfigPath() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to get config directory: %w", err)
		}
		return filepath.Join(dir, "Claude", "claude_desktop_config.json"), nil
	}
}

// Load reads the client config. A missing file yields an empty config.
func Load(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{
		MCPServers: make(map[string]MCPServerConfig),
		extra:      make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.extra, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]MCPServerConfig)
	}
	return cfg, nil
}

// Save writes the client config, creating its directory when needed.
func Save(path string, cfg *ClientConfig) error {
	out := make(map[string]interface{}, len(cfg.extra)+1)
	for k, v := range cfg.extra {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Entry builds the server entry for opts.
func Entry(opts Options) (MCPServerConfig, error) {
	if opts.BinaryPath == "" {
		return MCPServerConfig{}, errors.New("binary path is required")
	}
	binary, err := filepath.Abs(opts.BinaryPath)
	if err != nil {
		return MCPServerConfig{}, fmt.Errorf("failed to resolve binary path: %w", err)
	}

	entry := MCPServerConfig{Command: binary, Args: []string{"mcp"}}
	if opts.NoFeedback {
		entry.Args = append(entry.Args, "--no-feedback")
	}

	env := make(map[string]string)
	if opts.DataDir != "" {
		env["FRAMEDX_DATA_DIR"] = opts.DataDir
	}
	if opts.FramesFile != "" {
		frames, err := filepath.Abs(opts.FramesFile)
		if err != nil {
			return MCPServerConfig{}, fmt.Errorf("failed to resolve frames file: %w", err)
		}
		env["FRAMEDX_FRAMES_FILE"] = frames
	}
	if len(env) > 0 {
		entry.Env = env
	}
	return entry, nil
}

// Register adds or replaces the framedx entry in the config file at path.
// It reports whether an existing entry was replaced.
func Register(path string, opts Options) (replaced bool, err error) {
	entry, err := Entry(opts)
	if err != nil {
		return false, err
	}
	cfg, err := Load(path)
	if err != nil {
		return false, err
	}
	_, replaced = cfg.MCPServers[ServerName]
	cfg.MCPServers[ServerName] = entry
	return replaced, Save(path, cfg)
}

// Unregister removes the framedx entry. It reports whether one was present.
func Unregister(path string) (bool, error) {
	cfg, err := Load(path)
	if err != nil {
		return false, err
	}
	if _, ok := cfg.MCPServers[ServerName]; !ok {
		return false, nil
	}
	delete(cfg.MCPServers, ServerName)
	return true, Save(path, cfg)
}
