package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "aiko"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage aiko configuration.

Running bare 'aiko config' is the same as 'aiko config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# aiko configuration
# See: aiko config show (for effective values and sources)

# State/data directory (default: ~/.config/aiko)
# state_dir: {{ .StateDir }}

# SQLite database path (default: ~/.config/aiko/aiko.db)
# db_path: {{ .DBPath }}

# Assistant persona
assistant:
  # Name the assistant answers to (default: "Aiko")
  name: "{{ .AssistantName }}"

# Anthropic API
anthropic:
  # API key (or set ANTHROPIC_API_KEY)
  api_key: ""

  # Model to use
  model: "{{ .AnthropicModel }}"

# Telegram
telegram:
  # Bot token from @BotFather
  token: ""

  # Chat to answer in; messages from other chats are ignored
  chat_id: ""

# Self-update
update:
  # Apply updates automatically on startup (default: false)
  auto: {{ .UpdateAuto }}

  # Remote and branch to track
  remote: "{{ .UpdateRemote }}"
  branch: "{{ .UpdateBranch }}"

  # Source checkout directory (default: directory of the binary)
  # dir: {{ .UpdateDir }}

  # Dependency manifest watched for changes
  manifest: "{{ .UpdateManifest }}"
`

type configTemplateData struct {
	StateDir       string
	DBPath         string
	AssistantName  string
	AnthropicModel string
	UpdateAuto     bool
	UpdateRemote   string
	UpdateBranch   string
	UpdateDir      string
	UpdateManifest string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:       viper.GetString("state_dir"),
		DBPath:         viper.GetString("db_path"),
		AssistantName:  viper.GetString("assistant.name"),
		AnthropicModel: viper.GetString("anthropic.model"),
		UpdateAuto:     viper.GetBool("update.auto"),
		UpdateRemote:   viper.GetString("update.remote"),
		UpdateBranch:   viper.GetString("update.branch"),
		UpdateDir:      viper.GetString("update.dir"),
		UpdateManifest: viper.GetString("update.manifest"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "AIKO_STATE_DIR"},
	{Key: "db_path", EnvVar: "AIKO_DB_PATH"},
	{Key: "assistant.name", EnvVar: "AIKO_ASSISTANT_NAME"},
	{Key: "anthropic.model", EnvVar: "AIKO_ANTHROPIC_MODEL"},
	{Key: "telegram.chat_id", EnvVar: "AIKO_TELEGRAM_CHAT_ID"},
	{Key: "update.auto", EnvVar: "AIKO_UPDATE_AUTO"},
	{Key: "update.remote", EnvVar: "AIKO_UPDATE_REMOTE"},
	{Key: "update.branch", EnvVar: "AIKO_UPDATE_BRANCH"},
	{Key: "update.dir", EnvVar: "AIKO_UPDATE_DIR"},
	{Key: "update.manifest", EnvVar: "AIKO_UPDATE_MANIFEST"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set — set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'aiko config init' first)", cfgPath)
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
