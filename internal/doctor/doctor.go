// Package doctor runs runtime readiness diagnostics for config, tools, audio,
// and the grading backend.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/storyvoice/storyvoice/internal/audio"
	"github.com/storyvoice/storyvoice/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkBackendHealth(cfg.Config))

	checks = append(checks, checkEnv(cfg.Config.TTS.APIKeyEnv,
		"spoken feedback will use cloud synthesis",
		"not set; spoken feedback falls back to the local command"))

	checks = append(checks, checkEnv("GOOGLE_APPLICATION_CREDENTIALS",
		"speech recognition credentials found",
		"not set; questions will skip the voice attempt"))

	checks = append(checks, checkCommand(cfg.Config.TTS.FallbackCmd.Argv, "tts.fallback_cmd"))
	checks = append(checks, checkPlaybackTool())
	checks = append(checks, checkAssetDir(cfg.Config))
	checks = append(checks, checkAudioSelection(cfg.Config))

	return Report{Checks: checks}
}

// checkEnv validates that an environment variable is non-empty.
func checkEnv(name string, okMsg, failMsg string) Check {
	if strings.TrimSpace(name) == "" {
		return Check{Name: "env", Pass: false, Message: "environment variable name is empty"}
	}
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkPlaybackTool verifies at least one prompt playback tool is present.
func checkPlaybackTool() Check {
	for _, bin := range []string{"pw-play", "paplay"} {
		if path, err := exec.LookPath(bin); err == nil {
			return Check{Name: "audio.playback", Pass: true, Message: fmt.Sprintf("found %s at %s", bin, path)}
		}
	}
	return Check{Name: "audio.playback", Pass: false, Message: "neither pw-play nor paplay found in PATH"}
}

// checkAssetDir verifies the prompt asset directory exists.
func checkAssetDir(cfg config.Config) Check {
	dir := config.ExpandUserPath(cfg.Audio.AssetDir)
	if dir == "" {
		return Check{Name: "audio.asset_dir", Pass: false, Message: "audio.asset_dir is empty; prompts will not play"}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: "audio.asset_dir", Pass: false, Message: fmt.Sprintf("cannot stat %q: %v", dir, err)}
	}
	if !info.IsDir() {
		return Check{Name: "audio.asset_dir", Pass: false, Message: fmt.Sprintf("%q is not a directory", dir)}
	}
	return Check{Name: "audio.asset_dir", Pass: true, Message: fmt.Sprintf("found %q", dir)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkBackendHealth probes the grading backend readiness endpoint.
func checkBackendHealth(cfg config.Config) Check {
	base := strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	if base == "" {
		return Check{Name: "backend.health", Pass: false, Message: "backend.base_url is empty"}
	}

	url := base + "/api/health/"
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return Check{Name: "backend.health", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Check{Name: "backend.health", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}
	return Check{Name: "backend.health", Pass: true, Message: fmt.Sprintf("ready at %s", url)}
}
