package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/aniplay-cli/aniplay/color"
	"github.com/aniplay-cli/aniplay/icon"
	"github.com/aniplay-cli/aniplay/style"
	"github.com/charmbracelet/lipgloss"
)

// checkDependencies verifies that the configured player binary exists in
// PATH and exits with an installation hint when it does not.
func checkDependencies(player string) {
	_, err := exec.LookPath(player)
	if err != nil {
		printMissingDependencyError(player)
		os.Exit(1)
	}
}

func printMissingDependencyError(dep string) {
	var installCmd string
	switch runtime.GOOS {
	case "darwin":
		installCmd = fmt.Sprintf("brew install %s", dep)
	case "linux":
		installCmd = fmt.Sprintf("sudo apt install %s", dep)
	case "windows":
		installCmd = fmt.Sprintf("scoop install %s", dep)
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(color.HiRed).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := fmt.Sprintf("The required dependency '%s' was not found in your PATH.", dep)

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.Bold(installCmd))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
