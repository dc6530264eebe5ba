package cmd

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

const (
	responseYes = "yes"
	responseY   = "y"
)

// PrintDryRunAction prints a dry-run action with details, keys sorted.
func PrintDryRunAction(action string, details map[string]string) {
	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan)

	_, _ = yellow.Printf("[DRY-RUN] Would %s:\n", action)
	keys := make([]string, 0, len(details))
	for key := range details {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		_, _ = cyan.Printf("  %s: ", key)
		fmt.Println(details[key])
	}
}

// ConfirmPrompt asks the user for confirmation
func ConfirmPrompt(message string) (bool, error) {
	if assumeYesFlag {
		return true, nil
	}

	yellow := color.New(color.FgYellow)
	_, _ = yellow.Printf("%s [y/N]: ", message)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == responseY || response == responseYes, nil
}

// RequireConfirmation warns about a destructive action and fails unless the
// user agrees.
func RequireConfirmation(action string, details map[string]string) error {
	red := color.New(color.FgRed, color.Bold)
	_, _ = red.Printf("Warning: You are about to %s\n\n", action)

	for key, value := range details {
		fmt.Printf("  %s: %s\n", key, value)
	}
	if len(details) > 0 {
		fmt.Println()
	}

	confirmed, err := ConfirmPrompt("Do you want to continue")
	if err != nil {
		return err
	}
	if !confirmed {
		return fmt.Errorf("operation canceled by user")
	}
	return nil
}
