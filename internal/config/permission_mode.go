package config

import (
	"fmt"
	"slices"
)

// Permission modes accepted by the agent process.
const (
	PermissionModeDefault           = "default"
	PermissionModeAcceptEdits       = "acceptEdits"
	PermissionModePlan              = "plan"
	PermissionModeBypassPermissions = "bypassPermissions"
	PermissionModeDontAsk           = "dontAsk"
)

var permissionModes = []string{
	PermissionModeDefault,
	PermissionModeAcceptEdits,
	PermissionModePlan,
	PermissionModeBypassPermissions,
	PermissionModeDontAsk,
}

// older spellings still found in config files
var permissionModeAliases = map[string]string{
	"acceptAll": PermissionModeBypassPermissions,
	"prompt":    PermissionModeDefault,
}

// NormalizePermissionMode rewrites legacy spellings to the value passed on
// the command line. Anything else is returned unchanged.
func NormalizePermissionMode(mode string) string {
	if canonical, ok := permissionModeAliases[mode]; ok {
		return canonical
	}

	return mode
}

// ParsePermissionMode normalizes mode and rejects values the agent process
// does not know. An empty mode is allowed and means "leave the default".
func ParsePermissionMode(mode string) (string, error) {
	mode = NormalizePermissionMode(mode)
	if mode == "" || slices.Contains(permissionModes, mode) {
		return mode, nil
	}

	return "", fmt.Errorf("unknown permission mode %q", mode)
}
